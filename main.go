package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/tss1979/timetracker/internal/auth"
	"github.com/tss1979/timetracker/internal/cache"
	"github.com/tss1979/timetracker/internal/config"
	"github.com/tss1979/timetracker/internal/db"
	"github.com/tss1979/timetracker/internal/logging"
	"github.com/tss1979/timetracker/internal/metrics"
	"github.com/tss1979/timetracker/internal/middleware"
	"github.com/tss1979/timetracker/internal/server"
	"github.com/tss1979/timetracker/internal/session"
	"github.com/tss1979/timetracker/internal/timers"
)

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stderr, "info", "text").Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	gw, err := db.Open(connectCtx, cfg.DBURI, cfg.DBName, logger)
	if err != nil {
		return err
	}
	if err := gw.Migrate(connectCtx); err != nil {
		_ = gw.Close(context.Background())
		return err
	}
	logger.Info("connected to store", "uri", db.Redact(cfg.DBURI), "name", cfg.DBName)

	var (
		sessionCache session.Cache
		cacheHealth  server.HealthChecker
		cacheClient  *cache.SessionCache
	)
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(connectCtx, cfg.RedisURL, cfg.SessionCacheTTL)
		if err != nil {
			// Sessions still resolve from the store.
			logger.Warn("session cache disabled", "error", err)
		} else {
			sessionCache = cacheClient
			cacheHealth = cacheClient
		}
	}

	m := metrics.New()
	sessions := session.NewManager(gw, gw, session.Options{
		TTL:    cfg.SessionTTL,
		Cache:  sessionCache,
		Logger: logger,
	})

	var limiter *middleware.RateLimiter
	if cfg.LoginRateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.LoginRateLimitRPS, cfg.LoginRateLimitBurst)
	}

	router, err := server.NewRouter(server.Deps{
		Store:        gw,
		Cache:        cacheHealth,
		Sessions:     sessions,
		Accounts:     auth.NewAccounts(gw, bcrypt.DefaultCost),
		Timers:       timers.NewService(gw, nil),
		Metrics:      m,
		Logger:       logger,
		CORSOrigins:  cfg.GetCORSAllowedOrigins(),
		SecureCookie: cfg.IsProduction(),
		Limiter:      limiter,
	})
	if err != nil {
		_ = gw.Close(context.Background())
		return err
	}

	srv := server.New(router, cfg.Port, cfg.ReadTimeout, cfg.WriteTimeout, cfg.ShutdownTimeout, logger)
	srv.OnShutdown("store", gw.Close)
	if sessionCache != nil {
		srv.OnShutdown("session cache", func(context.Context) error { return cacheClient.Close() })
	}

	logger.Info("starting server",
		"port", cfg.Port,
		"env", cfg.AppEnv,
		"session_ttl", cfg.SessionTTL,
	)
	return srv.Run(ctx)
}
