package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tss1979/timetracker/internal/auth"
	"github.com/tss1979/timetracker/internal/metrics"
	"github.com/tss1979/timetracker/internal/middleware"
	"github.com/tss1979/timetracker/internal/session"
	"github.com/tss1979/timetracker/internal/store"
	"github.com/tss1979/timetracker/internal/timers"
	"github.com/tss1979/timetracker/internal/views"
)

// Deps are the long-lived services the router is built from.
type Deps struct {
	Store    store.Gateway
	Cache    HealthChecker // optional
	Sessions *session.Manager
	Accounts *auth.Accounts
	Timers   *timers.Service
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	CORSOrigins  []string
	SecureCookie bool
	// Limiter guards /login and /signup. Nil disables it.
	Limiter *middleware.RateLimiter
}

// NewRouter builds the full HTTP surface.
func NewRouter(d Deps) (*chi.Mux, error) {
	renderer, err := views.NewRenderer(d.Logger)
	if err != nil {
		return nil, err
	}

	authHandler := auth.NewHandler(d.Accounts, d.Sessions, d.Metrics, d.Logger, d.SecureCookie)
	timerHandler := timers.NewHandler(d.Timers, d.Metrics, d.Logger)
	health := NewHealthHandler(d.Store, d.Cache)

	var limit func(http.Handler) http.Handler
	if d.Limiter != nil {
		limit = d.Limiter.Middleware
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger, d.Metrics))
	r.Use(middleware.Recoverer(d.Logger))
	r.Use(middleware.CORSMiddleware(d.CORSOrigins))

	r.Get("/healthz", health.Healthz)
	r.Handle("/metrics", d.Metrics.Handler())
	r.Handle("/static/*", views.StaticHandler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(d.Sessions, d.Logger))

		r.Get("/", renderer.IndexHandler)
		r.Group(auth.SetupRoutes(authHandler, limit))
		r.Mount("/api/timers", timers.SetupRoutes(timerHandler))
	})

	return r, nil
}
