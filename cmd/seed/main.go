package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/tss1979/timetracker/internal/auth"
	"github.com/tss1979/timetracker/internal/config"
	"github.com/tss1979/timetracker/internal/db"
	"github.com/tss1979/timetracker/internal/logging"
	"github.com/tss1979/timetracker/internal/seeds"
)

var seedFile = flag.String("file", "internal/seeds/data/users.yaml", "Path to the YAML seed file")

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stderr, "info", "text").Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("seeding failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	f, err := seeds.LoadFile(*seedFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gw, err := db.Open(ctx, cfg.DBURI, cfg.DBName, logger)
	if err != nil {
		return err
	}
	defer gw.Close(context.Background())

	if err := gw.Migrate(ctx); err != nil {
		return err
	}

	accounts := auth.NewAccounts(gw, bcrypt.DefaultCost)
	_, err = seeds.SeedAll(ctx, accounts, gw, f, logger)
	return err
}
