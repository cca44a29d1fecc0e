// Package db opens the document store named by the connection string and
// returns it as a store.Gateway.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/tss1979/timetracker/internal/store"
	"github.com/tss1979/timetracker/internal/store/gormstore"
	"github.com/tss1979/timetracker/internal/store/mongostore"
)

// ErrUnsupportedScheme is returned for connection strings no backend accepts.
var ErrUnsupportedScheme = errors.New("unsupported DB_URI scheme")

// Open connects to the backend selected by the URI scheme. name is the Mongo
// database, or the PostgreSQL schema the tables live in.
func Open(ctx context.Context, uri, name string, log *slog.Logger) (store.Gateway, error) {
	switch {
	case strings.HasPrefix(uri, "mongodb://"), strings.HasPrefix(uri, "mongodb+srv://"):
		return mongostore.Connect(ctx, uri, name)
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		gdb, err := ConnectPostgres(ctx, uri, name, log)
		if err != nil {
			return nil, err
		}
		return gormstore.New(gdb), nil
	case strings.HasPrefix(uri, "sqlite:"):
		gdb, err := ConnectSQLite(strings.TrimPrefix(uri, "sqlite:"), log)
		if err != nil {
			return nil, err
		}
		return gormstore.New(gdb), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, Redact(uri))
	}
}

// ConnectPostgres opens a pgx-backed gorm connection and makes sure the
// schema exists.
func ConnectPostgres(ctx context.Context, dsn, schemaName string, log *slog.Logger) (*gorm.DB, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	cfg := gormConfig(log)
	if schemaName != "" {
		cfg.NamingStrategy = schema.NamingStrategy{TablePrefix: schemaName + "."}
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), cfg)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if schemaName != "" {
		if err := EnsureSchema(gdb.WithContext(ctx), schemaName); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to ensure schema %s: %w", schemaName, err)
		}
	}
	return gdb, nil
}

// ConnectSQLite opens a SQLite database file. Used for local development and
// tests.
func ConnectSQLite(path string, log *slog.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// SQLite serialises writers; one connection also keeps :memory: databases
	// from splitting per connection.
	sqlDB.SetMaxOpenConns(1)
	return gdb, nil
}

func gormConfig(log *slog.Logger) *gorm.Config {
	level := logger.Warn
	if log.Enabled(context.Background(), slog.LevelDebug) {
		level = logger.Info
	}
	return &gorm.Config{
		Logger: logger.New(
			slog.NewLogLogger(log.Handler(), slog.LevelWarn),
			logger.Config{
				SlowThreshold:             100 * time.Millisecond,
				LogLevel:                  level,
				IgnoreRecordNotFoundError: true,
			},
		),
		TranslateError: true,
	}
}

// Redact hides the password part of a connection string for logging.
func Redact(uri string) string {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return uri
	}
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return uri
	}
	userinfo := rest[:at]
	if user, _, hasPass := strings.Cut(userinfo, ":"); hasPass {
		userinfo = user + ":xxxxx"
	}
	return scheme + "://" + userinfo + rest[at:]
}
