// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   int    `env:"PORT" envDefault:"3000"`

	// Connection string for the document store. The scheme picks the backend:
	// postgres://, mongodb://, mongodb+srv:// or sqlite:<path>.
	DBURI  string `env:"DB_URI,required,notEmpty"`
	DBName string `env:"DB_NAME" envDefault:"users"`

	// Optional Redis used to cache session lookups.
	RedisURL        string        `env:"REDIS_URL"`
	SessionCacheTTL time.Duration `env:"SESSION_CACHE_TTL" envDefault:"10m"`

	// Zero keeps sessions alive until logout.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"0s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// Comma-separated list of allowed origins.
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Token bucket applied per client to POST /login and POST /signup.
	// A zero rate disables the limiter.
	LoginRateLimitRPS   float64 `env:"LOGIN_RATE_LIMIT_RPS" envDefault:"1"`
	LoginRateLimitBurst int     `env:"LOGIN_RATE_LIMIT_BURST" envDefault:"5"`
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing or malformed.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.SessionTTL < 0 {
		return nil, fmt.Errorf("SESSION_TTL must not be negative, got %s", cfg.SessionTTL)
	}
	return cfg, nil
}
