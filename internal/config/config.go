// Package config loads server settings from the environment.
//
// An optional .env file in the working directory is loaded first, then the
// process environment is parsed into Config. Real environment variables
// always win over the .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the server.
type Config struct {
	Addr string `env:"ADDR" envDefault:":8080"`

	// DatabaseDriver is "sqlite" or "postgres".
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	// DatabaseURL is a modernc.org/sqlite DSN or a PostgreSQL connection
	// string, depending on DatabaseDriver. Empty selects the driver default.
	DatabaseURL string `env:"DATABASE_URL"`

	JWTSecret string `env:"JWT_SECRET" envDefault:"changeme-use-a-real-secret-in-production"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// SweepInterval is how often expired events are completed. Zero turns
	// the background loop off; the admin sweep endpoint still works.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`

	// OrganizerConsumesSlot attaches the organizer as the first attendee of
	// every new event, using one slot.
	OrganizerConsumesSlot bool   `env:"ORGANIZER_CONSUMES_SLOT" envDefault:"true"`
	DefaultTimezone       string `env:"DEFAULT_TIMEZONE" envDefault:"UTC"`

	// PushEndpoint is the HTTP push gateway. Empty means notifications are
	// only logged.
	PushEndpoint  string        `env:"PUSH_ENDPOINT"`
	PushServerKey string        `env:"PUSH_SERVER_KEY"`
	PushTimeout   time.Duration `env:"PUSH_TIMEOUT" envDefault:"5s"`

	// OTelEndpoint enables tracing when set, e.g. http://localhost:4318.
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	ServiceName  string `env:"SERVICE_NAME" envDefault:"nearby"`
}

// Load reads .env (if present) and parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads Config from the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("parse env: unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	return cfg, nil
}
