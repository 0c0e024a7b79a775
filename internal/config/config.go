// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/mmynk/silverledger/pkg/logging"
)

// Config holds every setting the binaries read.
type Config struct {
	// DBDriver selects the backend: sqlite or postgres.
	DBDriver string `env:"SILVER_DB_DRIVER" envDefault:"sqlite"`

	// DBPath is the SQLite database file.
	DBPath string `env:"SILVER_DB_PATH" envDefault:"silver.db"`

	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string `env:"SILVER_DATABASE_URL"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// MetricsAddr is where silverd serves /metrics and /healthz.
	MetricsAddr string `env:"SILVER_METRICS_ADDR" envDefault:":9090"`

	// ExportDir receives the periodic CSV snapshots.
	ExportDir string `env:"SILVER_EXPORT_DIR" envDefault:"exports"`

	// ExportSchedule is a cron spec. Empty disables scheduled exports.
	ExportSchedule string `env:"SILVER_EXPORT_SCHEDULE" envDefault:"@every 6h"`

	// ConfirmTTL is how long a loot split waits for confirmation.
	ConfirmTTL time.Duration `env:"SILVER_CONFIRM_TTL" envDefault:"3m"`
}

// Load reads envFile if it exists, then parses the environment. Values
// already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that env parsing cannot.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			return errors.New("SILVER_DB_PATH is required for sqlite")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("SILVER_DATABASE_URL is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported SILVER_DB_DRIVER %q", c.DBDriver)
	}
	if c.ConfirmTTL <= 0 {
		return errors.New("SILVER_CONFIRM_TTL must be positive")
	}
	return nil
}

// Level maps LogLevel to a slog level, defaulting to info.
func (c Config) Level() slog.Level {
	return logging.ParseLevel(c.LogLevel)
}
