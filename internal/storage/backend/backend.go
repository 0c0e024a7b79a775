// Package backend opens the configured storage backend.
package backend

import (
	"context"
	"fmt"

	"github.com/mmynk/silverledger/internal/config"
	"github.com/mmynk/silverledger/internal/storage/postgres"
	"github.com/mmynk/silverledger/internal/storage/sqlite"
	"github.com/mmynk/silverledger/internal/storage/sqlstore"
)

// Open connects to and migrates the database named by cfg.
func Open(ctx context.Context, cfg config.Config) (*sqlstore.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		return sqlite.New(cfg.DBPath)
	case "postgres":
		return postgres.New(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}
