// Package backend opens the encounter store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combat-tracker/internal/config"
	"github.com/cory-johannsen/combat-tracker/internal/storage"
	"github.com/cory-johannsen/combat-tracker/internal/storage/memory"
	"github.com/cory-johannsen/combat-tracker/internal/storage/postgres"
	"github.com/cory-johannsen/combat-tracker/internal/storage/sqlite"
)

// Open returns the store named by cfg.Driver.
//
// Precondition: cfg must have passed config.Config.Validate.
// Postcondition: the caller owns the store and must Close it.
func Open(ctx context.Context, cfg config.StorageConfig, db config.DatabaseConfig, logger *zap.Logger) (storage.Store, error) {
	start := time.Now()
	var (
		s   storage.Store
		err error
	)
	switch cfg.Driver {
	case config.DriverMemory:
		s = memory.NewStore()
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating sqlite directory %s: %w", dir, err)
			}
		}
		s, err = sqlite.Open(cfg.SQLitePath)
	case config.DriverPostgres:
		var pool *postgres.Pool
		pool, err = postgres.NewPool(ctx, db)
		if err == nil {
			s = postgres.NewEncounterRepository(pool)
		}
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Driver, err)
	}
	logger.Info("encounter store opened",
		zap.String("driver", cfg.Driver),
		zap.Duration("elapsed", time.Since(start)),
	)
	return s, nil
}
