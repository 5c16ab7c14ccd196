// Package storage selects and opens the configured snapshot backend.
package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/finnkarter/gameosdpas/internal/config"
	"github.com/finnkarter/gameosdpas/internal/game/engine"
	"github.com/finnkarter/gameosdpas/internal/storage/file"
	"github.com/finnkarter/gameosdpas/internal/storage/postgres"
	"github.com/finnkarter/gameosdpas/internal/storage/sqlite"
)

// Backend is an opened snapshot store plus its lifecycle hooks.
type Backend struct {
	engine.Persister
	// Name is the configured backend name.
	Name string
	// Health reports whether the store is reachable.
	Health func(ctx context.Context) error
	// Close releases the store's resources.
	Close func() error
}

// Open builds the backend named by cfg.Storage.Backend.
//
// Precondition: cfg must have passed Validate.
// Postcondition: Returns a ready Backend whose Health and Close are non-nil, or an error.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Backend, error) {
	start := time.Now()
	var b *Backend
	switch cfg.Storage.Backend {
	case config.BackendFile:
		s, err := file.New(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		b = &Backend{
			Persister: s,
			Health:    func(context.Context) error { return nil },
			Close:     func() error { return nil },
		}
	case config.BackendSQLite:
		s, err := sqlite.Open(ctx, cfg.Storage.Path, cfg.Storage.Slot)
		if err != nil {
			return nil, err
		}
		b = &Backend{
			Persister: s,
			Health:    s.Ping,
			Close:     s.Close,
		}
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		timeout := cfg.Storage.SaveTimeout
		b = &Backend{
			Persister: postgres.NewSnapshotRepository(pool.DB(), cfg.Storage.Slot),
			Health:    func(ctx context.Context) error { return pool.Health(ctx, timeout) },
			Close:     func() error { pool.Close(); return nil },
		}
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	b.Name = cfg.Storage.Backend

	logger.Info("storage opened",
		zap.String("backend", b.Name),
		zap.String("slot", cfg.Storage.Slot),
		zap.Duration("elapsed", time.Since(start)),
	)
	return b, nil
}
