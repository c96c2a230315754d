package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manara-erp/manara/internal/platform/db"
	"github.com/manara-erp/manara/internal/store"
)

// Storage is the opened persistence backend.
type Storage struct {
	Repository store.Repository
	// Pool is set for the postgres driver only.
	Pool  *pgxpool.Pool
	close func() error
}

// Close releases the backend.
func (s *Storage) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStorage opens the repository selected by STORE_DRIVER and ensures its
// schema exists.
func OpenStorage(ctx context.Context, cfg *Config, logger *slog.Logger) (*Storage, error) {
	switch cfg.StoreDriver {
	case DriverPostgres:
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			return nil, err
		}
		repo := store.NewPostgresRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("ledger storage ready", slog.String("driver", DriverPostgres))
		return &Storage{Repository: repo, Pool: pool, close: func() error { pool.Close(); return nil }}, nil
	case DriverSQLite:
		repo, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("ledger storage ready", slog.String("driver", DriverSQLite), slog.String("path", cfg.SQLitePath))
		return &Storage{Repository: repo, close: repo.Close}, nil
	case DriverMemory:
		logger.Warn("ledger storage is in memory; state is lost on restart")
		return &Storage{Repository: store.NewMemoryRepository()}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
