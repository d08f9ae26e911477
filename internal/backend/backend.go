// Package backend opens the configured store for the server binaries.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/fieldlog/internal/config"
	"github.com/raphaelgruber/fieldlog/internal/db"
	"github.com/raphaelgruber/fieldlog/internal/metrics"
	"github.com/raphaelgruber/fieldlog/internal/postgres"
	"github.com/raphaelgruber/fieldlog/internal/store"
)

// Options controls optional startup steps.
type Options struct {
	// Wipe deletes all stored data before anything else. Testing only.
	Wipe bool
	// Seed inserts the sample HCP directory when it is missing.
	Seed bool
}

type wiper interface {
	WipeData(ctx context.Context) error
}

// OpenStore connects the backend named by cfg.Store, prepares its schema
// and wraps it with timing metrics. collector may be nil.
func OpenStore(ctx context.Context, cfg config.Config, opts Options, logger *slog.Logger, collector *metrics.Collector) (store.Store, error) {
	var s store.Store
	switch cfg.Store {
	case config.StoreMemory:
		s = store.NewMemory()

	case config.StoreSurrealDB:
		client, err := db.NewClient(ctx, db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect surrealdb: %w", err)
		}
		if err := client.InitSchema(ctx); err != nil {
			_ = client.Close(ctx)
			return nil, err
		}
		s = client

	case config.StorePostgres:
		pg, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		s = pg

	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	if opts.Wipe {
		if w, ok := s.(wiper); ok {
			logger.Warn("wiping store", "store", s.Name())
			if err := w.WipeData(ctx); err != nil {
				_ = s.Close(ctx)
				return nil, fmt.Errorf("wipe: %w", err)
			}
		}
	}

	if opts.Seed {
		n, err := store.Seed(ctx, s)
		if err != nil {
			_ = s.Close(ctx)
			return nil, fmt.Errorf("seed: %w", err)
		}
		if n > 0 {
			logger.Info("seeded hcp directory", "count", n)
		}
	}

	logger.Info("store ready", "store", s.Name())
	return store.WithMetrics(s, collector), nil
}
