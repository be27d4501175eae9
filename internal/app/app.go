// Package app wires configuration, storage, caching and the catalog together.
package app

import (
	"context"
	"fmt"

	"landportal/internal/config"
	"landportal/internal/core/tx"
	"landportal/internal/domain"
	"landportal/internal/domain/catalog"
	"landportal/internal/infrastructure/cache"
	"landportal/internal/infrastructure/storage/memstore"
	"landportal/internal/infrastructure/storage/postgres"
	"landportal/pkg/logger"
)

// App holds the catalog and the storage it persists to.
type App struct {
	Catalog *catalog.Catalog
	Store   domain.Store
	Tx      tx.Manager

	pool    *postgres.Pool
	closers []func()
}

// New builds an App from cfg. The caller must Close it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Catalog: catalog.New(catalog.WithFallbackLanguage(cfg.Catalog.FallbackLanguage)),
	}

	var err error
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		mem := memstore.New()
		a.Store, a.Tx = mem, memstore.NewTxManager(mem)
	case config.DriverPostgres:
		err = a.openPostgres(ctx, cfg)
	default:
		err = fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Cache.Size > 0 {
		cached, err := cache.NewStore(a.Store, cfg.Cache.Size)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Store, a.Tx = cached, cache.NewTxManager(a.Tx, cached)

		if cfg.Cache.Listen {
			if err := a.listen(ctx, cached); err != nil {
				a.Close()
				return nil, err
			}
		}
	}

	logger.Info(ctx, "catalog ready",
		"driver", cfg.Storage.Driver,
		"cache_size", cfg.Cache.Size,
		"fallback_language", cfg.Catalog.FallbackLanguage)
	return a, nil
}

func (a *App) openPostgres(ctx context.Context, cfg *config.Config) error {
	poolCfg := postgres.DefaultPoolConfig(cfg.Storage.DSN)
	poolCfg.MaxConns = cfg.Storage.MaxConns
	poolCfg.MinConns = cfg.Storage.MinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, pool.Close)

	if cfg.Storage.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
	}

	txm := postgres.NewTxManager(pool).WithStatementTimeout(cfg.Storage.StatementTimeout)
	audit, err := postgres.NewDeleteAudit(txm)
	if err != nil {
		return err
	}
	audit.Register(a.Catalog.Hooks())

	a.Store, a.Tx = postgres.NewStore(txm), txm
	a.pool = pool
	return nil
}

func (a *App) listen(ctx context.Context, cached *cache.Store) error {
	if a.pool == nil {
		return fmt.Errorf("cache listener needs the %s driver", config.DriverPostgres)
	}
	l := cache.NewListener(a.pool, cached)
	l.Start(ctx)
	a.closers = append(a.closers, l.Stop)
	return nil
}

// Persist writes the catalog to the configured store.
func (a *App) Persist(ctx context.Context) error {
	err := a.Catalog.Persist(ctx, a.Store, a.Tx)
	if a.pool != nil {
		postgres.LogPoolStats(ctx, a.pool)
	}
	return err
}

// Hydrate loads one dataset graph from the configured store into the catalog.
func (a *App) Hydrate(ctx context.Context, datasetID string) error {
	return a.Catalog.HydrateDataset(ctx, a.Store, datasetID)
}

// Close releases storage resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
