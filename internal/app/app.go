// Package app wires configuration into a catalog and an engine. Both
// entry points start here.
package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"permit-fees/adapters/hcl"
	"permit-fees/core/catalog"
	"permit-fees/core/engine"
	"permit-fees/core/match"
	"permit-fees/db"
	"permit-fees/internal/config"
)

// Version is the release version reported by the CLI and the API
const Version = "0.1.0"

// Catalog is an opened catalog source
type Catalog struct {
	catalog.Accessor

	// Store is set for SQL drivers
	Store *db.Store
}

// Close releases the underlying database, if any
func (c *Catalog) Close() error {
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}

var _ io.Closer = (*Catalog)(nil)

// OpenCatalog opens the configured catalog source and wraps it in a TTL
// cache when caching is enabled
func OpenCatalog(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Catalog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	out := &Catalog{}
	switch cfg.Catalog.Driver {
	case config.DriverHCL:
		snapshot, err := hcl.NewLoader(logger.Named("catalog")).Load(cfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
		out.Accessor = catalog.NewMemory(snapshot)
	case config.DriverSQLite, config.DriverPostgres:
		store, err := db.Open(ctx, cfg.Catalog.Driver, cfg.Catalog.DSN, logger.Named("db"))
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		out.Store = store
		out.Accessor = store
	}

	if ttl := cfg.Catalog.CacheTTL.Std(); ttl > 0 {
		out.Accessor = catalog.NewCached(out.Accessor, ttl)
	}
	logger.Debug("catalog opened",
		zap.String("driver", cfg.Catalog.Driver),
		zap.Duration("cache_ttl", cfg.Catalog.CacheTTL.Std()))
	return out, nil
}

// NewEngine builds an engine over acc that reports skipped and flagged
// fees to logger
func NewEngine(cfg *config.Config, acc catalog.Accessor, logger *zap.Logger) *engine.Engine {
	opts := []engine.Option{
		engine.WithObserver(engine.NewLogObserver(logger.Named("engine"))),
		engine.WithMatching(match.Options{SubtypeContainment: cfg.Matching.SubtypeContainment}),
	}
	if d := cfg.Catalog.FetchTimeout.Std(); d > 0 {
		opts = append(opts, engine.WithFetchTimeout(d))
	}
	return engine.New(acc, opts...)
}
