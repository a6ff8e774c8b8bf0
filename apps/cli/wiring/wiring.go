// Package wiring assembles the sharding services for CLI commands, which
// always work against the Postgres-backed stores.
package wiring

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	shardingprovider "github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/provider"
	shardingrepo "github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/repo"
	shardingservice "github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/service"
	tenantsrepo "github.com/zenGate-Global/palmyra-sharding/domains/tenants/be/repo"
	tenantsschema "github.com/zenGate-Global/palmyra-sharding/domains/tenants/be/schema"
	tenantsservice "github.com/zenGate-Global/palmyra-sharding/domains/tenants/be/service"
	platformconfig "github.com/zenGate-Global/palmyra-sharding/platform/go/config"
	"github.com/zenGate-Global/palmyra-sharding/platform/go/distlock"
	platformlogging "github.com/zenGate-Global/palmyra-sharding/platform/go/logging"
	"github.com/zenGate-Global/palmyra-sharding/platform/go/persistence"
)

// Services bundles everything a CLI command needs.
type Services struct {
	Config    platformconfig.Config
	Resolver  *shardingservice.Resolver
	Directory *shardingservice.Directory
	Tenants   *tenantsservice.Service
	Logger    *zap.Logger
}

// Build wires the services against the given platform database. The
// returned cleanup closes the pool and flushes the logger.
func Build(ctx context.Context, databaseURL, configPath string) (*Services, func(), error) {
	if databaseURL == "" {
		return nil, nil, fmt.Errorf("database URL is required")
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "shardctl",
		Level:     "warn",
		Console:   true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	cfg, err := platformconfig.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
	if err != nil {
		return nil, nil, fmt.Errorf("init pool: %w", err)
	}
	cleanup := func() {
		persistence.ClosePool(pool)
		_ = logger.Sync()
	}

	directoryStore, err := persistence.NewDirectoryStore(ctx, pool)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init directory store: %w", err)
	}
	store := shardingrepo.NewPostgresStore(directoryStore)

	registry, err := tenantsrepo.NewPostgresRegistry(ctx, pool)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init tenant registry: %w", err)
	}

	sqliteDataDir := cfg.Sqlite.DataDir
	if sqliteDataDir == "" {
		sqliteDataDir = "./.data/sqlite"
	}
	builders := shardingprovider.NewRegistry(
		shardingprovider.NewSqlServer(),
		shardingprovider.NewPostgres(),
		shardingprovider.NewSqlite(sqliteDataDir, cfg.Sqlite.Extension),
	)

	resolver := shardingservice.NewResolver(store, cfg, builders, registry, cfg.DefaultShardName)
	directory := shardingservice.NewDirectory(store, resolver, registry, distlock.NewPostgresLocker(pool), logger)
	tenants := tenantsservice.NewService(registry, directory, resolver, store, tenantsschema.NewManager(logger), logger)

	return &Services{
		Config:    cfg,
		Resolver:  resolver,
		Directory: directory,
		Tenants:   tenants,
		Logger:    logger,
	}, cleanup, nil
}
