package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	shardinghandler "github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/handler"
	shardingprovider "github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/provider"
	shardingrepo "github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/repo"
	shardingservice "github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/service"
	tenantshandler "github.com/zenGate-Global/palmyra-sharding/domains/tenants/be/handler"
	tenantsrepo "github.com/zenGate-Global/palmyra-sharding/domains/tenants/be/repo"
	tenantsschema "github.com/zenGate-Global/palmyra-sharding/domains/tenants/be/schema"
	tenantsservice "github.com/zenGate-Global/palmyra-sharding/domains/tenants/be/service"
	platformconfig "github.com/zenGate-Global/palmyra-sharding/platform/go/config"
	"github.com/zenGate-Global/palmyra-sharding/platform/go/distlock"
	platformlogging "github.com/zenGate-Global/palmyra-sharding/platform/go/logging"
	platformmiddleware "github.com/zenGate-Global/palmyra-sharding/platform/go/middleware"
	"github.com/zenGate-Global/palmyra-sharding/platform/go/persistence"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShardingConfig  string        `env:"SHARDING_CONFIG" envDefault:"config/sharding.toml"`
	StoreBackend    string        `env:"STORE_BACKEND" envDefault:"postgres"` // postgres | memory
	DatabaseURL     string        `env:"DATABASE_URL"`                        // required when STORE_BACKEND=postgres
	LockDir         string        `env:"LOCK_DIR"`                            // overrides lock_dir from the sharding config
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	shardingCfg, err := platformconfig.Load(cfg.ShardingConfig)
	if err != nil {
		logger.Fatal("load sharding config", zap.Error(err))
	}

	sqliteDataDir := shardingCfg.Sqlite.DataDir
	if sqliteDataDir == "" {
		sqliteDataDir = "./.data/sqlite"
	}
	builders := shardingprovider.NewRegistry(
		shardingprovider.NewSqlServer(),
		shardingprovider.NewPostgres(),
		shardingprovider.NewSqlite(sqliteDataDir, shardingCfg.Sqlite.Extension),
	)

	var (
		store    shardingservice.Store
		links    shardingservice.TenantLinks
		registry tenantsservice.Registry
		locker   distlock.Locker
	)

	switch cfg.StoreBackend {
	case "postgres":
		if cfg.DatabaseURL == "" {
			logger.Fatal("DATABASE_URL required when STORE_BACKEND=postgres")
		}
		pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
		if err != nil {
			logger.Fatal("init postgres pool", zap.Error(err))
		}
		defer persistence.ClosePool(pool)

		directoryStore, err := persistence.NewDirectoryStore(ctx, pool)
		if err != nil {
			logger.Fatal("init directory store", zap.Error(err))
		}
		store = shardingrepo.NewPostgresStore(directoryStore)

		pgRegistry, err := tenantsrepo.NewPostgresRegistry(ctx, pool)
		if err != nil {
			logger.Fatal("init tenant registry", zap.Error(err))
		}
		registry = pgRegistry
		links = pgRegistry
		locker = distlock.NewPostgresLocker(pool)

	case "memory":
		store = shardingrepo.NewMemoryStore()
		memRegistry := tenantsrepo.NewMemoryRegistry()
		registry = memRegistry
		links = memRegistry

		lockDir := cfg.LockDir
		if lockDir == "" {
			lockDir = shardingCfg.LockDir
		}
		if lockDir == "" {
			logger.Fatal("lock dir required when STORE_BACKEND=memory")
		}
		locker = distlock.NewFileLocker(lockDir)

	default:
		logger.Fatal("invalid STORE_BACKEND (use postgres or memory)", zap.String("backend", cfg.StoreBackend))
	}

	resolver := shardingservice.NewResolver(store, shardingCfg, builders, links, shardingCfg.DefaultShardName)
	directory := shardingservice.NewDirectory(store, resolver, links, locker, logger)

	if shardingCfg.DefaultConnectionName != "" && shardingCfg.DefaultDatabaseType != "" {
		err := directory.SeedDefault(ctx, shardingservice.DatabaseInformation{
			Name:           shardingCfg.DefaultShardName,
			ConnectionName: shardingCfg.DefaultConnectionName,
			DatabaseType:   shardingCfg.DefaultDatabaseType,
		})
		if err != nil {
			logger.Fatal("seed default directory entry", zap.Error(err))
		}
	}

	schemaManager := tenantsschema.NewManager(logger)
	tenantService := tenantsservice.NewService(registry, directory, resolver, store, schemaManager, logger)

	shardingHTTPHandler := shardinghandler.New(resolver, directory, logger)
	tenantHTTPHandler := tenantshandler.New(tenantService, logger)

	rootRouter := chi.NewRouter()

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)

	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	apiRouter := chi.NewRouter()
	apiRouter.Mount("/admin/shards", shardingHTTPHandler.Routes())
	apiRouter.Mount("/admin/tenants", tenantHTTPHandler.Routes())
	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
