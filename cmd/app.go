package cmd

import (
	"context"
	"fmt"

	"event-catalog/core/catalog"
	"event-catalog/core/config"
	"event-catalog/core/database"
	"event-catalog/core/kv"
	"event-catalog/core/lock"
	"event-catalog/core/logger"
	"event-catalog/core/metrics"
	"event-catalog/core/reconcile"
	"event-catalog/core/storage"
	"event-catalog/feature/runs"
	"event-catalog/feature/sources"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds the dependencies shared by every command.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	catalog *catalog.Store
	storage storage.Client
	redis   *redis.Client
	metrics *metrics.Recorder
}

// bootstrap loads configuration and connects the catalog. Storage and Redis are
// optional: storage is dropped with a warning when unreachable, Redis is only
// connected when configured and must then be reachable.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zap.ReplaceGlobals(l)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	store := catalog.NewStore(db)
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate catalog: %w", err)
	}

	a := &app{cfg: cfg, logger: l, db: db, catalog: store, metrics: metrics.New()}

	if cfg.Storage.Endpoint != "" {
		client, err := storage.NewClient(cfg.Storage)
		if err == nil {
			err = storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region)
		}
		if err != nil {
			l.Warn("Storage unavailable, bucket source and run archive disabled", zap.Error(err))
		} else {
			a.storage = client
		}
	}

	if cfg.Redis.Enabled() {
		rdb, err := kv.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.redis = rdb
	}

	return a, nil
}

// Close releases connections and flushes the logger.
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logger.Sync()
}

func (a *app) sources() ([]reconcile.Source, error) {
	srcs, err := sources.FromConfig(a.cfg.Sources, a.storage, a.cfg.Storage.Bucket, a.logger)
	if err != nil {
		return nil, fmt.Errorf("invalid sources: %w", err)
	}
	if len(srcs) == 0 {
		a.logger.Warn("No sources configured, runs will only sweep")
	}
	return srcs, nil
}

func (a *app) engine(srcs []reconcile.Source) *reconcile.Engine {
	return reconcile.NewEngine(a.catalog, srcs, a.cfg.Reconcile, a.logger, reconcile.WithObserver(a.metrics))
}

// runner wraps engine with the run lock and publishers that are available.
func (a *app) runner(engine *reconcile.Engine) *runs.Runner {
	var opts []runs.RunnerOption
	if a.redis != nil {
		ttl := a.cfg.Runs.LockTTL
		opts = append(opts,
			runs.WithLock(lock.New(a.redis, a.cfg.Redis.Key("run-lock"), ttl), ttl),
			runs.WithPublishers(runs.NewRedisPublisher(a.redis, a.cfg.Redis.Key(a.cfg.Runs.Channel))),
		)
	}
	if a.storage != nil && a.cfg.Runs.ArchivePrefix != "" {
		opts = append(opts, runs.WithPublishers(
			runs.NewArchive(a.storage, a.cfg.Storage.Bucket, a.cfg.Runs.ArchivePrefix, a.cfg.Runs.ArchiveRetention, a.logger),
		))
	}
	return runs.NewRunner(engine, a.logger, opts...)
}
