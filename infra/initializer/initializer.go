package initializer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/vatm/infra"
	infra_cache "github.com/amirasaad/vatm/infra/cache"
	infra_eventbus "github.com/amirasaad/vatm/infra/eventbus"
	infra_repository "github.com/amirasaad/vatm/infra/repository"
	"github.com/amirasaad/vatm/infra/repository/memory"
	"github.com/amirasaad/vatm/pkg/app"
	"github.com/amirasaad/vatm/pkg/cache"
	"github.com/amirasaad/vatm/pkg/config"
	"github.com/amirasaad/vatm/pkg/eventbus"
	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// InitializeDependencies initializes all the application dependencies
func InitializeDependencies(cfg *config.App) (
	deps *app.Deps,
	err error,
) {
	deps = &app.Deps{}
	logger := setupLogger(cfg.Log)
	deps.Logger = logger

	defer func() {
		if err != nil {
			(&app.App{Deps: deps}).Close()
			deps = nil
		}
	}()

	// Initialize store
	if cfg.DB.Url == "" {
		logger.Warn("DATABASE_URL is empty, balances live in memory and are lost on restart")
		deps.Uow = memory.NewUoW(memory.NewStore())
	} else {
		db, dbErr := infra.NewDBConnection(cfg.DB, cfg.Env)
		if dbErr != nil {
			logger.Error("Failed to initialize database", "error", dbErr)
			return nil, dbErr
		}
		if sqlDB, e := db.DB(); e == nil {
			deps.Closers = append(deps.Closers, sqlDB.Close)
		}
		if cfg.DB.Migrate {
			if err = infra.RunMigrations(db, logger); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		deps.Uow = infra_repository.NewUoW(db)
	}

	// Initialize event bus
	bus, err := initEventBus(cfg, logger)
	if err != nil {
		return nil, err
	}
	deps.EventBus = bus
	if c, ok := bus.(interface{ Close() error }); ok {
		deps.Closers = append(deps.Closers, c.Close)
	}

	// Initialize idempotency response cache
	if cfg.Idempotency.Enabled {
		respCache, closeFn, cacheErr := initResponseCache(cfg, logger)
		if cacheErr != nil {
			return nil, cacheErr
		}
		deps.ResponseCache = respCache
		deps.Closers = append(deps.Closers, closeFn)
	}

	return deps, nil
}

// initEventBus selects the bus named by EVENTBUS_DRIVER. An explicit broker
// driver without an address is a configuration error; an unreachable broker
// degrades to the in-process bus.
func initEventBus(cfg *config.App, logger *slog.Logger) (eventbus.Bus, error) {
	driver := ""
	if cfg.EventBus != nil {
		driver = strings.ToLower(strings.TrimSpace(cfg.EventBus.Driver))
	}

	switch driver {
	case "", "memory":
		return infra_eventbus.NewWithMemory(logger), nil
	case "redis":
		if cfg.Redis == nil || cfg.Redis.URL == "" {
			return nil, fmt.Errorf("event bus driver redis requires REDIS_URL")
		}
		bus, err := infra_eventbus.NewWithRedis(cfg.Redis.URL, logger, &infra_eventbus.RedisEventBusConfig{
			StreamPrefix: strings.TrimSuffix(cfg.Redis.KeyPrefix, ":") + ".events",
			Group:        "vatm",
			MaxLen:       100_000,
		})
		if err != nil {
			logger.Warn("Redis event bus unavailable, falling back to memory", "error", err)
			return infra_eventbus.NewWithMemory(logger), nil
		}
		return bus, nil
	case "kafka":
		if cfg.Kafka == nil || strings.TrimSpace(cfg.Kafka.Brokers) == "" {
			return nil, fmt.Errorf("event bus driver kafka requires KAFKA_BROKERS")
		}
		bus, err := infra_eventbus.NewWithKafka(cfg.Kafka.Brokers, logger, &infra_eventbus.KafkaEventBusConfig{
			GroupID:       cfg.Kafka.GroupID,
			TopicPrefix:   cfg.Kafka.TopicPrefix,
			SASLUsername:  cfg.Kafka.SASLUsername,
			SASLPassword:  cfg.Kafka.SASLPassword,
			TLSEnabled:    cfg.Kafka.TLSEnabled,
			TLSSkipVerify: cfg.Kafka.TLSSkipVerify,
		})
		if err != nil {
			logger.Warn("Kafka event bus unavailable, falling back to memory", "error", err)
			return infra_eventbus.NewWithMemory(logger), nil
		}
		return bus, nil
	default:
		return nil, fmt.Errorf("unsupported event bus driver %q", driver)
	}
}

func initResponseCache(cfg *config.App, logger *slog.Logger) (cache.ResponseCache, func() error, error) {
	memoryCache := func() (cache.ResponseCache, func() error, error) {
		c := infra_cache.NewMemoryCache()
		return c, func() error { c.Close(); return nil }, nil
	}

	switch strings.ToLower(cfg.Idempotency.Store) {
	case "", "memory":
		return memoryCache()
	case "redis":
		if cfg.Redis == nil || cfg.Redis.URL == "" {
			return nil, nil, fmt.Errorf("idempotency store redis requires REDIS_URL")
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		c, err := infra_cache.NewRedisCache(ctx, cfg.Redis.URL, cfg.Redis.KeyPrefix, logger, func(o *redis.Options) {
			if cfg.Redis.PoolSize > 0 {
				o.PoolSize = cfg.Redis.PoolSize
			}
			o.DialTimeout = cfg.Redis.DialTimeout
			o.ReadTimeout = cfg.Redis.ReadTimeout
			o.WriteTimeout = cfg.Redis.WriteTimeout
		})
		if err != nil {
			logger.Warn("Redis idempotency store unavailable, falling back to memory", "error", err)
			return memoryCache()
		}
		return c, c.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported idempotency store %q", cfg.Idempotency.Store)
	}
}
