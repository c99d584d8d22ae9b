package initializer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/barncase/barn/infra"
	infra_cache "github.com/barncase/barn/infra/cache"
	infra_eventbus "github.com/barncase/barn/infra/eventbus"
	"github.com/barncase/barn/infra/memory"
	"github.com/barncase/barn/infra/migrations"
	infra_repository "github.com/barncase/barn/infra/repository"
	"github.com/barncase/barn/pkg/app"
	"github.com/barncase/barn/pkg/cache"
	"github.com/barncase/barn/pkg/config"
	"github.com/barncase/barn/pkg/domain/events"
	"github.com/barncase/barn/pkg/eventbus"
	"github.com/barncase/barn/pkg/repository"
)

// InitializeDependencies initializes all the application dependencies
func InitializeDependencies(cfg *config.App) (*app.Deps, error) {
	logger := setupLogger(cfg.Log)
	deps := &app.Deps{Logger: logger}
	var closers []io.Closer

	uow, dbCloser, err := initStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	deps.Uow = uow
	if dbCloser != nil {
		closers = append(closers, dbCloser)
	}

	bus, err := initEventBus(cfg, logger)
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	deps.EventBus = bus
	if c, ok := bus.(io.Closer); ok {
		closers = append(closers, c)
	}

	c, err := initCache(cfg, logger)
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	deps.Cache = c
	if cl, ok := c.(io.Closer); ok {
		closers = append(closers, cl)
	}

	deps.Close = func() error {
		return closeAll(closers)
	}
	return deps, nil
}

// closeAll closes in reverse order of creation.
func closeAll(closers []io.Closer) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initStore opens postgres and applies migrations, or falls back to the
// in-memory store when no DATABASE_URL is set.
func initStore(cfg *config.App, logger *slog.Logger) (repository.UnitOfWork, io.Closer, error) {
	if cfg.DB.UsesMemory() {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		return memory.NewUoW(memory.New()), nil, nil
	}

	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.DB.Migrate {
		if err := migrations.Up(sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		logger.Info("Database migrations applied")
	}
	return infra_repository.NewUoW(db), sqlDB, nil
}

// initEventBus selects the bus driver. An explicit driver with missing
// settings is an error; a broker that can't be reached degrades to the
// in-process bus.
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
			return nil, errors.New("event bus driver redis requires REDIS_URL")
		}
		bus, err := infra_eventbus.NewWithRedis(cfg.Redis.URL, cfg.Redis.Stream, cfg.Redis.Group, events.Factories(), logger)
		if err != nil {
			logger.Warn("Redis event bus unavailable, falling back to memory", "error", err)
			return infra_eventbus.NewWithMemory(logger), nil
		}
		return bus, nil

	case "amqp":
		if cfg.AMQP == nil || cfg.AMQP.URL == "" {
			return nil, errors.New("event bus driver amqp requires AMQP_URL")
		}
		bus, err := infra_eventbus.NewWithAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange, events.Factories(), logger)
		if err != nil {
			logger.Warn("AMQP event bus unavailable, falling back to memory", "error", err)
			return infra_eventbus.NewWithMemory(logger), nil
		}
		return bus, nil

	default:
		return nil, fmt.Errorf("unsupported event bus driver %q", driver)
	}
}

// initCache follows the same rules as initEventBus.
func initCache(cfg *config.App, logger *slog.Logger) (cache.Cache, error) {
	driver, prefix := "", ""
	if cfg.Cache != nil {
		driver = strings.ToLower(strings.TrimSpace(cfg.Cache.Driver))
		prefix = cfg.Cache.Prefix
	}

	switch driver {
	case "", "memory":
		return infra_cache.NewMemoryCache(), nil

	case "redis":
		if cfg.Redis == nil || cfg.Redis.URL == "" {
			return nil, errors.New("cache driver redis requires REDIS_URL")
		}
		c, err := infra_cache.NewRedisCache(cfg.Redis.URL, prefix, logger)
		if err != nil {
			logger.Warn("Redis cache unavailable, falling back to memory", "error", err)
			return infra_cache.NewMemoryCache(), nil
		}
		return c, nil

	default:
		return nil, fmt.Errorf("unsupported cache driver %q", driver)
	}
}
