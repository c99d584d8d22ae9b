package app

import (
	"log/slog"

	"github.com/barncase/barn/pkg/cache"
	"github.com/barncase/barn/pkg/config"
	"github.com/barncase/barn/pkg/eventbus"
	"github.com/barncase/barn/pkg/repository"
	"github.com/barncase/barn/pkg/scheduler"
	"github.com/barncase/barn/pkg/service/animal"
	"github.com/barncase/barn/pkg/service/auth"
	"github.com/barncase/barn/pkg/service/farm"
	"github.com/barncase/barn/pkg/service/ledger"
	"github.com/barncase/barn/pkg/service/product"
	"github.com/barncase/barn/pkg/service/production"
	"github.com/barncase/barn/pkg/service/user"
)

// Deps contains the infrastructure the services are built on.
type Deps struct {
	Uow      repository.UnitOfWork
	EventBus eventbus.Bus
	Logger   *slog.Logger
	// Cache holds the scheduler status. May be nil.
	Cache cache.Cache
	// Close releases the database and bus connections. May be nil.
	Close func() error
}

type App struct {
	Deps   *Deps
	Config *config.App

	AuthService    *auth.Service
	UserService    *user.Service
	FarmService    *farm.Service
	AnimalService  *animal.Service
	ProductService *product.Service
	LedgerService  *ledger.Service
	Engine         *production.Engine
	Scheduler      *scheduler.Scheduler
	Activity       *Activity
}

func New(deps *Deps, cfg *config.App) *App {
	a := &App{
		Deps:   deps,
		Config: cfg,
	}
	a.setupEventBus()

	uow, bus, logger := deps.Uow, deps.EventBus, deps.Logger
	a.AuthService = auth.New(uow, cfg.Auth, logger)
	a.UserService = user.New(uow, bus, logger)
	a.FarmService = farm.New(uow, logger)
	a.AnimalService = animal.New(uow, bus, logger)
	a.ProductService = product.New(uow, bus, logger)
	a.LedgerService = ledger.New(uow, logger)
	a.Engine = production.New(uow, bus, logger)

	opts := []scheduler.Option{scheduler.WithConcurrency(cfg.Scheduler.Concurrency)}
	if cfg.Scheduler.ReconcileEvery > 0 {
		opts = append(opts, scheduler.WithReconciler(a.LedgerService, cfg.Scheduler.ReconcileEvery))
	}
	if deps.Cache != nil {
		opts = append(opts, scheduler.WithStatusStore(deps.Cache))
	}
	a.Scheduler = scheduler.New(a.Engine, a.FarmService, cfg.Scheduler.Interval, logger, opts...)
	return a
}

// Shutdown stops the scheduler and releases the dependencies.
func (a *App) Shutdown() error {
	a.Scheduler.Stop()
	if a.Deps.Close != nil {
		return a.Deps.Close()
	}
	return nil
}
