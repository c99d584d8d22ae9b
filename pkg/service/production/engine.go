// Package production advances animal lifecycles and records what they make.
package production

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/barncase/barn/pkg/authz"
	"github.com/barncase/barn/pkg/domain/animal"
	"github.com/barncase/barn/pkg/domain/events"
	"github.com/barncase/barn/pkg/domain/product"
	"github.com/barncase/barn/pkg/eventbus"
	"github.com/barncase/barn/pkg/repository"
	"github.com/google/uuid"
)

// Result is what one tick did to a farm.
type Result struct {
	Created int
	Died    int
}

type Engine struct {
	uow    repository.UnitOfWork
	bus    eventbus.Bus
	logger *slog.Logger
	now    func() time.Time
}

func New(uow repository.UnitOfWork, bus eventbus.Bus, logger *slog.Logger) *Engine {
	return &Engine{
		uow:    uow,
		bus:    bus,
		logger: logger.With("service", "production"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source used by TickNow.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Tick advances every live animal on farmID to now and returns the number of
// products created. All changes for the farm commit together.
func (e *Engine) Tick(ctx context.Context, farmID uuid.UUID, now time.Time) (int, error) {
	res, err := e.tick(ctx, farmID, now)
	return res.Created, err
}

// TickNow is an admin-triggered Tick at the current time.
func (e *Engine) TickNow(ctx context.Context, caller authz.Caller, farmID uuid.UUID) (int, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return 0, err
	}
	return e.Tick(ctx, farmID, e.now())
}

func (e *Engine) tick(ctx context.Context, farmID uuid.UUID, now time.Time) (Result, error) {
	log := e.logger.With("context", "Tick", "farmID", farmID)
	log.Debug("Tick called", "now", now)

	var res Result
	err := e.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		res = Result{}
		farms, err := uow.FarmRepository()
		if err != nil {
			return fmt.Errorf("failed to get farm repository: %w", err)
		}
		if _, err := farms.Get(ctx, farmID); err != nil {
			return err
		}
		animals, err := uow.AnimalRepository()
		if err != nil {
			return fmt.Errorf("failed to get animal repository: %w", err)
		}
		products, err := uow.ProductRepository()
		if err != nil {
			return fmt.Errorf("failed to get product repository: %w", err)
		}

		alive, err := animals.ListAliveByFarm(ctx, farmID)
		if err != nil {
			return err
		}
		for _, a := range alive {
			out := a.Advance(now)
			if !out.Changed {
				continue
			}
			if err := animals.Update(ctx, a); err != nil {
				return err
			}
			if out.Died {
				res.Died++
				continue
			}
			if !out.Produced {
				continue
			}
			t, batch, known := animal.ProductionFor(a.Species)
			if !known {
				log.Warn("Unknown species, producing fallback batch", "animalID", a.ID, "species", a.Species, "product", t)
			}
			if err := products.Create(ctx, product.New(farmID, a.ID, t, batch, now)); err != nil {
				return err
			}
			res.Created++
		}
		return nil
	})
	if err != nil {
		log.Error("Tick failed", "error", err)
		return Result{}, err
	}
	log.Debug("Tick successful", "created", res.Created, "died", res.Died)

	if res.Created > 0 || res.Died > 0 {
		if err := e.bus.Emit(ctx, &events.ProductionTicked{
			FarmID:  farmID,
			Created: res.Created,
			Died:    res.Died,
			At:      now,
		}); err != nil {
			log.Warn("failed to emit event", "type", events.EventTypeProductionTicked, "error", err)
		}
	}
	return res, nil
}
