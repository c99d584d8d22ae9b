// Package animal buys, sells and reports on animals.
package animal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/barncase/barn/pkg/authz"
	"github.com/barncase/barn/pkg/domain"
	"github.com/barncase/barn/pkg/domain/animal"
	"github.com/barncase/barn/pkg/domain/events"
	domainledger "github.com/barncase/barn/pkg/domain/ledger"
	"github.com/barncase/barn/pkg/eventbus"
	"github.com/barncase/barn/pkg/money"
	"github.com/barncase/barn/pkg/repository"
	ledgersvc "github.com/barncase/barn/pkg/service/ledger"
	"github.com/google/uuid"
)

type Service struct {
	uow    repository.UnitOfWork
	bus    eventbus.Bus
	logger *slog.Logger
	now    func() time.Time
}

func New(uow repository.UnitOfWork, bus eventbus.Bus, logger *slog.Logger) *Service {
	return &Service{
		uow:    uow,
		bus:    bus,
		logger: logger.With("service", "animal"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// BuyAnimal debits the species price from userID and places a new animal
// on farmID, which userID must own.
func (s *Service) BuyAnimal(
	ctx context.Context,
	userID, farmID uuid.UUID,
	species animal.Species,
) (*animal.Animal, error) {
	log := s.logger.With("context", "BuyAnimal", "userID", userID, "farmID", farmID, "species", species)
	log.Debug("BuyAnimal called")

	spec, ok := animal.SpecFor(species)
	if !ok {
		log.Error("BuyAnimal failed", "error", domain.ErrUnknownSpecies)
		return nil, domain.ErrUnknownSpecies
	}

	now := s.now()
	var a *animal.Animal
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		farms, err := uow.FarmRepository()
		if err != nil {
			return fmt.Errorf("failed to get farm repository: %w", err)
		}
		f, err := farms.Get(ctx, farmID)
		if err != nil {
			return err
		}
		if f.OwnerID != userID {
			return domain.ErrForbidden
		}

		users, err := uow.UserRepository()
		if err != nil {
			return fmt.Errorf("failed to get user repository: %w", err)
		}
		u, err := users.Get(ctx, userID)
		if err != nil {
			return err
		}

		a, err = animal.New(farmID, species, now)
		if err != nil {
			return err
		}
		if _, err := ledgersvc.Apply(ctx, uow, u, domainledger.PurchaseAnimal, spec.Price, a.ID.String(), now); err != nil {
			return err
		}

		animals, err := uow.AnimalRepository()
		if err != nil {
			return fmt.Errorf("failed to get animal repository: %w", err)
		}
		return animals.Create(ctx, a)
	})
	if err != nil {
		log.Error("BuyAnimal failed", "error", err)
		return nil, err
	}
	log.Info("BuyAnimal successful", "animalID", a.ID, "price", spec.Price)

	s.emit(ctx, &events.AnimalPurchased{
		UserID:   userID,
		FarmID:   farmID,
		AnimalID: a.ID,
		Species:  string(species),
		Price:    spec.Price,
		At:       now,
	})
	return a, nil
}

// SellAnimal credits userID with the animal's sale price and removes it.
// Products it made stay on the farm.
func (s *Service) SellAnimal(ctx context.Context, userID, animalID uuid.UUID) (money.Money, error) {
	log := s.logger.With("context", "SellAnimal", "userID", userID, "animalID", animalID)
	log.Debug("SellAnimal called")

	now := s.now()
	var sold *animal.Animal
	var price money.Money
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		animals, err := uow.AnimalRepository()
		if err != nil {
			return fmt.Errorf("failed to get animal repository: %w", err)
		}
		a, err := animals.Get(ctx, animalID)
		if err != nil {
			return err
		}
		farms, err := uow.FarmRepository()
		if err != nil {
			return fmt.Errorf("failed to get farm repository: %w", err)
		}
		f, err := farms.Get(ctx, a.FarmID)
		if err != nil {
			return err
		}
		if f.OwnerID != userID {
			return domain.ErrForbidden
		}

		users, err := uow.UserRepository()
		if err != nil {
			return fmt.Errorf("failed to get user repository: %w", err)
		}
		u, err := users.Get(ctx, userID)
		if err != nil {
			return err
		}

		price = a.SalePrice()
		if _, err := ledgersvc.Apply(ctx, uow, u, domainledger.SellAnimal, price, a.ID.String(), now); err != nil {
			return err
		}
		sold = a
		return animals.Delete(ctx, a.ID)
	})
	if err != nil {
		log.Error("SellAnimal failed", "error", err)
		return 0, err
	}
	log.Info("SellAnimal successful", "price", price, "alive", sold.IsAlive)

	s.emit(ctx, &events.AnimalSold{
		UserID:   userID,
		AnimalID: animalID,
		Species:  string(sold.Species),
		Amount:   price,
		Alive:    sold.IsAlive,
		At:       now,
	})
	return price, nil
}

// GetAnimalsByFarm lists every animal on farmID. Admins or owner.
func (s *Service) GetAnimalsByFarm(ctx context.Context, caller authz.Caller, farmID uuid.UUID) ([]*animal.Animal, error) {
	farms, err := s.uow.FarmRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get farm repository: %w", err)
	}
	f, err := farms.Get(ctx, farmID)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(caller, authz.OwnedBy(f.OwnerID), authz.Admin, authz.Owner); err != nil {
		return nil, err
	}
	animals, err := s.uow.AnimalRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get animal repository: %w", err)
	}
	return animals.ListByFarm(ctx, farmID)
}

// GetAnimalCountsForUser counts userID's live animals per species across
// all their farms. Every known species is present, possibly with zero.
func (s *Service) GetAnimalCountsForUser(
	ctx context.Context,
	caller authz.Caller,
	userID uuid.UUID,
) (map[animal.Species]int, error) {
	if err := authz.Require(caller, authz.OwnedBy(userID), authz.Admin, authz.Owner); err != nil {
		return nil, err
	}
	users, err := s.uow.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository: %w", err)
	}
	if _, err := users.Get(ctx, userID); err != nil {
		return nil, err
	}
	animals, err := s.uow.AnimalRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get animal repository: %w", err)
	}
	counts, err := animals.CountAliveBySpecies(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[animal.Species]int, len(counts)+3)
	for _, sp := range animal.AllSpecies() {
		out[sp] = 0
	}
	for sp, n := range counts {
		out[sp] = n
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, e events.Event) {
	if err := s.bus.Emit(ctx, e); err != nil {
		s.logger.Warn("failed to emit event", "type", e.Type(), "error", err)
	}
}
