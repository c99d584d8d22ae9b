// Package farm manages farms and the read models around them.
package farm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/barncase/barn/pkg/authz"
	"github.com/barncase/barn/pkg/domain/animal"
	"github.com/barncase/barn/pkg/domain/farm"
	"github.com/barncase/barn/pkg/domain/product"
	"github.com/barncase/barn/pkg/repository"
	"github.com/google/uuid"
)

// Details is a farm with its animals and products.
type Details struct {
	*farm.Farm
	Animals  []*animal.Animal   `json:"animals"`
	Products []*product.Product `json:"products"`
}

type Service struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
}

func New(uow repository.UnitOfWork, logger *slog.Logger) *Service {
	return &Service{uow: uow, logger: logger.With("service", "farm")}
}

// Create adds a farm owned by the caller.
func (s *Service) Create(ctx context.Context, caller authz.Caller, name string) (*farm.Farm, error) {
	log := s.logger.With("context", "Create", "ownerID", caller.UserID)
	log.Debug("Create called", "name", name)
	f, err := farm.New(name, caller.UserID)
	if err != nil {
		return nil, err
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.FarmRepository()
		if err != nil {
			return fmt.Errorf("failed to get farm repository: %w", err)
		}
		return repo.Create(ctx, f)
	})
	if err != nil {
		log.Error("Create failed", "error", err)
		return nil, err
	}
	log.Info("Create successful", "farmID", f.ID)
	return f, nil
}

// Get returns the farm with animals and products. Admins or owner.
func (s *Service) Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Details, error) {
	f, err := s.authorized(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	animals, err := s.uow.AnimalRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get animal repository: %w", err)
	}
	products, err := s.uow.ProductRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get product repository: %w", err)
	}
	as, err := animals.ListByFarm(ctx, id)
	if err != nil {
		return nil, err
	}
	ps, err := products.ListByFarm(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Details{Farm: f, Animals: as, Products: ps}, nil
}

// Mine lists the caller's farms.
func (s *Service) Mine(ctx context.Context, caller authz.Caller) ([]*farm.Farm, error) {
	repo, err := s.uow.FarmRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get farm repository: %w", err)
	}
	return repo.ListByOwner(ctx, caller.UserID)
}

// List returns every farm. Admins only.
func (s *Service) List(ctx context.Context, caller authz.Caller) ([]*farm.Farm, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return nil, err
	}
	repo, err := s.uow.FarmRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get farm repository: %w", err)
	}
	return repo.List(ctx)
}

// Delete removes the farm with its animals and unsold products. Admins or owner.
func (s *Service) Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	log := s.logger.With("context", "Delete", "farmID", id)
	log.Debug("Delete called")
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.FarmRepository()
		if err != nil {
			return fmt.Errorf("failed to get farm repository: %w", err)
		}
		f, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := authz.Require(caller, authz.OwnedBy(f.OwnerID), authz.Admin, authz.Owner); err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		log.Error("Delete failed", "error", err)
		return err
	}
	log.Info("Delete successful")
	return nil
}

// Products lists the farm's products, sold ones included. Admins or owner.
func (s *Service) Products(ctx context.Context, caller authz.Caller, id uuid.UUID) ([]*product.Product, error) {
	if _, err := s.authorized(ctx, caller, id); err != nil {
		return nil, err
	}
	repo, err := s.uow.ProductRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get product repository: %w", err)
	}
	return repo.ListByFarm(ctx, id)
}

// ListFarmIDs returns every farm id.
func (s *Service) ListFarmIDs(ctx context.Context) ([]uuid.UUID, error) {
	repo, err := s.uow.FarmRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get farm repository: %w", err)
	}
	return repo.ListIDs(ctx)
}

func (s *Service) authorized(ctx context.Context, caller authz.Caller, id uuid.UUID) (*farm.Farm, error) {
	repo, err := s.uow.FarmRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get farm repository: %w", err)
	}
	f, err := repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(caller, authz.OwnedBy(f.OwnerID), authz.Admin, authz.Owner); err != nil {
		return nil, err
	}
	return f, nil
}
