// Package user manages accounts and their ledger-backed balance adjustments.
package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/barncase/barn/pkg/authz"
	"github.com/barncase/barn/pkg/domain"
	"github.com/barncase/barn/pkg/domain/events"
	domainledger "github.com/barncase/barn/pkg/domain/ledger"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/barncase/barn/pkg/eventbus"
	"github.com/barncase/barn/pkg/money"
	"github.com/barncase/barn/pkg/repository"
	ledgersvc "github.com/barncase/barn/pkg/service/ledger"
	"github.com/google/uuid"
)

const (
	DefaultTake = 50
	MaxTake     = 200
)

// Update carries optional changes; nil fields stay as they are.
type Update struct {
	Name *string
	Role *user.Role
}

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
		logger: logger.With("service", "user"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ClampPage bounds skip to >= 0 and take to 1..MaxTake; zero take means
// DefaultTake.
func ClampPage(skip, take int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	switch {
	case take == 0:
		take = DefaultTake
	case take < 1:
		take = 1
	case take > MaxTake:
		take = MaxTake
	}
	return skip, take
}

// List pages through users. Admins only.
func (s *Service) List(ctx context.Context, caller authz.Caller, skip, take int) ([]*user.User, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return nil, err
	}
	skip, take = ClampPage(skip, take)
	repo, err := s.uow.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository: %w", err)
	}
	return repo.List(ctx, skip, take)
}

// Get returns one user. Admins or the user only.
func (s *Service) Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*user.User, error) {
	if err := authz.Require(caller, authz.OwnedBy(id), authz.Admin, authz.Owner); err != nil {
		return nil, err
	}
	repo, err := s.uow.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository: %w", err)
	}
	return repo.Get(ctx, id)
}

// Create adds a user with an opening balance recorded as a deposit.
// Admins only.
func (s *Service) Create(
	ctx context.Context,
	caller authz.Caller,
	name, password string,
	role user.Role,
	opening money.Money,
) (*user.User, error) {
	log := s.logger.With("context", "Create", "name", name)
	log.Debug("Create called")
	if err := authz.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if opening.IsNegative() {
		return nil, domain.ErrAmountMustBePositive
	}
	u, err := user.New(name, password, role)
	if err != nil {
		log.Error("Create failed", "error", err)
		return nil, err
	}

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.UserRepository()
		if err != nil {
			return fmt.Errorf("failed to get user repository: %w", err)
		}
		if err := repo.Create(ctx, u); err != nil {
			return err
		}
		if opening.IsPositive() {
			_, err = ledgersvc.Apply(ctx, uow, u, domainledger.Deposit, opening, "opening balance", s.now())
		}
		return err
	})
	if err != nil {
		log.Error("Create failed", "error", err)
		return nil, err
	}
	log.Info("Create successful", "userID", u.ID)
	if opening.IsPositive() {
		s.emit(ctx, u.ID, domainledger.Deposit, opening)
	}
	return u, nil
}

// Update renames (admins or self) and changes role (admins only).
func (s *Service) Update(ctx context.Context, caller authz.Caller, id uuid.UUID, in Update) (*user.User, error) {
	log := s.logger.With("context", "Update", "userID", id)
	log.Debug("Update called")
	if err := authz.Require(caller, authz.OwnedBy(id), authz.Admin, authz.Owner); err != nil {
		return nil, err
	}
	if in.Role != nil {
		if err := authz.RequireAdmin(caller); err != nil {
			return nil, err
		}
	}

	var u *user.User
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.UserRepository()
		if err != nil {
			return fmt.Errorf("failed to get user repository: %w", err)
		}
		u, err = repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			if err := u.Rename(*in.Name); err != nil {
				return err
			}
		}
		if in.Role != nil {
			role, err := user.ParseRole(string(*in.Role))
			if err != nil {
				return err
			}
			u.Role = role
		}
		return repo.Update(ctx, u)
	})
	if err != nil {
		log.Error("Update failed", "error", err)
		return nil, err
	}
	log.Info("Update successful")
	return u, nil
}

// Delete removes a user with their farms, tokens and ledger. Admins or self.
func (s *Service) Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	log := s.logger.With("context", "Delete", "userID", id)
	log.Debug("Delete called")
	if err := authz.Require(caller, authz.OwnedBy(id), authz.Admin, authz.Owner); err != nil {
		return err
	}
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.UserRepository()
		if err != nil {
			return fmt.Errorf("failed to get user repository: %w", err)
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

// Deposit credits id. Admins only.
func (s *Service) Deposit(ctx context.Context, caller authz.Caller, id uuid.UUID, amount money.Money) (*user.User, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return nil, err
	}
	return s.adjust(ctx, id, domainledger.Deposit, amount)
}

// Withdraw debits id. Admins or self.
func (s *Service) Withdraw(ctx context.Context, caller authz.Caller, id uuid.UUID, amount money.Money) (*user.User, error) {
	if err := authz.Require(caller, authz.OwnedBy(id), authz.Admin, authz.Owner); err != nil {
		return nil, err
	}
	return s.adjust(ctx, id, domainledger.Withdrawal, amount)
}

func (s *Service) adjust(ctx context.Context, id uuid.UUID, t domainledger.Type, amount money.Money) (*user.User, error) {
	log := s.logger.With("context", string(t), "userID", id, "amount", amount)
	log.Debug(string(t) + " called")
	if !amount.IsPositive() {
		return nil, domain.ErrAmountMustBePositive
	}

	var u *user.User
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.UserRepository()
		if err != nil {
			return fmt.Errorf("failed to get user repository: %w", err)
		}
		u, err = repo.Get(ctx, id)
		if err != nil {
			return err
		}
		_, err = ledgersvc.Apply(ctx, uow, u, t, amount, "", s.now())
		return err
	})
	if err != nil {
		log.Error(string(t)+" failed", "error", err)
		return nil, err
	}
	log.Info(string(t)+" successful", "balance", u.Balance)
	s.emit(ctx, id, t, amount)
	return u, nil
}

func (s *Service) emit(ctx context.Context, id uuid.UUID, t domainledger.Type, amount money.Money) {
	if err := s.bus.Emit(ctx, &events.BalanceAdjusted{
		UserID: id,
		Kind:   string(t),
		Amount: amount,
		At:     s.now(),
	}); err != nil {
		s.logger.Warn("failed to emit event", "type", events.EventTypeBalanceAdjusted, "error", err)
	}
}
