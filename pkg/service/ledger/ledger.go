// Package ledger posts balance changes and audits stored balances against
// the ledger.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/barncase/barn/pkg/authz"
	domainledger "github.com/barncase/barn/pkg/domain/ledger"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/barncase/barn/pkg/money"
	"github.com/barncase/barn/pkg/repository"
	"github.com/google/uuid"
)

// Apply changes u's balance by amount in the direction implied by t, saves
// the user and appends the matching ledger entry. Call it inside a unit of
// work so both writes share one transaction.
func Apply(
	ctx context.Context,
	uow repository.UnitOfWork,
	u *user.User,
	t domainledger.Type,
	amount money.Money,
	reference string,
	now time.Time,
) (*domainledger.Entry, error) {
	var err error
	if t.IsCredit() {
		err = u.Credit(amount)
	} else {
		err = u.Debit(amount)
	}
	if err != nil {
		return nil, err
	}

	users, err := uow.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository: %w", err)
	}
	if err := users.Update(ctx, u); err != nil {
		return nil, err
	}

	entries, err := uow.LedgerRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger repository: %w", err)
	}
	e := domainledger.New(u.ID, t, amount, reference, now)
	if err := entries.Append(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Drift is one user whose stored balance disagrees with the ledger.
type Drift struct {
	UserID   uuid.UUID   `json:"userId"`
	Name     string      `json:"name"`
	Stored   money.Money `json:"stored"`
	Ledger   money.Money `json:"ledger"`
	Repaired bool        `json:"repaired"`
}

// Report summarises one reconciliation pass.
type Report struct {
	At      time.Time `json:"at"`
	Checked int       `json:"checked"`
	Drifts  []Drift   `json:"drifts"`
}

type Service struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
	now    func() time.Time
}

func New(uow repository.UnitOfWork, logger *slog.Logger) *Service {
	return &Service{
		uow:    uow,
		logger: logger.With("service", "ledger"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns userID's entries, oldest first. Admins or the user only.
func (s *Service) List(ctx context.Context, caller authz.Caller, userID uuid.UUID) ([]*domainledger.Entry, error) {
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
	entries, err := s.uow.LedgerRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger repository: %w", err)
	}
	return entries.ListByUser(ctx, userID)
}

// Reconcile is ReconcileAll restricted to admins.
func (s *Service) Reconcile(ctx context.Context, caller authz.Caller, repair bool) (*Report, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return nil, err
	}
	return s.ReconcileAll(ctx, repair)
}

// ReconcileAll compares every stored balance with its ledger sum. With
// repair, drifted balances are reset to the ledger sum unless that sum is
// negative. Each user is checked in its own unit of work.
func (s *Service) ReconcileAll(ctx context.Context, repair bool) (*Report, error) {
	log := s.logger.With("context", "Reconcile", "repair", repair)
	log.Debug("Reconcile called")

	users, err := s.uow.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository: %w", err)
	}
	ids, err := users.ListIDs(ctx)
	if err != nil {
		log.Error("Reconcile failed", "error", err)
		return nil, err
	}

	report := &Report{At: s.now(), Drifts: []Drift{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		drift, err := s.reconcileUser(ctx, id, repair)
		if err != nil {
			log.Error("Reconcile user failed", "userID", id, "error", err)
			continue
		}
		report.Checked++
		if drift != nil {
			log.Warn("Balance drift", "userID", id, "stored", drift.Stored, "ledger", drift.Ledger, "repaired", drift.Repaired)
			report.Drifts = append(report.Drifts, *drift)
		}
	}
	log.Info("Reconcile successful", "checked", report.Checked, "drifts", len(report.Drifts))
	return report, nil
}

func (s *Service) reconcileUser(ctx context.Context, id uuid.UUID, repair bool) (*Drift, error) {
	var drift *Drift
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return fmt.Errorf("failed to get user repository: %w", err)
		}
		entries, err := uow.LedgerRepository()
		if err != nil {
			return fmt.Errorf("failed to get ledger repository: %w", err)
		}
		u, err := users.Get(ctx, id)
		if err != nil {
			return err
		}
		totals, err := entries.TotalsByUser(ctx, id)
		if err != nil {
			return err
		}
		sum := domainledger.BalanceFromTotals(totals)
		if sum == u.Balance {
			return nil
		}
		drift = &Drift{UserID: u.ID, Name: u.Name, Stored: u.Balance, Ledger: sum}
		if !repair || sum.IsNegative() {
			return nil
		}
		u.Balance = sum
		if err := users.Update(ctx, u); err != nil {
			return err
		}
		drift.Repaired = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drift, nil
}
