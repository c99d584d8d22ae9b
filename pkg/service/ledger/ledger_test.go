package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/barncase/barn/pkg/authz"
	"github.com/barncase/barn/pkg/domain"
	domainledger "github.com/barncase/barn/pkg/domain/ledger"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/barncase/barn/pkg/money"
	"github.com/barncase/barn/pkg/repository"
	"github.com/barncase/barn/pkg/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skew overwrites the stored balance without a ledger entry.
func skew(t *testing.T, uow repository.UnitOfWork, id uuid.UUID, balance money.Money) {
	t.Helper()
	ctx := context.Background()
	repo, err := uow.UserRepository()
	require.NoError(t, err)
	u, err := repo.Get(ctx, id)
	require.NoError(t, err)
	u.Balance = balance
	require.NoError(t, repo.Update(ctx, u))
}

func TestApply(t *testing.T) {
	uow := testutils.NewUoW()
	u := testutils.SeedUser(t, uow, "alice", user.RoleUser, money.MustParse("10"))
	ctx := context.Background()
	now := time.Now().UTC()

	err := uow.Do(ctx, func(uow repository.UnitOfWork) error {
		_, err := Apply(ctx, uow, u, domainledger.PurchaseAnimal, money.MustParse("4"), "ref", now)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("6"), u.Balance)

	err = uow.Do(ctx, func(uow repository.UnitOfWork) error {
		_, err := Apply(ctx, uow, u, domainledger.Withdrawal, money.MustParse("7"), "", now)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	repo, err := uow.LedgerRepository()
	require.NoError(t, err)
	entries, err := repo.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, money.MustParse("6"), domainledger.Balance(entries))
}

func TestReconcile(t *testing.T) {
	uow := testutils.NewUoW()
	svc := New(uow, testutils.Logger())
	ctx := context.Background()
	admin := testutils.SeedUser(t, uow, "root", user.RoleAdmin, money.Zero)
	clean := testutils.SeedUser(t, uow, "clean", user.RoleUser, money.MustParse("20"))
	drifted := testutils.SeedUser(t, uow, "drifted", user.RoleUser, money.MustParse("30"))
	skew(t, uow, drifted.ID, money.MustParse("99"))

	asAdmin := authz.Caller{UserID: admin.ID, Role: user.RoleAdmin}
	_, err := svc.Reconcile(ctx, authz.Caller{UserID: clean.ID, Role: user.RoleUser}, false)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	report, err := svc.Reconcile(ctx, asAdmin, false)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)
	require.Len(t, report.Drifts, 1)
	assert.Equal(t, drifted.ID, report.Drifts[0].UserID)
	assert.Equal(t, money.MustParse("99"), report.Drifts[0].Stored)
	assert.Equal(t, money.MustParse("30"), report.Drifts[0].Ledger)
	assert.False(t, report.Drifts[0].Repaired)

	report, err = svc.Reconcile(ctx, asAdmin, true)
	require.NoError(t, err)
	require.Len(t, report.Drifts, 1)
	assert.True(t, report.Drifts[0].Repaired)

	report, err = svc.ReconcileAll(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, report.Drifts)
}

func TestList(t *testing.T) {
	uow := testutils.NewUoW()
	svc := New(uow, testutils.Logger())
	ctx := context.Background()
	alice := testutils.SeedUser(t, uow, "alice", user.RoleUser, money.MustParse("20"))
	bob := testutils.SeedUser(t, uow, "bob", user.RoleUser, money.Zero)

	entries, err := svc.List(ctx, authz.Caller{UserID: alice.ID, Role: user.RoleUser}, alice.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = svc.List(ctx, authz.Caller{UserID: bob.ID, Role: user.RoleUser}, alice.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.List(ctx, authz.Caller{UserID: bob.ID, Role: user.RoleAdmin}, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
