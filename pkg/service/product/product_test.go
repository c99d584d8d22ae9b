package product

import (
	"context"
	"testing"
	"time"

	infraeventbus "github.com/barncase/barn/infra/eventbus"
	"github.com/barncase/barn/infra/memory"
	"github.com/barncase/barn/pkg/domain"
	"github.com/barncase/barn/pkg/domain/animal"
	"github.com/barncase/barn/pkg/domain/events"
	"github.com/barncase/barn/pkg/domain/farm"
	"github.com/barncase/barn/pkg/domain/ledger"
	"github.com/barncase/barn/pkg/domain/product"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/barncase/barn/pkg/money"
	animalsvc "github.com/barncase/barn/pkg/service/animal"
	"github.com/barncase/barn/pkg/service/production"
	"github.com/barncase/barn/pkg/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	uow     *memory.UoW
	bus     *infraeventbus.MemoryEventBus
	clock   *testutils.Clock
	svc     *Service
	animals *animalsvc.Service
	engine  *production.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	uow := testutils.NewUoW()
	bus := infraeventbus.NewWithMemory(testutils.Logger())
	clock := testutils.NewClock(time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC))
	return &fixture{
		uow:     uow,
		bus:     bus,
		clock:   clock,
		svc:     New(uow, bus, testutils.Logger()).WithClock(clock.Now),
		animals: animalsvc.New(uow, bus, testutils.Logger()).WithClock(clock.Now),
		engine:  production.New(uow, bus, testutils.Logger()),
	}
}

func (f *fixture) user(t *testing.T, id uuid.UUID) *user.User {
	t.Helper()
	repo, err := f.uow.UserRepository()
	require.NoError(t, err)
	u, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (f *fixture) products(t *testing.T, farmID uuid.UUID) []*product.Product {
	t.Helper()
	repo, err := f.uow.ProductRepository()
	require.NoError(t, err)
	ps, err := repo.ListByFarm(context.Background(), farmID)
	require.NoError(t, err)
	return ps
}

// a farm with one cow that has produced n milk batches, one minute apart
func (f *fixture) dairy(t *testing.T, balance string, batches int) (*user.User, *farm.Farm) {
	t.Helper()
	ctx := context.Background()
	u := testutils.SeedUser(t, f.uow, "milker-"+uuid.NewString()[:6], user.RoleUser, money.MustParse(balance))
	fm := testutils.SeedFarm(t, f.uow, u, "Dairy")
	_, err := f.animals.BuyAnimal(ctx, u.ID, fm.ID, animal.Cow)
	require.NoError(t, err)
	for i := 0; i < batches; i++ {
		_, err := f.engine.Tick(ctx, fm.ID, f.clock.Advance(2*time.Minute))
		require.NoError(t, err)
	}
	return f.user(t, u.ID), fm
}

func TestCowScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := testutils.SeedUser(t, f.uow, "alice", user.RoleUser, money.MustParse("1000"))
	fm := testutils.SeedFarm(t, f.uow, u, "Green Acres")

	_, err := f.animals.BuyAnimal(ctx, u.ID, fm.ID, animal.Cow)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("500"), f.user(t, u.ID).Balance)

	created, err := f.engine.Tick(ctx, fm.ID, f.clock.Advance(2*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, created)

	ps := f.products(t, fm.ID)
	require.Len(t, ps, 1)
	assert.Equal(t, product.Milk, ps[0].Type)
	assert.Equal(t, 5, ps[0].Quantity)

	sale, err := f.svc.SellProducts(ctx, u.ID, Selection{FarmID: fm.ID, ProductIDs: []uuid.UUID{ps[0].ID}})
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("12.50"), sale.Total)
	assert.Equal(t, 5, sale.Units)
	assert.Equal(t, money.MustParse("512.50"), f.user(t, u.ID).Balance)

	entries, err := f.uow.LedgerRepository()
	require.NoError(t, err)
	rows, err := entries.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ledger.PurchaseAnimal, rows[1].Type)
	assert.Equal(t, money.MustParse("500"), rows[1].Amount)
	assert.Equal(t, ledger.SellProduct, rows[2].Type)
	assert.Equal(t, money.MustParse("12.50"), rows[2].Amount)

	sold := f.products(t, fm.ID)
	require.Len(t, sold, 1)
	assert.True(t, sold[0].IsSold)
	assert.Equal(t, money.MustParse("12.50"), sold[0].SoldTotal)
	require.NotNil(t, sold[0].SoldAt)

	last := f.bus.Published()[len(f.bus.Published())-1]
	assert.Equal(t, events.EventTypeProductsSold.String(), last.Type())
}

func TestSellProducts_ByIDsRejectsSoldAndForeign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, fm := f.dairy(t, "1000", 2)
	ps := f.products(t, fm.ID)
	require.Len(t, ps, 2)

	_, err := f.svc.SellProducts(ctx, u.ID, Selection{FarmID: fm.ID, ProductIDs: []uuid.UUID{ps[0].ID}})
	require.NoError(t, err)
	balance := f.user(t, u.ID).Balance

	// already sold row in the set: nothing changes
	_, err = f.svc.SellProducts(ctx, u.ID, Selection{FarmID: fm.ID, ProductIDs: []uuid.UUID{ps[0].ID, ps[1].ID}})
	assert.ErrorIs(t, err, domain.ErrInsufficientQuantity)
	assert.Equal(t, balance, f.user(t, u.ID).Balance)
	for _, p := range f.products(t, fm.ID) {
		if p.ID == ps[1].ID {
			assert.False(t, p.IsSold)
		}
	}

	_, err = f.svc.SellProducts(ctx, u.ID, Selection{FarmID: fm.ID, ProductIDs: []uuid.UUID{uuid.New()}})
	assert.ErrorIs(t, err, domain.ErrInsufficientQuantity)

	stranger := testutils.SeedUser(t, f.uow, "stranger", user.RoleUser, money.Zero)
	_, err = f.svc.SellProducts(ctx, stranger.ID, Selection{FarmID: fm.ID, ProductIDs: []uuid.UUID{ps[1].ID}})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestSellProducts_ByIDsIgnoresDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, fm := f.dairy(t, "1000", 1)
	ps := f.products(t, fm.ID)

	sale, err := f.svc.SellProducts(ctx, u.ID, Selection{FarmID: fm.ID, ProductIDs: []uuid.UUID{ps[0].ID, ps[0].ID}})
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("12.50"), sale.Total)
}

func TestSellProducts_FIFOSplitsPartialBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, fm := f.dairy(t, "1000", 2)
	before := f.user(t, u.ID).Balance

	sale, err := f.svc.SellProducts(ctx, u.ID, Selection{Type: product.Milk, Quantity: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, sale.Units)
	assert.Equal(t, money.MustParse("17.50"), sale.Total)
	assert.Equal(t, before.Add(money.MustParse("17.50")), f.user(t, u.ID).Balance)

	var soldUnits, unsoldUnits, unsoldRows int
	for _, p := range f.products(t, fm.ID) {
		if p.IsSold {
			soldUnits += p.Quantity
		} else {
			unsoldUnits += p.Quantity
			unsoldRows++
		}
	}
	assert.Equal(t, 7, soldUnits)
	assert.Equal(t, 3, unsoldUnits)
	assert.Equal(t, 1, unsoldRows)

	// the remainder is the newer batch, so a second sale drains it
	sale, err = f.svc.SellProducts(ctx, u.ID, Selection{Type: product.Milk, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("7.50"), sale.Total)
}

func TestSellProducts_FIFOInsufficientLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, fm := f.dairy(t, "1000", 1)
	before := f.user(t, u.ID).Balance

	_, err := f.svc.SellProducts(ctx, u.ID, Selection{Type: product.Milk, Quantity: 6})
	assert.ErrorIs(t, err, domain.ErrInsufficientQuantity)
	assert.Equal(t, before, f.user(t, u.ID).Balance)
	for _, p := range f.products(t, fm.ID) {
		assert.False(t, p.IsSold)
		assert.Equal(t, 5, p.Quantity)
	}

	_, err = f.svc.SellProducts(ctx, u.ID, Selection{Type: product.Type("Honey"), Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrUnknownProductType)

	_, err = f.svc.SellProducts(ctx, u.ID, Selection{Type: product.Milk, Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
