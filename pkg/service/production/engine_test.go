package production

import (
	"context"
	"testing"
	"time"

	infraeventbus "github.com/barncase/barn/infra/eventbus"
	"github.com/barncase/barn/pkg/authz"
	"github.com/barncase/barn/pkg/domain"
	"github.com/barncase/barn/pkg/domain/animal"
	"github.com/barncase/barn/pkg/domain/events"
	"github.com/barncase/barn/pkg/domain/farm"
	"github.com/barncase/barn/pkg/domain/product"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/barncase/barn/pkg/money"
	"github.com/barncase/barn/pkg/repository"
	"github.com/barncase/barn/pkg/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (repository.UnitOfWork, *infraeventbus.MemoryEventBus, *Engine, *farm.Farm) {
	t.Helper()
	uow := testutils.NewUoW()
	bus := infraeventbus.NewWithMemory(testutils.Logger())
	owner := testutils.SeedUser(t, uow, "farmer", user.RoleUser, money.Zero)
	f := testutils.SeedFarm(t, uow, owner, "Valley")
	return uow, bus, New(uow, bus, testutils.Logger()), f
}

func addAnimal(t *testing.T, uow repository.UnitOfWork, farmID uuid.UUID, a *animal.Animal) *animal.Animal {
	t.Helper()
	repo, err := uow.AnimalRepository()
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), a))
	return a
}

func newAnimal(t *testing.T, farmID uuid.UUID, s animal.Species) *animal.Animal {
	t.Helper()
	a, err := animal.New(farmID, s, t0)
	require.NoError(t, err)
	return a
}

func listProducts(t *testing.T, uow repository.UnitOfWork, farmID uuid.UUID) []*product.Product {
	t.Helper()
	repo, err := uow.ProductRepository()
	require.NoError(t, err)
	ps, err := repo.ListByFarm(context.Background(), farmID)
	require.NoError(t, err)
	return ps
}

func TestTick_EmptyFarm(t *testing.T) {
	_, bus, engine, f := setup(t)
	n, err := engine.Tick(context.Background(), f.ID, t0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, bus.Published())
}

func TestTick_UnknownFarm(t *testing.T) {
	_, _, engine, _ := setup(t)
	_, err := engine.Tick(context.Background(), uuid.New(), t0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTick_IdempotentForSameNow(t *testing.T) {
	uow, bus, engine, f := setup(t)
	addAnimal(t, uow, f.ID, newAnimal(t, f.ID, animal.Cow))
	addAnimal(t, uow, f.ID, newAnimal(t, f.ID, animal.Sheep))
	ctx := context.Background()

	now := t0.Add(5 * time.Minute)
	n, err := engine.Tick(ctx, f.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = engine.Tick(ctx, f.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, listProducts(t, uow, f.ID), 2)
	assert.Len(t, bus.Published(), 1)

	ticked, ok := bus.Published()[0].(*events.ProductionTicked)
	require.True(t, ok)
	assert.Equal(t, 2, ticked.Created)
}

func TestTick_RespectsInterval(t *testing.T) {
	uow, _, engine, f := setup(t)
	addAnimal(t, uow, f.ID, newAnimal(t, f.ID, animal.Chicken))
	ctx := context.Background()

	n, err := engine.Tick(ctx, f.ID, t0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = engine.Tick(ctx, f.ID, t0.Add(119*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = engine.Tick(ctx, f.ID, t0.Add(120*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ps := listProducts(t, uow, f.ID)
	require.Len(t, ps, 2)
	for _, p := range ps {
		assert.Equal(t, product.Eggs, p.Type)
		assert.Equal(t, 3, p.Quantity)
		assert.Equal(t, money.MustParse("0.40"), p.UnitPrice)
	}
}

func TestTick_ChickenDiesOnDay46WithoutProducing(t *testing.T) {
	uow, bus, engine, f := setup(t)
	a := addAnimal(t, uow, f.ID, newAnimal(t, f.ID, animal.Chicken))
	ctx := context.Background()

	n, err := engine.Tick(ctx, f.ID, t0.Add(46*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, listProducts(t, uow, f.ID))

	repo, err := uow.AnimalRepository()
	require.NoError(t, err)
	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.IsAlive)
	assert.Equal(t, 0, got.RemainingLifeDays)

	ticked := bus.Published()[0].(*events.ProductionTicked)
	assert.Equal(t, 1, ticked.Died)

	// dead animals are skipped from then on
	n, err = engine.Tick(ctx, f.ID, t0.Add(47*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestTick_RemainingLifeNeverIncreases(t *testing.T) {
	uow, _, engine, f := setup(t)
	a := addAnimal(t, uow, f.ID, newAnimal(t, f.ID, animal.Sheep))
	ctx := context.Background()
	repo, err := uow.AnimalRepository()
	require.NoError(t, err)

	_, err = engine.Tick(ctx, f.ID, t0.Add(10*24*time.Hour))
	require.NoError(t, err)
	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.RemainingLifeDays)

	// a clock step backwards must not restore life
	_, err = engine.Tick(ctx, f.ID, t0.Add(2*24*time.Hour))
	require.NoError(t, err)
	got, err = repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.RemainingLifeDays)
}

func TestTick_UnknownSpeciesFallsBackToMilk(t *testing.T) {
	uow, _, engine, f := setup(t)
	a := newAnimal(t, f.ID, animal.Cow)
	a.Species = animal.Species("Yak")
	addAnimal(t, uow, f.ID, a)

	n, err := engine.Tick(context.Background(), f.ID, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	ps := listProducts(t, uow, f.ID)
	require.Len(t, ps, 1)
	assert.Equal(t, product.Milk, ps[0].Type)
	assert.Equal(t, 5, ps[0].Quantity)
}

func TestTickNow_AdminOnly(t *testing.T) {
	uow, _, engine, f := setup(t)
	addAnimal(t, uow, f.ID, newAnimal(t, f.ID, animal.Cow))
	engine.WithClock(func() time.Time { return t0.Add(time.Minute) })
	ctx := context.Background()

	_, err := engine.TickNow(ctx, authz.Caller{UserID: f.OwnerID, Role: user.RoleUser}, f.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	n, err := engine.TickNow(ctx, authz.Caller{UserID: uuid.New(), Role: user.RoleAdmin}, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
