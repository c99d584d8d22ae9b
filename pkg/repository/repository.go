package repository

import (
	"context"
	"time"

	"github.com/barncase/barn/pkg/domain/animal"
	"github.com/barncase/barn/pkg/domain/farm"
	"github.com/barncase/barn/pkg/domain/ledger"
	"github.com/barncase/barn/pkg/domain/product"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/barncase/barn/pkg/money"
	"github.com/google/uuid"
)

// UserRepository stores users. Update uses the Version field for optimistic
// concurrency and returns domain.ErrConflict when the row moved underneath.
type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByName(ctx context.Context, name string) (*user.User, error)
	List(ctx context.Context, skip, take int) ([]*user.User, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	Update(ctx context.Context, u *user.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TokenRepository stores refresh tokens by digest.
type TokenRepository interface {
	Create(ctx context.Context, t *user.RefreshToken) error
	GetByHash(ctx context.Context, hash string) (*user.RefreshToken, error)
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) error
}

// FarmRepository stores farms. Delete removes the farm's animals and unsold
// products; sold products survive detached from the farm.
type FarmRepository interface {
	Create(ctx context.Context, f *farm.Farm) error
	Get(ctx context.Context, id uuid.UUID) (*farm.Farm, error)
	List(ctx context.Context) ([]*farm.Farm, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*farm.Farm, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// AnimalRepository stores animals. Delete detaches the animal's products.
type AnimalRepository interface {
	Create(ctx context.Context, a *animal.Animal) error
	Get(ctx context.Context, id uuid.UUID) (*animal.Animal, error)
	ListByFarm(ctx context.Context, farmID uuid.UUID) ([]*animal.Animal, error)
	ListAliveByFarm(ctx context.Context, farmID uuid.UUID) ([]*animal.Animal, error)
	CountAliveBySpecies(ctx context.Context, ownerID uuid.UUID) (map[animal.Species]int, error)
	Update(ctx context.Context, a *animal.Animal) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProductRepository stores product batches. MarkSold only succeeds on an
// unsold row and returns domain.ErrConflict otherwise.
type ProductRepository interface {
	Create(ctx context.Context, p *product.Product) error
	GetMany(ctx context.Context, ids []uuid.UUID) ([]*product.Product, error)
	ListByFarm(ctx context.Context, farmID uuid.UUID) ([]*product.Product, error)
	// ListUnsoldByOwner returns the owner's unsold rows of type t, oldest first.
	ListUnsoldByOwner(ctx context.Context, ownerID uuid.UUID, t product.Type) ([]*product.Product, error)
	MarkSold(ctx context.Context, p *product.Product) error
}

// LedgerRepository appends and reads ledger entries.
type LedgerRepository interface {
	Append(ctx context.Context, e *ledger.Entry) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*ledger.Entry, error)
	TotalsByUser(ctx context.Context, userID uuid.UUID) (map[ledger.Type]money.Money, error)
}
