// Package memory implements the repositories in process memory for
// development and testing.
//
// A unit of work takes the database lock for its whole duration and runs
// against a copy of every table; the copy replaces the live tables only
// when the work function succeeds.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/barncase/barn/pkg/domain/animal"
	"github.com/barncase/barn/pkg/domain/farm"
	"github.com/barncase/barn/pkg/domain/ledger"
	"github.com/barncase/barn/pkg/domain/product"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/barncase/barn/pkg/repository"
	"github.com/google/uuid"
)

type tables struct {
	users    map[uuid.UUID]user.User
	tokens   map[uuid.UUID]user.RefreshToken
	farms    map[uuid.UUID]farm.Farm
	animals  map[uuid.UUID]animal.Animal
	products map[uuid.UUID]product.Product
	ledger   []ledger.Entry
}

func newTables() *tables {
	return &tables{
		users:    make(map[uuid.UUID]user.User),
		tokens:   make(map[uuid.UUID]user.RefreshToken),
		farms:    make(map[uuid.UUID]farm.Farm),
		animals:  make(map[uuid.UUID]animal.Animal),
		products: make(map[uuid.UUID]product.Product),
	}
}

func (t *tables) clone() *tables {
	return &tables{
		users:    maps.Clone(t.users),
		tokens:   maps.Clone(t.tokens),
		farms:    maps.Clone(t.farms),
		animals:  maps.Clone(t.animals),
		products: maps.Clone(t.products),
		ledger:   slices.Clone(t.ledger),
	}
}

// DB is the in-memory database.
type DB struct {
	mu   sync.Mutex
	data *tables
}

// New creates an empty in-memory database.
func New() *DB {
	return &DB{data: newTables()}
}

// session runs table operations either inside a unit of work (tx set, lock
// already held) or as a single locked statement.
type session struct {
	db *DB
	tx *tables
}

func (s session) read(fn func(t *tables) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.data)
}

// write applies fn to a copy outside a unit of work so a failing statement
// leaves no partial change behind.
func (s session) write(fn func(t *tables) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	next := s.db.data.clone()
	if err := fn(next); err != nil {
		return err
	}
	s.db.data = next
	return nil
}

// UoW is the in-memory UnitOfWork.
type UoW struct {
	session
}

// NewUoW creates a UnitOfWork over db.
func NewUoW(db *DB) *UoW {
	return &UoW{session: session{db: db}}
}

// Do runs fn against a private copy of the tables and publishes the copy
// when fn returns nil. Nested calls join the outer unit of work.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if u.tx != nil {
		return fn(u)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	u.db.mu.Lock()
	defer u.db.mu.Unlock()

	tx := u.db.data.clone()
	if err := fn(&UoW{session: session{db: u.db, tx: tx}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	u.db.data = tx
	return nil
}

func (u *UoW) UserRepository() (repository.UserRepository, error) {
	return &userRepository{u.session}, nil
}

func (u *UoW) TokenRepository() (repository.TokenRepository, error) {
	return &tokenRepository{u.session}, nil
}

func (u *UoW) FarmRepository() (repository.FarmRepository, error) {
	return &farmRepository{u.session}, nil
}

func (u *UoW) AnimalRepository() (repository.AnimalRepository, error) {
	return &animalRepository{u.session}, nil
}

func (u *UoW) ProductRepository() (repository.ProductRepository, error) {
	return &productRepository{u.session}, nil
}

func (u *UoW) LedgerRepository() (repository.LedgerRepository, error) {
	return &ledgerRepository{u.session}, nil
}

var _ repository.UnitOfWork = (*UoW)(nil)

// deleteFarm removes a farm, its animals and its unsold products. Sold
// products stay with their farm and animal links cleared.
func (t *tables) deleteFarm(id uuid.UUID) {
	delete(t.farms, id)
	for aid, a := range t.animals {
		if a.FarmID == id {
			t.detachAnimal(aid)
			delete(t.animals, aid)
		}
	}
	for pid, p := range t.products {
		if p.FarmID != id {
			continue
		}
		if !p.IsSold {
			delete(t.products, pid)
			continue
		}
		p.FarmID = uuid.Nil
		t.products[pid] = p
	}
}

func (t *tables) detachAnimal(id uuid.UUID) {
	for pid, p := range t.products {
		if p.AnimalID == id {
			p.AnimalID = uuid.Nil
			t.products[pid] = p
		}
	}
}
