package repository

import (
	"context"

	"github.com/barncase/barn/pkg/repository"
	"gorm.io/gorm"
)

// UoW provides transaction boundary and repository access in one abstraction.
// All repositories handed out inside Do share the same *gorm.DB session.
type UoW struct {
	db *gorm.DB
	tx *gorm.DB
}

// NewUoW creates a new UoW for the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{db: db}
}

// Do runs the given function in a transaction boundary, providing a UoW
// with repository access. Nested calls become savepoints.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	return u.session().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UoW{db: u.db, tx: tx})
	})
}

func (u *UoW) session() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UoW) UserRepository() (repository.UserRepository, error) {
	return NewUserRepository(u.session()), nil
}

func (u *UoW) TokenRepository() (repository.TokenRepository, error) {
	return NewTokenRepository(u.session()), nil
}

func (u *UoW) FarmRepository() (repository.FarmRepository, error) {
	return NewFarmRepository(u.session()), nil
}

func (u *UoW) AnimalRepository() (repository.AnimalRepository, error) {
	return NewAnimalRepository(u.session()), nil
}

func (u *UoW) ProductRepository() (repository.ProductRepository, error) {
	return NewProductRepository(u.session()), nil
}

func (u *UoW) LedgerRepository() (repository.LedgerRepository, error) {
	return NewLedgerRepository(u.session()), nil
}

var _ repository.UnitOfWork = (*UoW)(nil)
