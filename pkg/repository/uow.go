package repository

import (
	"context"
)

// UnitOfWork defines the transaction boundary and the repositories bound to it.
//
// Do runs fn inside one transaction; returning an error rolls everything
// back. Repositories obtained from the UnitOfWork passed to fn share that
// transaction. Repositories obtained outside Do run without one.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	UserRepository() (UserRepository, error)
	TokenRepository() (TokenRepository, error)
	FarmRepository() (FarmRepository, error)
	AnimalRepository() (AnimalRepository, error)
	ProductRepository() (ProductRepository, error)
	LedgerRepository() (LedgerRepository, error)
}
