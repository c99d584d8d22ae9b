package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/barncase/barn/pkg/domain"
	"github.com/barncase/barn/pkg/domain/ledger"
	"github.com/barncase/barn/pkg/domain/product"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/barncase/barn/pkg/money"
	"github.com/barncase/barn/pkg/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDb.Close() })
	dialector := postgres.New(postgres.Config{
		Conn:       mockDb,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

var userColumns = []string{
	"id", "name", "role", "balance", "password_hash", "password_salt", "version", "created_at", "updated_at",
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	u, err := user.New("alice", "password123", user.RoleUser)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO "users" (.+) VALUES (.+)`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	assert.NoError(t, repo.Create(context.Background(), u))

	mock.ExpectExec(`INSERT INTO "users" (.+) VALUES (.+)`).
		WillReturnError(gorm.ErrDuplicatedKey)
	assert.ErrorIs(t, repo.Create(context.Background(), u), domain.ErrAlreadyExists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Get(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	id := uuid.New()
	now := time.Now().UTC()

	rows := sqlmock.NewRows(userColumns).
		AddRow(id, "alice", "User", 51250, []byte("h"), []byte("s"), 3, now, now)
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1 ORDER BY "users"\."id" LIMIT \$2`).
		WithArgs(id, 1).WillReturnRows(rows)

	u, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Name)
	assert.Equal(t, money.MustParse("512.50"), u.Balance)
	assert.Equal(t, int64(3), u.Version)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1 ORDER BY "users"\."id" LIMIT \$2`).
		WithArgs(sqlmock.AnyArg(), 1).WillReturnRows(sqlmock.NewRows(userColumns))
	_, err = repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, user.ErrUserNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateIsVersionGuarded(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	u, err := user.New("alice", "password123", user.RoleUser)
	require.NoError(t, err)
	u.Version = 4

	mock.ExpectExec(`UPDATE "users" SET (.+) WHERE \(?id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), u))
	assert.Equal(t, int64(5), u.Version)

	mock.ExpectExec(`UPDATE "users" SET (.+) WHERE \(?id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Update(context.Background(), u), domain.ErrConflict)
	assert.Equal(t, int64(5), u.Version)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_MarkSoldOnlyOnce(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)
	p := product.New(uuid.New(), uuid.New(), product.Milk, product.Batch{Quantity: 5, UnitPrice: money.MustParse("2.50")}, time.Now())
	require.NoError(t, p.MarkSold(p.Total(), time.Now()))

	mock.ExpectExec(`UPDATE "products" SET (.+) WHERE \(?id = \$\d+ AND is_sold = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.MarkSold(context.Background(), p))

	mock.ExpectExec(`UPDATE "products" SET (.+) WHERE \(?id = \$\d+ AND is_sold = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.MarkSold(context.Background(), p), product.ErrAlreadySold)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_Append(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db)
	e := ledger.New(uuid.New(), ledger.PurchaseAnimal, money.MustParse("500"), "cow", time.Now())

	mock.ExpectExec(`INSERT INTO "ledger_entries" (.+) VALUES (.+)`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	assert.NoError(t, repo.Append(context.Background(), e))

	mock.ExpectExec(`INSERT INTO "ledger_entries" (.+) VALUES (.+)`).
		WillReturnError(gorm.ErrForeignKeyViolated)
	assert.ErrorIs(t, repo.Append(context.Background(), e), domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUoW_CommitsAndRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "ledger_entries" (.+) VALUES (.+)`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	err := uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.LedgerRepository()
		if err != nil {
			return err
		}
		return repo.Append(ctx, ledger.New(uuid.New(), ledger.Deposit, money.MustParse("1"), "", time.Now()))
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	err = uow.Do(ctx, func(repository.UnitOfWork) error { return boom })
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}
