// Package testutils holds fixtures shared by service and handler tests.
package testutils

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/barncase/barn/infra/memory"
	"github.com/barncase/barn/pkg/domain/farm"
	"github.com/barncase/barn/pkg/domain/ledger"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/barncase/barn/pkg/money"
	"github.com/barncase/barn/pkg/repository"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// Password is the password of every seeded user.
const Password = "password123"

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewUoW returns a fresh in-memory store.
func NewUoW() *memory.UoW {
	return memory.NewUoW(memory.New())
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// SeedUser stores a user whose opening balance is backed by a Deposit entry.
func SeedUser(tb testing.TB, uow repository.UnitOfWork, name string, role user.Role, balance money.Money) *user.User {
	tb.Helper()
	u, err := user.New(name, Password, role)
	require.NoError(tb, err)
	ctx := context.Background()
	require.NoError(tb, uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		if err := users.Create(ctx, u); err != nil {
			return err
		}
		if !balance.IsPositive() {
			return nil
		}
		if err := u.Credit(balance); err != nil {
			return err
		}
		if err := users.Update(ctx, u); err != nil {
			return err
		}
		entries, err := uow.LedgerRepository()
		if err != nil {
			return err
		}
		return entries.Append(ctx, ledger.New(u.ID, ledger.Deposit, balance, "seed", time.Now().UTC()))
	}))
	return u
}

// SeedFarm stores a farm owned by owner.
func SeedFarm(tb testing.TB, uow repository.UnitOfWork, owner *user.User, name string) *farm.Farm {
	tb.Helper()
	f, err := farm.New(name, owner.ID)
	require.NoError(tb, err)
	repo, err := uow.FarmRepository()
	require.NoError(tb, err)
	require.NoError(tb, repo.Create(context.Background(), f))
	return f
}

// MakeRequestWithApp runs one request through app. token is sent as a
// bearer token when not empty.
func MakeRequestWithApp(app *fiber.App, method, path, body, token string) *http.Response {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		panic(err)
	}
	return resp
}
