// Package testutils builds a complete HTTP app over the in-memory store for handler tests.
package testutils

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	infracache "github.com/barncase/barn/infra/cache"
	infraeventbus "github.com/barncase/barn/infra/eventbus"
	"github.com/barncase/barn/infra/memory"
	"github.com/barncase/barn/pkg/app"
	"github.com/barncase/barn/pkg/config"
	"github.com/barncase/barn/pkg/domain/farm"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/barncase/barn/pkg/money"
	pkgtestutils "github.com/barncase/barn/pkg/testutils"
	"github.com/barncase/barn/webapi"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// TestConfig is a configuration that needs no external services.
func TestConfig() *config.App {
	return &config.App{
		Env:    "test",
		Server: &config.Server{Scheme: "http", Host: "localhost", Port: 3000},
		Log:    &config.Log{Format: "text"},
		DB:     &config.DB{},
		Auth: &config.Auth{
			Jwt: &config.Jwt{
				Secret:   "test-secret",
				Issuer:   "barn",
				Audience: "barn-clients",
				Expiry:   15 * time.Minute,
			},
			RefreshTTL: 24 * time.Hour,
		},
		EventBus:  &config.EventBus{Driver: "memory"},
		RateLimit: &config.RateLimit{MaxRequests: 10000, Window: time.Minute},
		Scheduler: &config.Scheduler{Interval: time.Hour, Concurrency: 1},
	}
}

// WebTestSuite serves the full route table from a fresh in-memory store per test.
type WebTestSuite struct {
	suite.Suite
	Cfg     *config.App
	App     *app.App
	Fiber   *fiber.App
	UoW     *memory.UoW
	Bus     *infraeventbus.MemoryEventBus
	Admin   *user.User
	AdminTk string
}

// SetupTest rebuilds the app so tests don't share state.
func (s *WebTestSuite) SetupTest() {
	if s.Cfg == nil {
		s.Cfg = TestConfig()
	}
	logger := pkgtestutils.Logger()
	s.UoW = pkgtestutils.NewUoW()
	s.Bus = infraeventbus.NewWithMemory(logger)
	s.App = app.New(&app.Deps{
		Uow:      s.UoW,
		EventBus: s.Bus,
		Cache:    infracache.NewMemoryCache(),
		Logger:   logger,
	}, s.Cfg)
	s.Fiber = webapi.SetupApp(s.App)
	s.Admin = pkgtestutils.SeedUser(s.T(), s.UoW, "root", user.RoleAdmin, money.Zero)
	s.AdminTk = s.Token(s.Admin)
}

// Token issues an access token for u.
func (s *WebTestSuite) Token(u *user.User) string {
	tk, _, err := s.App.AuthService.GenerateAccessToken(u)
	s.Require().NoError(err)
	return tk
}

// SeedUser stores a plain user with balance and returns it with a token.
func (s *WebTestSuite) SeedUser(name string, balance string) (*user.User, string) {
	u := pkgtestutils.SeedUser(s.T(), s.UoW, name, user.RoleUser, money.MustParse(balance))
	return u, s.Token(u)
}

func (s *WebTestSuite) SeedFarm(owner *user.User, name string) *farm.Farm {
	return pkgtestutils.SeedFarm(s.T(), s.UoW, owner, name)
}

// Do sends a request and returns the response.
func (s *WebTestSuite) Do(method, path, body, token string) *http.Response {
	return pkgtestutils.MakeRequestWithApp(s.Fiber, method, path, body, token)
}

// Response mirrors the success envelope with a typed payload.
type Response[T any] struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// ProblemDetails mirrors the error body.
type ProblemDetails struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors"`
}

// Decode reads a JSON body into T and closes it.
func Decode[T any](tb testing.TB, resp *http.Response) T {
	tb.Helper()
	defer resp.Body.Close() //nolint:errcheck
	var out T
	raw, err := io.ReadAll(resp.Body)
	require.NoError(tb, err)
	require.NoError(tb, json.Unmarshal(raw, &out), string(raw))
	return out
}
