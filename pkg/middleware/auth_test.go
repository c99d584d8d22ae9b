package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/barncase/barn/pkg/config"
	"github.com/barncase/barn/pkg/domain/user"
	authsvc "github.com/barncase/barn/pkg/service/auth"
	"github.com/barncase/barn/pkg/testutils"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService() *authsvc.Service {
	return authsvc.New(testutils.NewUoW(), &config.Auth{
		Jwt: &config.Jwt{
			Secret:   "middleware-secret",
			Issuer:   "barn",
			Audience: "barn-clients",
			Expiry:   time.Minute,
		},
		RefreshTTL: time.Hour,
	}, testutils.Logger())
}

func protectedApp(svc *authsvc.Service, extra ...fiber.Handler) *fiber.App {
	app := fiber.New()
	handlers := append([]fiber.Handler{JwtProtected(svc)}, extra...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		caller, ok := CallerFromCtx(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(caller.UserID.String())
	})
	app.Get("/", handlers...)
	return app
}

func TestProtected_Unauthorized(t *testing.T) {
	app := protectedApp(newAuthService())
	resp := testutils.MakeRequestWithApp(app, http.MethodGet, "/", "", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = testutils.MakeRequestWithApp(app, http.MethodGet, "/", "", "not-a-jwt")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestProtected_StoresCaller(t *testing.T) {
	svc := newAuthService()
	u, err := user.New("alice", "pw", user.RoleUser)
	require.NoError(t, err)
	token, _, err := svc.GenerateAccessToken(u)
	require.NoError(t, err)

	resp := testutils.MakeRequestWithApp(protectedApp(svc), http.MethodGet, "/", "", token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestProtected_RejectsForeignAudience(t *testing.T) {
	issuer := newAuthService()
	u, err := user.New("alice", "pw", user.RoleUser)
	require.NoError(t, err)
	token, _, err := issuer.GenerateAccessToken(u)
	require.NoError(t, err)

	verifier := authsvc.New(testutils.NewUoW(), &config.Auth{
		Jwt: &config.Jwt{Secret: "middleware-secret", Issuer: "barn", Audience: "other", Expiry: time.Minute},
	}, testutils.Logger())
	resp := testutils.MakeRequestWithApp(protectedApp(verifier), http.MethodGet, "/", "", token)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminOnly(t *testing.T) {
	svc := newAuthService()
	app := protectedApp(svc, AdminOnly())

	plain, err := user.New("bob", "pw", user.RoleUser)
	require.NoError(t, err)
	token, _, err := svc.GenerateAccessToken(plain)
	require.NoError(t, err)
	resp := testutils.MakeRequestWithApp(app, http.MethodGet, "/", "", token)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	admin, err := user.New("root", "pw", user.RoleAdmin)
	require.NoError(t, err)
	token, _, err = svc.GenerateAccessToken(admin)
	require.NoError(t, err)
	resp = testutils.MakeRequestWithApp(app, http.MethodGet, "/", "", token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJwtError_Malformed(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		return jwtError(c, errors.New("Missing or malformed JWT"))
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, _ := app.Test(req)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get(fiber.HeaderContentType))
}

func TestJwtError_Invalid(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		return jwtError(c, errors.New("any other error"))
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, _ := app.Test(req)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
