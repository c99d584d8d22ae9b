package auth

import (
	"strings"

	"github.com/barncase/barn/pkg/authz"
	"github.com/barncase/barn/pkg/domain"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/barncase/barn/pkg/middleware"
	authsvc "github.com/barncase/barn/pkg/service/auth"
	"github.com/barncase/barn/webapi/common"
	"github.com/gofiber/fiber/v2"
)

func Routes(app *fiber.App, authSvc *authsvc.Service) {
	app.Post("/auth/register", Register(authSvc))
	app.Post("/auth/login", Login(authSvc))
	app.Post("/auth/refresh", Refresh(authSvc))
	app.Post("/auth/revoke", Revoke(authSvc))
	app.Get("/auth/whoami", middleware.JwtProtected(authSvc), WhoAmI(authSvc))
}

// Register creates an account. Registering an admin needs an admin bearer
// token; anyone may register a plain user.
func Register(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[RegisterInput](c)
		if input == nil {
			return err // error response already written
		}
		role, err := user.ParseRole(input.Role)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid role", err)
		}
		var caller *authz.Caller
		if header := c.Get(fiber.HeaderAuthorization); header != "" {
			parsed, err := authSvc.ParseAccessToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				return common.ProblemDetailsJSON(c, "Unauthorized", err)
			}
			caller = &parsed
		}
		u, err := authSvc.Register(c.Context(), caller, input.Name, input.Password, role)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't register user", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "User registered", u)
	}
}

// Login exchanges a name and password for an access and refresh token pair.
func Login(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[LoginInput](c)
		if input == nil {
			return err // error response already written
		}
		tokens, err := authSvc.Login(c.Context(), input.Name, input.Password)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid name or password", err, "Name or password is incorrect")
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Success login", tokens)
	}
}

// Refresh rotates a refresh token.
func Refresh(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[RefreshInput](c)
		if input == nil {
			return err // error response already written
		}
		tokens, err := authSvc.Refresh(c.Context(), input.RefreshToken)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid refresh token", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Tokens refreshed", tokens)
	}
}

// Revoke invalidates a refresh token. Unknown tokens are not an error.
func Revoke(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[RefreshInput](c)
		if input == nil {
			return err // error response already written
		}
		if err := authSvc.Revoke(c.Context(), input.RefreshToken); err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't revoke token", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusNoContent, "Token revoked", nil)
	}
}

// WhoAmI returns the authenticated user.
func WhoAmI(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := middleware.CallerFromCtx(c)
		if !ok {
			return common.ProblemDetailsJSON(c, "Unauthorized", domain.ErrUnauthorized, "missing user context")
		}
		u, err := authSvc.WhoAmI(c.Context(), caller)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Current user", u)
	}
}
