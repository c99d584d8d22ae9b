// Package middleware holds the Fiber middleware shared by the route groups.
package middleware

import (
	"errors"
	"strings"

	"github.com/barncase/barn/pkg/authz"
	"github.com/barncase/barn/pkg/domain"
	authsvc "github.com/barncase/barn/pkg/service/auth"
	"github.com/barncase/barn/webapi/common"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenKey  = "user"
	callerKey = "caller"

	missingOrMalformed = "missing or malformed jwt"
)

// JwtProtected verifies the bearer token and stores the caller in the
// request locals.
func JwtProtected(authSvc *authsvc.Service) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: authSvc.Secret()},
		Claims:       &authsvc.Claims{},
		ContextKey:   tokenKey,
		ErrorHandler: jwtError,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals(tokenKey).(*jwt.Token)
			if !ok {
				return jwtError(c, errors.New("missing token"))
			}
			claims, ok := token.Claims.(*authsvc.Claims)
			if !ok {
				return jwtError(c, errors.New("unexpected claims"))
			}
			caller, err := authSvc.ValidateClaims(claims)
			if err != nil {
				return jwtError(c, err)
			}
			c.Locals(callerKey, caller)
			return c.Next()
		},
	})
}

// AdminOnly rejects callers without the admin role. Use after JwtProtected.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := CallerFromCtx(c)
		if !ok {
			return common.ProblemDetailsJSON(c, "Unauthorized", domain.ErrUnauthorized, "missing user context")
		}
		if !caller.IsAdmin() {
			return common.ProblemDetailsJSON(c, "Forbidden", domain.ErrForbidden, "admin role required")
		}
		return c.Next()
	}
}

// CallerFromCtx returns the caller stored by JwtProtected.
func CallerFromCtx(c *fiber.Ctx) (authz.Caller, bool) {
	caller, ok := c.Locals(callerKey).(authz.Caller)
	return caller, ok
}

// Caller is CallerFromCtx for handlers that only run behind JwtProtected.
func Caller(c *fiber.Ctx) (authz.Caller, error) {
	caller, ok := CallerFromCtx(c)
	if !ok {
		return authz.Caller{}, domain.ErrUnauthorized
	}
	return caller, nil
}

func jwtError(c *fiber.Ctx, err error) error {
	if strings.EqualFold(err.Error(), missingOrMalformed) {
		return common.ProblemDetailsJSON(c, "Bad Request", err, "Missing or malformed JWT", fiber.StatusBadRequest)
	}
	return common.ProblemDetailsJSON(c, "Unauthorized", err, "Invalid or expired JWT", fiber.StatusUnauthorized)
}
