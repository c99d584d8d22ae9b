// Package webapi wires the HTTP surface of the farm simulation.
// Sub-packages group the endpoints by resource:
// - auth: registration, login and token refresh
// - user: user management and balances
// - farm: farms and their contents
// - animal: buying and selling animals
// - product: selling products
// - admin: production cycles, ledger reconciliation and event activity
package webapi

import (
	"errors"
	"strings"

	"github.com/barncase/barn/pkg/app"
	adminweb "github.com/barncase/barn/webapi/admin"
	animalweb "github.com/barncase/barn/webapi/animal"
	authweb "github.com/barncase/barn/webapi/auth"
	"github.com/barncase/barn/webapi/common"
	farmweb "github.com/barncase/barn/webapi/farm"
	productweb "github.com/barncase/barn/webapi/product"
	userweb "github.com/barncase/barn/webapi/user"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// SetupApp Initialize Fiber with custom configuration
func SetupApp(a *app.App) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		},
	})

	if rl := a.Config.RateLimit; rl != nil && rl.MaxRequests > 0 {
		fiberApp.Use(limiter.New(limiter.Config{
			Max:          rl.MaxRequests,
			Expiration:   rl.Window,
			KeyGenerator: clientKey,
			LimitReached: func(c *fiber.Ctx) error {
				return common.ProblemDetailsJSON(
					c,
					"Too Many Requests",
					errors.New("rate limit exceeded"),
					fiber.StatusTooManyRequests,
				)
			},
		}))
	}
	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())

	// Health check endpoint
	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Barn API is running!")
	})

	authweb.Routes(fiberApp, a.AuthService)
	userweb.Routes(fiberApp, a.UserService, a.LedgerService, a.AnimalService, a.AuthService)
	farmweb.Routes(fiberApp, a.FarmService, a.AnimalService, a.Engine, a.AuthService)
	animalweb.Routes(fiberApp, a.AnimalService, a.AuthService)
	productweb.Routes(fiberApp, a.ProductService, a.AuthService)
	adminweb.Routes(fiberApp, a.Scheduler, a.LedgerService, a.Activity, a.AuthService)
	return fiberApp
}

// clientKey prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func clientKey(c *fiber.Ctx) string {
	if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
		if i := strings.Index(forwardedFor, ","); i != -1 {
			return strings.TrimSpace(forwardedFor[:i])
		}
		return strings.TrimSpace(forwardedFor)
	}
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return c.IP()
}
