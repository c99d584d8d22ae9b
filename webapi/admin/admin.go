package admin

import (
	"github.com/barncase/barn/pkg/middleware"
	"github.com/barncase/barn/pkg/scheduler"
	authsvc "github.com/barncase/barn/pkg/service/auth"
	ledgersvc "github.com/barncase/barn/pkg/service/ledger"
	"github.com/barncase/barn/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// ActivitySource exposes event counters.
type ActivitySource interface {
	Snapshot() map[string]int
}

func Routes(
	app *fiber.App,
	sched *scheduler.Scheduler,
	ledgerSvc *ledgersvc.Service,
	activity ActivitySource,
	authSvc *authsvc.Service,
) {
	g := app.Group("/api/admin", middleware.JwtProtected(authSvc), middleware.AdminOnly())
	g.Post("/production/run", RunProduction(sched))
	g.Get("/production/last", LastCycle(sched))
	g.Get("/ledger/reconcile", Reconcile(ledgerSvc, false))
	g.Post("/ledger/reconcile", Reconcile(ledgerSvc, true))
	g.Get("/activity", Activity(activity))
}

// Activity returns how many events of each type were seen since startup.
func Activity(activity ActivitySource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Activity fetched", activity.Snapshot())
	}
}

// RunProduction runs one scheduler cycle now, or joins the one in flight.
func RunProduction(sched *scheduler.Scheduler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := sched.RunCycle(c.Context())
		if err != nil {
			return common.ProblemDetailsJSON(c, "Production cycle failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Production cycle completed", res)
	}
}

// LastCycle returns the result of the most recent scheduler cycle.
func LastCycle(sched *scheduler.Scheduler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, ok, err := sched.LastCycle(c.Context())
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't read last cycle", err)
		}
		if !ok {
			return common.ProblemDetailsJSON(c, "No cycle has run yet", nil, fiber.StatusNotFound)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Last cycle fetched", res)
	}
}

// Reconcile reports ledger drift. The POST form also repairs it.
func Reconcile(ledgerSvc *ledgersvc.Service, repair bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		report, err := ledgerSvc.Reconcile(c.Context(), caller, repair)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Reconcile failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Ledger reconciled", report)
	}
}
