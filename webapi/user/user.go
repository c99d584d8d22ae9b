package user

import (
	"context"

	"github.com/barncase/barn/pkg/authz"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/barncase/barn/pkg/middleware"
	"github.com/barncase/barn/pkg/money"
	animalsvc "github.com/barncase/barn/pkg/service/animal"
	authsvc "github.com/barncase/barn/pkg/service/auth"
	ledgersvc "github.com/barncase/barn/pkg/service/ledger"
	usersvc "github.com/barncase/barn/pkg/service/user"
	"github.com/barncase/barn/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func Routes(
	app *fiber.App,
	userSvc *usersvc.Service,
	ledgerSvc *ledgersvc.Service,
	animalSvc *animalsvc.Service,
	authSvc *authsvc.Service,
) {
	g := app.Group("/api/users", middleware.JwtProtected(authSvc))
	g.Get("/", ListUsers(userSvc))
	g.Post("/", CreateUser(userSvc))
	g.Get("/:id", GetUser(userSvc))
	g.Put("/:id", UpdateUser(userSvc))
	g.Delete("/:id", DeleteUser(userSvc))
	g.Post("/:id/deposit", Deposit(userSvc))
	g.Post("/:id/withdraw", Withdraw(userSvc))
	g.Get("/:id/ledger", Ledger(ledgerSvc))
	g.Get("/:id/animals/counts", AnimalCounts(animalSvc))
}

// ListUsers pages through users with ?skip and ?take. Admins only.
func ListUsers(userSvc *usersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		skip, take := usersvc.ClampPage(common.QueryInt(c, "skip", 0), common.QueryInt(c, "take", 0))
		users, err := userSvc.List(c.Context(), caller, skip, take)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't list users", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Users found", fiber.Map{
			"skip":  skip,
			"take":  take,
			"users": users,
		})
	}
}

// CreateUser adds a user with an optional opening balance. Admins only.
func CreateUser(userSvc *usersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[NewUser](c)
		if input == nil {
			return err // error response already written
		}
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		role, err := user.ParseRole(input.Role)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid role", err)
		}
		u, err := userSvc.Create(c.Context(), caller, input.Name, input.Password, role, input.OpeningBalance)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't create user", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Created user", u)
	}
}

func GetUser(userSvc *usersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid user ID", err)
		}
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		u, err := userSvc.Get(c.Context(), caller, id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't get user", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "User found", u)
	}
}

func UpdateUser(userSvc *usersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[UpdateUserInput](c)
		if input == nil {
			return err // error response already written
		}
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid user ID", err)
		}
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		upd := usersvc.Update{Name: input.Name}
		if input.Role != nil {
			role, err := user.ParseRole(*input.Role)
			if err != nil {
				return common.ProblemDetailsJSON(c, "Invalid role", err)
			}
			upd.Role = &role
		}
		u, err := userSvc.Update(c.Context(), caller, id, upd)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't update user", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "User updated successfully", u)
	}
}

func DeleteUser(userSvc *usersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid user ID", err)
		}
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		if err := userSvc.Delete(c.Context(), caller, id); err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't delete user", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusNoContent, "User successfully deleted", nil)
	}
}

// Deposit credits a user. Admins only.
func Deposit(userSvc *usersvc.Service) fiber.Handler {
	return adjust(userSvc.Deposit, "Deposit successful")
}

// Withdraw debits a user. Admins or the user.
func Withdraw(userSvc *usersvc.Service) fiber.Handler {
	return adjust(userSvc.Withdraw, "Withdrawal successful")
}

type balanceOp func(ctx context.Context, caller authz.Caller, id uuid.UUID, amount money.Money) (*user.User, error)

func adjust(op balanceOp, msg string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[AmountInput](c)
		if input == nil {
			return err // error response already written
		}
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid user ID", err)
		}
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		u, err := op(c.Context(), caller, id, input.Amount)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't adjust balance", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, msg, fiber.Map{"balance": u.Balance})
	}
}

// Ledger lists a user's ledger entries, oldest first.
func Ledger(ledgerSvc *ledgersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid user ID", err)
		}
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		entries, err := ledgerSvc.List(c.Context(), caller, id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't list ledger", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Ledger entries fetched", entries)
	}
}

// AnimalCounts returns alive animals per species across the user's farms.
func AnimalCounts(animalSvc *animalsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid user ID", err)
		}
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		counts, err := animalSvc.GetAnimalCountsForUser(c.Context(), caller, id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't count animals", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Animal counts fetched", counts)
	}
}
