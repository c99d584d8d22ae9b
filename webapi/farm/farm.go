package farm

import (
	"github.com/barncase/barn/pkg/middleware"
	animalsvc "github.com/barncase/barn/pkg/service/animal"
	authsvc "github.com/barncase/barn/pkg/service/auth"
	farmsvc "github.com/barncase/barn/pkg/service/farm"
	"github.com/barncase/barn/pkg/service/production"
	"github.com/barncase/barn/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// NewFarm is the request body for creating a farm.
type NewFarm struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

func Routes(
	app *fiber.App,
	farmSvc *farmsvc.Service,
	animalSvc *animalsvc.Service,
	engine *production.Engine,
	authSvc *authsvc.Service,
) {
	g := app.Group("/api/farms", middleware.JwtProtected(authSvc))
	g.Post("/", CreateFarm(farmSvc))
	g.Get("/", ListFarms(farmSvc))
	g.Get("/mine", MyFarms(farmSvc))
	g.Get("/:id", GetFarm(farmSvc))
	g.Delete("/:id", DeleteFarm(farmSvc))
	g.Get("/:id/animals", FarmAnimals(animalSvc))
	g.Get("/:id/products", FarmProducts(farmSvc))
	g.Post("/:id/tick", Tick(engine))
}

func CreateFarm(farmSvc *farmsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[NewFarm](c)
		if input == nil {
			return err // error response already written
		}
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		f, err := farmSvc.Create(c.Context(), caller, input.Name)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't create farm", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Farm created", f)
	}
}

// ListFarms returns every farm. Admins only.
func ListFarms(farmSvc *farmsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		farms, err := farmSvc.List(c.Context(), caller)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't list farms", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Farms found", farms)
	}
}

func MyFarms(farmSvc *farmsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		farms, err := farmSvc.Mine(c.Context(), caller)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't list farms", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Farms found", farms)
	}
}

// GetFarm returns the farm with its animals and products.
func GetFarm(farmSvc *farmsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid farm ID", err)
		}
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		details, err := farmSvc.Get(c.Context(), caller, id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't get farm", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Farm found", details)
	}
}

func DeleteFarm(farmSvc *farmsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid farm ID", err)
		}
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		if err := farmSvc.Delete(c.Context(), caller, id); err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't delete farm", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusNoContent, "Farm deleted", nil)
	}
}

func FarmAnimals(animalSvc *animalsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid farm ID", err)
		}
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		animals, err := animalSvc.GetAnimalsByFarm(c.Context(), caller, id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't list animals", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Animals found", animals)
	}
}

func FarmProducts(farmSvc *farmsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid farm ID", err)
		}
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		products, err := farmSvc.Products(c.Context(), caller, id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't list products", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Products found", products)
	}
}

// Tick runs the production engine for one farm now. Admins only.
func Tick(engine *production.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid farm ID", err)
		}
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		created, err := engine.TickNow(c.Context(), caller, id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't tick farm", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Farm ticked", fiber.Map{"created": created})
	}
}
