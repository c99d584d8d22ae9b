package animal

import (
	"github.com/barncase/barn/pkg/domain/animal"
	"github.com/barncase/barn/pkg/middleware"
	animalsvc "github.com/barncase/barn/pkg/service/animal"
	authsvc "github.com/barncase/barn/pkg/service/auth"
	"github.com/barncase/barn/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// BuyInput is the request body for buying an animal.
type BuyInput struct {
	FarmID  uuid.UUID `json:"farmId" validate:"required"`
	Species string    `json:"species" validate:"required"`
}

func Routes(app *fiber.App, animalSvc *animalsvc.Service, authSvc *authsvc.Service) {
	g := app.Group("/api/animals", middleware.JwtProtected(authSvc))
	g.Post("/buy", Buy(animalSvc))
	g.Post("/:id/sell", Sell(animalSvc))
}

// Buy debits the species price and places the animal on the farm.
func Buy(animalSvc *animalsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[BuyInput](c)
		if input == nil {
			return err // error response already written
		}
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		species, err := animal.ParseSpecies(input.Species)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unknown species", err)
		}
		a, err := animalSvc.BuyAnimal(c.Context(), caller.UserID, input.FarmID, species)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't buy animal", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Animal bought", a)
	}
}

// Sell removes the animal and credits its sale price.
func Sell(animalSvc *animalsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid animal ID", err)
		}
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		price, err := animalSvc.SellAnimal(c.Context(), caller.UserID, id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't sell animal", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Animal sold", fiber.Map{"price": price})
	}
}
