package product

import (
	"github.com/barncase/barn/pkg/domain/product"
	"github.com/barncase/barn/pkg/middleware"
	authsvc "github.com/barncase/barn/pkg/service/auth"
	productsvc "github.com/barncase/barn/pkg/service/product"
	"github.com/barncase/barn/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SellInput selects products either by id on one farm or by type and
// quantity across all the caller's farms.
type SellInput struct {
	FarmID     uuid.UUID   `json:"farmId" validate:"required_with=ProductIDs"`
	ProductIDs []uuid.UUID `json:"productIds" validate:"omitempty,max=500"`
	Type       string      `json:"type" validate:"required_without=ProductIDs"`
	Quantity   int         `json:"quantity" validate:"required_without=ProductIDs,gte=0"`
}

func Routes(app *fiber.App, productSvc *productsvc.Service, authSvc *authsvc.Service) {
	g := app.Group("/api/products", middleware.JwtProtected(authSvc))
	g.Post("/sell", Sell(productSvc))
}

func Sell(productSvc *productsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[SellInput](c)
		if input == nil {
			return err // error response already written
		}
		caller, err := middleware.Caller(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		sel := productsvc.Selection{
			FarmID:     input.FarmID,
			ProductIDs: input.ProductIDs,
			Quantity:   input.Quantity,
		}
		if !sel.ByIDs() {
			t, err := product.ParseType(input.Type)
			if err != nil {
				return common.ProblemDetailsJSON(c, "Unknown product type", err)
			}
			sel.Type = t
		}
		sale, err := productSvc.SellProducts(c.Context(), caller.UserID, sel)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't sell products", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Products sold", sale)
	}
}
