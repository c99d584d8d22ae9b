package user

import "github.com/barncase/barn/pkg/money"

// NewUser is the admin request body for creating a user.
type NewUser struct {
	Name           string      `json:"name" validate:"required,min=3,max=50"`
	Password       string      `json:"password" validate:"required,min=6,max=72"`
	Role           string      `json:"role" validate:"omitempty,oneof=User Admin user admin"`
	OpeningBalance money.Money `json:"openingBalance" validate:"gte=0"`
}

// UpdateUserInput carries optional changes; omitted fields are kept.
type UpdateUserInput struct {
	Name *string `json:"name" validate:"omitempty,min=3,max=50"`
	Role *string `json:"role" validate:"omitempty,oneof=User Admin user admin"`
}

// AmountInput is the body of deposit and withdraw.
type AmountInput struct {
	Amount money.Money `json:"amount" validate:"gt=0"`
}
