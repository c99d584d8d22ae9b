package auth

// RegisterInput is the sign-up request body.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=User Admin user admin"`
}

// LoginInput is the request body for password authentication.
type LoginInput struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshInput carries a refresh token for rotation or revocation.
type RefreshInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}
