package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/barncase/barn/pkg/domain"
	"github.com/barncase/barn/pkg/money"
	"github.com/barncase/barn/pkg/utils"
	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is returned when a user cannot be found in the
	// repository.
	ErrUserNotFound = fmt.Errorf("user not found: %w", domain.ErrNotFound)
	// ErrInvalidRole is returned for a role outside User and Admin.
	ErrInvalidRole = fmt.Errorf("invalid role: %w", domain.ErrValidation)
	// ErrEmptyName is returned when the user name is blank.
	ErrEmptyName = fmt.Errorf("name cannot be empty: %w", domain.ErrValidation)
	// ErrEmptyPassword is returned when the password is blank.
	ErrEmptyPassword = fmt.Errorf("password cannot be empty: %w", domain.ErrValidation)
)

// Role is the coarse permission level of a user.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// ParseRole accepts role names case-insensitively. Empty means RoleUser.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "user":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	}
	return "", ErrInvalidRole
}

// User is a player. Balance changes only through ledger-backed operations.
type User struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	Role         Role        `json:"role"`
	Balance      money.Money `json:"balance"`
	PasswordHash []byte      `json:"-"`
	PasswordSalt []byte      `json:"-"`
	Version      int64       `json:"-"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// New creates a User with a hashed password and zero balance.
func New(name, password string, role Role) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}
	if role != RoleUser && role != RoleAdmin {
		return nil, ErrInvalidRole
	}
	hash, salt, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New(),
		Name:         name,
		Role:         role,
		PasswordHash: hash,
		PasswordSalt: salt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CheckPassword verifies password against the stored credential.
func (u *User) CheckPassword(password string) bool {
	return utils.CheckPasswordHash(password, u.PasswordHash, u.PasswordSalt)
}

// Rename changes the display name.
func (u *User) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	u.Name = name
	return nil
}

// Credit adds a positive or zero amount to the balance.
func (u *User) Credit(amount money.Money) error {
	if amount.IsNegative() {
		return domain.ErrAmountMustBePositive
	}
	u.Balance = u.Balance.Add(amount)
	return nil
}

// Debit removes amount from the balance. The balance never goes negative.
func (u *User) Debit(amount money.Money) error {
	if amount.IsNegative() {
		return domain.ErrAmountMustBePositive
	}
	if u.Balance.LessThan(amount) {
		return domain.ErrInsufficientBalance
	}
	u.Balance = u.Balance.Sub(amount)
	return nil
}
