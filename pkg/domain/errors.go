package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	// ErrNotFound is returned when a requested resource is not found
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists is returned when trying to create a resource that already exists
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrConflict is returned when a concurrent writer changed the resource first
	ErrConflict = errors.New("resource was modified concurrently")
	// ErrValidation is returned when input validation fails
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized is returned when the caller is not authenticated
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when a user is not allowed to perform an action
	ErrForbidden = errors.New("forbidden")
)

// Specialised invalid-argument errors. They all match ErrValidation.
var (
	ErrInsufficientBalance  = fmt.Errorf("insufficient balance: %w", ErrValidation)
	ErrInsufficientQuantity = fmt.Errorf("insufficient product quantity: %w", ErrValidation)
	ErrUnknownSpecies       = fmt.Errorf("unknown species: %w", ErrValidation)
	ErrUnknownProductType   = fmt.Errorf("unknown product type: %w", ErrValidation)
	ErrAmountMustBePositive = fmt.Errorf("amount must be positive: %w", ErrValidation)
)
