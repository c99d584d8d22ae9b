package farm

import (
	"fmt"
	"strings"
	"time"

	"github.com/barncase/barn/pkg/domain"
	"github.com/google/uuid"
)

var (
	// ErrFarmNotFound is returned when a farm cannot be found.
	ErrFarmNotFound = fmt.Errorf("farm not found: %w", domain.ErrNotFound)
	// ErrEmptyName is returned when the farm name is blank.
	ErrEmptyName = fmt.Errorf("farm name cannot be empty: %w", domain.ErrValidation)
)

// Farm groups animals and their products under one owner.
type Farm struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OwnerID   uuid.UUID `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}

// New creates a farm owned by ownerID.
func New(name string, ownerID uuid.UUID) (*Farm, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	return &Farm{
		ID:        uuid.New(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}, nil
}
