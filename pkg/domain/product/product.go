package product

import (
	"fmt"
	"time"

	"github.com/barncase/barn/pkg/domain"
	"github.com/barncase/barn/pkg/money"
	"github.com/google/uuid"
)

var (
	// ErrProductNotFound is returned when a product cannot be found.
	ErrProductNotFound = fmt.Errorf("product not found: %w", domain.ErrNotFound)
	// ErrAlreadySold is returned when selling a product twice.
	ErrAlreadySold = fmt.Errorf("product already sold: %w", domain.ErrConflict)
)

// Type names a kind of produced good.
type Type string

const (
	Milk Type = "Milk"
	Eggs Type = "Eggs"
	Wool Type = "Wool"
)

// Batch is the output of one production event.
type Batch struct {
	Quantity  int
	UnitPrice money.Money
}

var batches = map[Type]Batch{
	Milk: {Quantity: 5, UnitPrice: money.MustParse("2.50")},
	Eggs: {Quantity: 3, UnitPrice: money.MustParse("0.40")},
	Wool: {Quantity: 1, UnitPrice: money.MustParse("5.00")},
}

// BatchFor returns the production batch for t.
func BatchFor(t Type) (Batch, bool) {
	b, ok := batches[t]
	return b, ok
}

// ParseType validates a product type name.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if _, ok := batches[t]; !ok {
		return "", domain.ErrUnknownProductType
	}
	return t, nil
}

// Product is a batch of goods. FarmID and AnimalID are uuid.Nil once the
// farm or animal is gone; sold rows are kept as history.
type Product struct {
	ID        uuid.UUID   `json:"id"`
	FarmID    uuid.UUID   `json:"farmId"`
	AnimalID  uuid.UUID   `json:"animalId"`
	Type      Type        `json:"type"`
	Quantity  int         `json:"quantity"`
	UnitPrice money.Money `json:"unitPrice"`
	CreatedAt time.Time   `json:"createdAt"`
	IsSold    bool        `json:"isSold"`
	SoldAt    *time.Time  `json:"soldAt,omitempty"`
	SoldTotal money.Money `json:"soldTotal"`
}

// New creates an unsold product from a batch.
func New(farmID, animalID uuid.UUID, t Type, b Batch, now time.Time) *Product {
	return &Product{
		ID:        uuid.New(),
		FarmID:    farmID,
		AnimalID:  animalID,
		Type:      t,
		Quantity:  b.Quantity,
		UnitPrice: b.UnitPrice,
		CreatedAt: now,
	}
}

// Total is the value of the whole row at its unit price.
func (p *Product) Total() money.Money {
	return p.UnitPrice.Times(p.Quantity)
}

// MarkSold freezes the row as sold for total.
func (p *Product) MarkSold(total money.Money, now time.Time) error {
	if p.IsSold {
		return ErrAlreadySold
	}
	p.IsSold = true
	p.SoldAt = &now
	p.SoldTotal = total
	return nil
}

// Split keeps units on p and returns a new unsold row with the rest.
// The remainder keeps the original creation time so FIFO order holds.
func (p *Product) Split(units int) (*Product, error) {
	if p.IsSold {
		return nil, ErrAlreadySold
	}
	if units <= 0 || units >= p.Quantity {
		return nil, fmt.Errorf("split %d of %d units: %w", units, p.Quantity, domain.ErrValidation)
	}
	rest := *p
	rest.ID = uuid.New()
	rest.Quantity = p.Quantity - units
	p.Quantity = units
	return &rest, nil
}
