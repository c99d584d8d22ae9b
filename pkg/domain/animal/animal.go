package animal

import (
	"fmt"
	"time"

	"github.com/barncase/barn/pkg/domain"
	"github.com/barncase/barn/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrAnimalNotFound is returned when an animal cannot be found.
var ErrAnimalNotFound = fmt.Errorf("animal not found: %w", domain.ErrNotFound)

// resaleRatio is the share of the purchase price paid back for a live animal.
var resaleRatio = decimal.RequireFromString("0.7")

const day = 24 * time.Hour

// Animal is a producing asset on a farm.
type Animal struct {
	ID                        uuid.UUID   `json:"id"`
	FarmID                    uuid.UUID   `json:"farmId"`
	Species                   Species     `json:"species"`
	PurchasedAt               time.Time   `json:"purchasedAt"`
	PurchasePrice             money.Money `json:"purchasePrice"`
	LifeSpanInDays            int         `json:"lifeSpanInDays"`
	RemainingLifeDays         int         `json:"remainingLifeDays"`
	ProductionIntervalMinutes int         `json:"productionIntervalMinutes"`
	LastProductionAt          *time.Time  `json:"lastProductionAt,omitempty"`
	IsAlive                   bool        `json:"isAlive"`
}

// New creates a live animal of a known species bought at now.
func New(farmID uuid.UUID, species Species, now time.Time) (*Animal, error) {
	spec, ok := SpecFor(species)
	if !ok {
		return nil, domain.ErrUnknownSpecies
	}
	return &Animal{
		ID:                        uuid.New(),
		FarmID:                    farmID,
		Species:                   species,
		PurchasedAt:               now,
		PurchasePrice:             spec.Price,
		LifeSpanInDays:            spec.LifeSpanInDays,
		RemainingLifeDays:         spec.LifeSpanInDays,
		ProductionIntervalMinutes: spec.ProductionIntervalMinutes,
		IsAlive:                   true,
	}, nil
}

// SalePrice is 70% of the purchase price while alive and zero after death.
func (a *Animal) SalePrice() money.Money {
	if !a.IsAlive {
		return money.Zero
	}
	return a.PurchasePrice.MulRatio(resaleRatio)
}

// Outcome reports what Advance changed.
type Outcome struct {
	Changed  bool
	Died     bool
	Produced bool
}

// Advance moves the animal's lifecycle forward to now. Death is evaluated
// before production, so an animal never produces on the tick it dies.
// Calling Advance again with the same now changes nothing.
func (a *Animal) Advance(now time.Time) Outcome {
	if !a.IsAlive {
		return Outcome{}
	}
	var out Outcome

	days := a.DaysSincePurchase(now)
	remaining := a.LifeSpanInDays - days
	if remaining < 0 {
		remaining = 0
	}
	// remaining life only ever decreases
	if remaining < a.RemainingLifeDays {
		a.RemainingLifeDays = remaining
		out.Changed = true
	}

	if days >= a.LifeSpanInDays {
		a.IsAlive = false
		a.RemainingLifeDays = 0
		out.Changed = true
		out.Died = true
		return out
	}

	if a.productionDue(now) {
		at := now
		a.LastProductionAt = &at
		out.Changed = true
		out.Produced = true
	}
	return out
}

// DaysSincePurchase is the number of whole days elapsed at now.
func (a *Animal) DaysSincePurchase(now time.Time) int {
	elapsed := now.Sub(a.PurchasedAt)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / day)
}

func (a *Animal) productionDue(now time.Time) bool {
	if a.LastProductionAt == nil {
		return true
	}
	interval := a.ProductionIntervalMinutes
	if interval <= 0 {
		interval = 1
	}
	return now.Sub(*a.LastProductionAt) >= time.Duration(interval)*time.Minute
}
