package animal

import (
	"github.com/barncase/barn/pkg/domain"
	"github.com/barncase/barn/pkg/domain/product"
	"github.com/barncase/barn/pkg/money"
)

// Species names a kind of animal.
type Species string

const (
	Cow     Species = "Cow"
	Chicken Species = "Chicken"
	Sheep   Species = "Sheep"
)

// Spec holds the fixed economics and timing of a species.
type Spec struct {
	Price                     money.Money
	LifeSpanInDays            int
	ProductionIntervalMinutes int
	Product                   product.Type
}

var specs = map[Species]Spec{
	Cow:     {Price: money.MustParse("500"), LifeSpanInDays: 90, ProductionIntervalMinutes: 1, Product: product.Milk},
	Chicken: {Price: money.MustParse("50"), LifeSpanInDays: 45, ProductionIntervalMinutes: 120, Product: product.Eggs},
	Sheep:   {Price: money.MustParse("200"), LifeSpanInDays: 60, ProductionIntervalMinutes: 180, Product: product.Wool},
}

// AllSpecies returns all purchasable species.
func AllSpecies() []Species {
	return []Species{Cow, Chicken, Sheep}
}

// SpecFor returns the spec of a known species.
func SpecFor(s Species) (Spec, bool) {
	spec, ok := specs[s]
	return spec, ok
}

// ParseSpecies validates a species name.
func ParseSpecies(s string) (Species, error) {
	sp := Species(s)
	if _, ok := specs[sp]; !ok {
		return "", domain.ErrUnknownSpecies
	}
	return sp, nil
}

// ProductionFor returns what s produces per batch. Unknown species fall
// back to the Cow batch and report ok=false.
func ProductionFor(s Species) (product.Type, product.Batch, bool) {
	spec, ok := specs[s]
	if !ok {
		spec = specs[Cow]
	}
	b, _ := product.BatchFor(spec.Product)
	return spec.Product, b, ok
}
