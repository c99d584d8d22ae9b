// Package events declares the domain events published after a unit of work commits.
package events

import (
	"time"

	"github.com/barncase/barn/pkg/money"
	"github.com/google/uuid"
)

// Event is anything that can travel on the bus.
type Event interface {
	Type() string
}

// EventType represents the type of an event in the system.
type EventType string

const (
	EventTypeAnimalPurchased  EventType = "Animal.Purchased"
	EventTypeAnimalSold       EventType = "Animal.Sold"
	EventTypeProductsSold     EventType = "Products.Sold"
	EventTypeProductionTicked EventType = "Production.Ticked"
	EventTypeBalanceAdjusted  EventType = "Balance.Adjusted"
)

func (t EventType) String() string { return string(t) }

type AnimalPurchased struct {
	UserID   uuid.UUID   `json:"userId"`
	FarmID   uuid.UUID   `json:"farmId"`
	AnimalID uuid.UUID   `json:"animalId"`
	Species  string      `json:"species"`
	Price    money.Money `json:"price"`
	At       time.Time   `json:"at"`
}

func (AnimalPurchased) Type() string { return EventTypeAnimalPurchased.String() }

type AnimalSold struct {
	UserID   uuid.UUID   `json:"userId"`
	AnimalID uuid.UUID   `json:"animalId"`
	Species  string      `json:"species"`
	Amount   money.Money `json:"amount"`
	Alive    bool        `json:"alive"`
	At       time.Time   `json:"at"`
}

func (AnimalSold) Type() string { return EventTypeAnimalSold.String() }

type ProductsSold struct {
	UserID     uuid.UUID   `json:"userId"`
	ProductIDs []uuid.UUID `json:"productIds"`
	Units      int         `json:"units"`
	Total      money.Money `json:"total"`
	At         time.Time   `json:"at"`
}

func (ProductsSold) Type() string { return EventTypeProductsSold.String() }

type ProductionTicked struct {
	FarmID  uuid.UUID `json:"farmId"`
	Created int       `json:"created"`
	Died    int       `json:"died"`
	At      time.Time `json:"at"`
}

func (ProductionTicked) Type() string { return EventTypeProductionTicked.String() }

type BalanceAdjusted struct {
	UserID uuid.UUID   `json:"userId"`
	Kind   string      `json:"kind"`
	Amount money.Money `json:"amount"`
	At     time.Time   `json:"at"`
}

func (BalanceAdjusted) Type() string { return EventTypeBalanceAdjusted.String() }

// Factories maps event types to constructors for decoding bus payloads.
func Factories() map[string]func() Event {
	return map[string]func() Event{
		EventTypeAnimalPurchased.String():  func() Event { return &AnimalPurchased{} },
		EventTypeAnimalSold.String():       func() Event { return &AnimalSold{} },
		EventTypeProductsSold.String():     func() Event { return &ProductsSold{} },
		EventTypeProductionTicked.String(): func() Event { return &ProductionTicked{} },
		EventTypeBalanceAdjusted.String():  func() Event { return &BalanceAdjusted{} },
	}
}
