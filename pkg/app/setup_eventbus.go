package app

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/barncase/barn/pkg/domain/events"
	"github.com/barncase/barn/pkg/eventbus"
)

// Activity counts the domain events seen on the bus since startup.
type Activity struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewActivity() *Activity {
	return &Activity{counts: make(map[string]int)}
}

func (a *Activity) record(eventType string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts[eventType]++
}

// Snapshot returns a copy of the counters.
func (a *Activity) Snapshot() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return maps.Clone(a.counts)
}

// setupEventBus registers the audit handlers for every domain event.
func (a *App) setupEventBus() {
	if a.Activity == nil {
		a.Activity = NewActivity()
	}
	for _, t := range slices.Sorted(maps.Keys(events.Factories())) {
		a.Deps.EventBus.Register(t, auditHandler(a.Activity, a.Deps.Logger))
	}
}

func auditHandler(activity *Activity, logger *slog.Logger) eventbus.HandlerFunc {
	log := logger.With("component", "audit")
	return func(_ context.Context, e events.Event) error {
		activity.record(e.Type())
		switch ev := e.(type) {
		case *events.AnimalPurchased:
			log.Info("Animal purchased", "userID", ev.UserID, "farmID", ev.FarmID, "species", ev.Species, "price", ev.Price)
		case *events.AnimalSold:
			log.Info("Animal sold", "userID", ev.UserID, "animalID", ev.AnimalID, "amount", ev.Amount, "alive", ev.Alive)
		case *events.ProductsSold:
			log.Info("Products sold", "userID", ev.UserID, "units", ev.Units, "total", ev.Total)
		case *events.ProductionTicked:
			if ev.Died > 0 {
				log.Warn("Animals died", "farmID", ev.FarmID, "died", ev.Died)
			}
			log.Debug("Production ticked", "farmID", ev.FarmID, "created", ev.Created)
		case *events.BalanceAdjusted:
			log.Info("Balance adjusted", "userID", ev.UserID, "kind", ev.Kind, "amount", ev.Amount)
		default:
			log.Debug("Event", "type", e.Type())
		}
		return nil
	}
}
