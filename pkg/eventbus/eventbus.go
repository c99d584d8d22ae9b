// Package eventbus defines the publish/subscribe contract used by services.
package eventbus

import (
	"context"

	"github.com/barncase/barn/pkg/domain/events"
)

// HandlerFunc processes one event. A returned error is logged by the bus
// and never reaches the emitter.
type HandlerFunc func(ctx context.Context, e events.Event) error

// Bus dispatches events to the handlers registered for their type.
type Bus interface {
	Emit(ctx context.Context, event events.Event) error
	Register(eventType string, handler HandlerFunc)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Emit(context.Context, events.Event) error { return nil }
func (Nop) Register(string, HandlerFunc)             {}

var _ Bus = Nop{}
