package notifications

import (
	"context"
	"log/slog"

	"sherise/internal/middleware"

	"github.com/google/uuid"
)

// Relay joins the local bus to other instances through the Notifier.
// Local events are stamped with this instance's origin and pushed to Redis; events
// arriving from Redis with a different origin are replayed into the local bus.
type Relay struct {
	bus         *Bus
	notifier    *Notifier
	origin      string
	unsubscribe func()
}

// NewRelay creates a relay with a random origin id.
func NewRelay(bus *Bus, notifier *Notifier) *Relay {
	return &Relay{bus: bus, notifier: notifier, origin: uuid.NewString()}
}

// Origin identifies this instance in relayed events.
func (r *Relay) Origin() string { return r.origin }

// Start wires both directions. Without Redis it does nothing.
func (r *Relay) Start(ctx context.Context) error {
	if !r.notifier.Enabled() {
		return nil
	}

	r.unsubscribe = r.bus.Subscribe(AllEvents, func(ctx context.Context, e Event) {
		if e.Origin != "" {
			return
		}
		e.Origin = r.origin
		if err := r.notifier.PublishEvent(ctx, e); err != nil {
			middleware.Logger.WarnContext(ctx, "Failed to relay event",
				slog.String("event", e.Name),
				slog.String("error", err.Error()),
			)
		}
	})

	return r.notifier.StartEventSubscriber(ctx, func(e Event) {
		if e.Origin == "" || e.Origin == r.origin {
			return
		}
		r.bus.Publish(ctx, e)
	})
}

// Stop detaches from the bus. Cancelling the Start context ends the Redis side.
func (r *Relay) Stop() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
}
