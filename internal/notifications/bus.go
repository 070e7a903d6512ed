package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"sherise/internal/middleware"
	"sherise/internal/observability"
)

// AllEvents subscribes a handler to every event name.
const AllEvents = "*"

// Handler receives a published event on the publisher's goroutine.
type Handler func(ctx context.Context, e Event)

type subscription struct {
	name    string
	handler Handler
	active  atomic.Bool
}

// Bus is the in-process notifier. Publish delivers synchronously, in subscription
// order, to the handlers subscribed at that moment.
type Bus struct {
	mu   sync.RWMutex
	subs []*subscription
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers handler for events named name (or AllEvents).
// The returned function removes it and may be called any number of times.
func (b *Bus) Subscribe(name string, handler Handler) (unsubscribe func()) {
	sub := &subscription{name: name, handler: handler}
	sub.active.Store(true)

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s == sub {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers e to every matching subscriber before returning.
// A panicking handler is logged and skipped; later handlers still run.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	observability.EventsPublished.WithLabelValues(e.Name).Inc()

	span, ctx := observability.NewSpan(ctx, "notify "+e.Name,
		observability.AttrEventName.String(e.Name),
		observability.AttrEventScope.String(e.Scope),
	)
	defer span.End()

	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.name == e.Name || s.name == AllEvents {
			subs = append(subs, s)
		}
	}
	b.mu.RUnlock()
	span.AddAttributes(observability.AttrSubscribers.Int(len(subs)))

	for _, s := range subs {
		if !s.active.Load() {
			continue
		}
		b.deliver(ctx, s, e)
	}
}

func (b *Bus) deliver(ctx context.Context, s *subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			observability.EventHandlerPanics.WithLabelValues(e.Name).Inc()
			middleware.Logger.ErrorContext(ctx, "Event handler panicked",
				slog.String("event", e.Name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	s.handler(ctx, e)
}

// Len reports the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
