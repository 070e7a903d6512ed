package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"sherise/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// EventChannelPattern matches every event channel.
const EventChannelPattern = "events:*"

// EventChannel is the Redis channel of a scope: events:shared or events:user:<id>.
func EventChannel(scope string) string {
	return "events:" + scope
}

// Notifier publishes events into Redis so other instances can deliver them.
// With a nil client every call is a no-op.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether a Redis client is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishEvent sends e on its scope's channel.
func (n *Notifier) PublishEvent(ctx context.Context, e Event) error {
	if !n.Enabled() {
		return nil
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, EventChannel(e.Scope), payload).Err()
}

// StartEventSubscriber pattern-subscribes to every event channel and calls onEvent for each
// decodable message until ctx is cancelled. It returns once the subscription is confirmed.
func (n *Notifier) StartEventSubscriber(ctx context.Context, onEvent func(Event)) error {
	if !n.Enabled() {
		return nil
	}
	return n.startPatternSubscriber(ctx, func(channel, payload string) {
		var e Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			middleware.Logger.Warn("Dropping undecodable event",
				slog.String("channel", channel),
				slog.String("error", err.Error()),
			)
			return
		}
		onEvent(e)
	}, EventChannelPattern)
}

func (n *Notifier) startPatternSubscriber(ctx context.Context, onMessage func(channel, payload string), patterns ...string) error {
	sub := n.rdb.PSubscribe(ctx, patterns...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("psubscribe %v: %w", patterns, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("Panic in event subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
