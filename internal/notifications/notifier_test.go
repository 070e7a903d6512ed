package notifications

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNotifier_NilRedisIsANoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishEvent(context.Background(), SharedEvent(EventHiringUpdated, nil)))
	assert.NoError(t, n.StartEventSubscriber(context.Background(), func(Event) {}))
}

func TestEventChannel(t *testing.T) {
	assert.Equal(t, "events:shared", EventChannel("shared"))
	assert.Equal(t, "events:user:4", EventChannel("user:4"))
}

func TestNotifier_RoundTrip(t *testing.T) {
	n := NewNotifier(newRedis(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu  sync.Mutex
		got []Event
	)
	require.NoError(t, n.StartEventSubscriber(ctx, func(e Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	}))

	require.NoError(t, n.PublishEvent(context.Background(), UserEvent(EventCartUpdated, 9, map[string]int{"count": 1})))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, testEventuallyTimeout, testPollInterval)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, EventCartUpdated, got[0].Name)
	assert.Equal(t, "user:9", got[0].Scope)
}

func TestRelay_CrossInstanceDeliveryWithoutEcho(t *testing.T) {
	rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	busA, busB := NewBus(), NewBus()
	relayA := NewRelay(busA, NewNotifier(rdb))
	relayB := NewRelay(busB, NewNotifier(rdb))
	require.NoError(t, relayA.Start(ctx))
	require.NoError(t, relayB.Start(ctx))
	defer relayA.Stop()
	defer relayB.Stop()

	var (
		mu         sync.Mutex
		onA, onB   int
		remoteSeen Event
	)
	busA.Subscribe(EventHiringUpdated, func(context.Context, Event) {
		mu.Lock()
		onA++
		mu.Unlock()
	})
	busB.Subscribe(EventHiringUpdated, func(_ context.Context, e Event) {
		mu.Lock()
		onB++
		remoteSeen = e
		mu.Unlock()
	})

	busA.Publish(ctx, SharedEvent(EventHiringUpdated, nil))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return onB == 1
	}, testEventuallyTimeout, testPollInterval)

	assert.Never(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return onA > 1 || onB > 1
	}, 20*testPollInterval, testPollInterval)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, relayA.Origin(), remoteSeen.Origin)
}

func TestRelay_WithoutRedisDoesNothing(t *testing.T) {
	bus := NewBus()
	relay := NewRelay(bus, NewNotifier(nil))
	require.NoError(t, relay.Start(context.Background()))
	assert.Zero(t, bus.Len())
	relay.Stop()
}
