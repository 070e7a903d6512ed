package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"sherise/internal/models"
	"sherise/internal/notifications"
	"sherise/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cookies = models.CartItem{Name: "Millet cookies", Business: "Asha Bakes", Price: "₹250"}

func TestAddToCart_SameLineIncrements(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCartService(env.store, env.bus)
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, 1, cookies)
	require.NoError(t, err)
	cart, err := svc.AddToCart(ctx, 1, cookies)
	require.NoError(t, err)

	require.Len(t, cart, 1)
	assert.Equal(t, 2, cart[0].Count)
	assert.Equal(t, cart, svc.Cart(ctx, 1))

	other := cookies
	other.Business = "Another Bakery"
	cart, err = svc.AddToCart(ctx, 1, other)
	require.NoError(t, err)
	require.Len(t, cart, 2)
	assert.Equal(t, 1, cart[1].Count)

	assert.Equal(t, []string{
		notifications.EventCartUpdated,
		notifications.EventCartUpdated,
		notifications.EventCartUpdated,
	}, env.events.names())
}

func TestAddToCart_RequiresName(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCartService(env.store, env.bus)

	_, err := svc.AddToCart(context.Background(), 1, models.CartItem{Business: "x"})
	assert.Equal(t, 400, models.StatusFor(err))
}

func TestUpdateQuantity_NeverBelowOne(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCartService(env.store, env.bus)
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, 1, cookies)
	require.NoError(t, err)

	for _, delta := range []int{-1, -5, -1000000} {
		cart, err := svc.UpdateQuantity(ctx, 1, 0, delta)
		require.NoError(t, err)
		assert.Equal(t, 1, cart[0].Count, "delta %d", delta)
	}

	cart, err := svc.UpdateQuantity(ctx, 1, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, cart[0].Count)

	cart, err = svc.UpdateQuantity(ctx, 1, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, cart[0].Count, "out of range index is a no-op")
}

func TestRemoveLine(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCartService(env.store, env.bus)
	ctx := context.Background()

	_, _ = svc.AddToCart(ctx, 1, cookies)
	_, _ = svc.AddToCart(ctx, 1, models.CartItem{Name: "Serum", Business: "Glow", Price: "499"})

	cart, err := svc.RemoveLine(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, "Serum", cart[0].Name)

	cart, err = svc.RemoveLine(ctx, 1, -1)
	require.NoError(t, err)
	assert.Len(t, cart, 1)
}

func TestSubtotal(t *testing.T) {
	cart := []models.CartItem{
		{Price: "₹1,299", Count: 2},
		{Price: "250", Count: 1},
		{Price: "free", Count: 3},
	}
	assert.EqualValues(t, 2848, Subtotal(cart))
}

func TestSubtotal_HugePricesDoNotWrap(t *testing.T) {
	cart := []models.CartItem{
		{Price: "₹99,999,999,999,999,999,999", Count: 1},
		{Price: "₹5,000,000,000,000,000,000", Count: 2},
		{Price: "₹10", Count: 1},
	}
	assert.Equal(t, int64(math.MaxInt64), Subtotal(cart))
	assert.Zero(t, Subtotal(cart[:1:1]), "an unreadable price counts as nothing")
	assert.EqualValues(t, 10, Subtotal([]models.CartItem{cart[0], cart[2]}))
}

func TestPlaceOrder_SnapshotsAndClearsCart(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCartService(env.store, env.bus)
	ctx := context.Background()

	_, _ = svc.AddToCart(ctx, 1, cookies)
	_, _ = svc.AddToCart(ctx, 1, cookies)
	before, err := svc.AddToCart(ctx, 1, models.CartItem{Name: "Serum", Business: "Glow", Price: "499"})
	require.NoError(t, err)

	order, err := svc.PlaceOrder(ctx, 1, PlaceOrderInput{
		Details: models.OrderDetails{Name: "Asha", Phone: "99999", Address: "1 Main St"},
		Note:    "leave at door",
	})
	require.NoError(t, err)

	assert.Empty(t, svc.Cart(ctx, 1))
	orders := svc.Orders(ctx, 1)
	require.Len(t, orders, 1)
	assert.Equal(t, before, orders[0].Items)
	assert.Equal(t, order.ID, orders[0].ID)
	assert.EqualValues(t, 250*2+499, orders[0].Total)
	assert.Equal(t, "leave at door", orders[0].Note)

	view := svc.Checkout(ctx, 1)
	assert.Equal(t, models.PhaseOrderPlaced, view.Phase)
	assert.Equal(t, order.ID, view.LastOrderID)
	assert.Contains(t, env.events.names(), notifications.EventOrdersUpdated)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCartService(env.store, env.bus)

	_, err := svc.PlaceOrder(context.Background(), 1, PlaceOrderInput{})
	require.Error(t, err)
	assert.True(t, IsEmptyCart(err))
	assert.Equal(t, 400, models.StatusFor(err))
	assert.Empty(t, svc.Orders(context.Background(), 1))
}

type failOrdersBackend struct {
	*store.MemoryBackend
}

func (f failOrdersBackend) CompareAndSwap(ctx context.Context, scope, key string, value []byte, expect int64) (int64, error) {
	if key == models.SliceOrders {
		return 0, errors.New("disk full")
	}
	return f.MemoryBackend.CompareAndSwap(ctx, scope, key, value, expect)
}

func TestPlaceOrder_RestoresCartWhenOrderWriteFails(t *testing.T) {
	s := store.New(failOrdersBackend{store.NewMemoryBackend()})
	svc := NewCartService(s, notifications.NewBus())
	ctx := context.Background()

	before, err := svc.AddToCart(ctx, 1, cookies)
	require.NoError(t, err)

	_, err = svc.PlaceOrder(ctx, 1, PlaceOrderInput{})
	require.Error(t, err)
	assert.Equal(t, before, svc.Cart(ctx, 1))
}

func TestCheckoutTransitions(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCartService(env.store, env.bus)
	ctx := context.Background()

	step := func(action string, want models.CheckoutPhase) CheckoutView {
		t.Helper()
		view, err := svc.Transition(ctx, 1, action)
		require.NoError(t, err)
		assert.Equal(t, want, view.Phase, action)
		return view
	}

	assert.Equal(t, models.PhaseBrowsing, svc.Checkout(ctx, 1).Phase)
	step(ActionOpenCart, models.PhaseCartOpen)
	both := step(ActionOpenCheckout, models.PhaseCheckoutOpen)
	assert.True(t, both.CartOpen, "cart and checkout may be open together")
	step(ActionCloseCheckout, models.PhaseCartOpen)
	step(ActionCloseCart, models.PhaseBrowsing)

	_, _ = svc.AddToCart(ctx, 1, cookies)
	step(ActionOpenCheckout, models.PhaseCheckoutOpen)
	_, err := svc.PlaceOrder(ctx, 1, PlaceOrderInput{})
	require.NoError(t, err)
	assert.Equal(t, models.PhaseOrderPlaced, svc.Checkout(ctx, 1).Phase)

	after := step(ActionOpenCart, models.PhaseBrowsing)
	assert.NotEmpty(t, after.LastOrderID)

	_, err = svc.Transition(ctx, 1, "teleport")
	assert.Equal(t, 400, models.StatusFor(err))
}

func TestAddToCart_ConcurrentAddsAreNotLost(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCartService(env.store, env.bus)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddToCart(ctx, 1, cookies)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	cart := svc.Cart(ctx, 1)
	require.Len(t, cart, 1)
	assert.Equal(t, 4, cart[0].Count)
}
