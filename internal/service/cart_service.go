package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"sherise/internal/middleware"
	"sherise/internal/models"
	"sherise/internal/notifications"
	"sherise/internal/store"
)

// Checkout actions accepted by Transition.
const (
	ActionOpenCart      = "open-cart"
	ActionCloseCart     = "close-cart"
	ActionOpenCheckout  = "open-checkout"
	ActionCloseCheckout = "close-checkout"
	ActionAcknowledge   = "acknowledge"
)

var errEmptyCart = models.NewValidationError("Cart is empty")

// CartService runs the cart, the checkout panels and order placement.
type CartService struct {
	store *store.Store
	bus   *notifications.Bus
	now   func() time.Time
}

// CheckoutView is the persisted panel state with its derived phase.
type CheckoutView struct {
	models.CheckoutState
	Phase models.CheckoutPhase `json:"phase"`
}

// PlaceOrderInput is the checkout form.
type PlaceOrderInput struct {
	Details models.OrderDetails `json:"details"`
	Note    string              `json:"note"`
}

func NewCartService(s *store.Store, bus *notifications.Bus) *CartService {
	return &CartService{store: s, bus: bus, now: time.Now}
}

// Subtotal sums price times count over the cart. Prices are read by keeping only their digits.
// A total past math.MaxInt64 stops at math.MaxInt64.
func Subtotal(cart []models.CartItem) int64 {
	var total int64
	for _, item := range cart {
		price, count := models.ParsePrice(item.Price), int64(item.Count)
		if price <= 0 || count <= 0 {
			continue
		}
		if price > (math.MaxInt64-total)/count {
			return math.MaxInt64
		}
		total += price * count
	}
	return total
}

// Cart returns the user's cart lines.
func (s *CartService) Cart(ctx context.Context, userID uint) []models.CartItem {
	return store.Read(ctx, s.store, store.UserScope(userID), models.SliceCart, []models.CartItem{})
}

// Orders returns the user's placed orders, oldest first.
func (s *CartService) Orders(ctx context.Context, userID uint) []models.Order {
	return store.Read(ctx, s.store, store.UserScope(userID), models.SliceOrders, []models.Order{})
}

func (s *CartService) updateCart(ctx context.Context, userID uint, fn func([]models.CartItem) ([]models.CartItem, error)) ([]models.CartItem, error) {
	cart, err := store.Update(ctx, s.store, store.UserScope(userID), models.SliceCart, []models.CartItem{}, fn)
	if err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, notifications.UserEvent(notifications.EventCartUpdated, userID, map[string]any{"lines": len(cart)}))
	return cart, nil
}

// AddToCart increments the line with the same name and business, or appends a new line with count 1.
func (s *CartService) AddToCart(ctx context.Context, userID uint, item models.CartItem) ([]models.CartItem, error) {
	if blank(item.Name) {
		return nil, models.NewValidationError("Item name is required")
	}
	return s.updateCart(ctx, userID, func(cart []models.CartItem) ([]models.CartItem, error) {
		for i := range cart {
			if cart[i].SameLine(item) {
				cart[i].Count++
				return cart, nil
			}
		}
		item.Count = 1
		return append(cart, item), nil
	})
}

// UpdateQuantity adds delta to a line's count, never going below 1.
// An index outside the cart leaves it unchanged.
func (s *CartService) UpdateQuantity(ctx context.Context, userID uint, index, delta int) ([]models.CartItem, error) {
	return s.updateCart(ctx, userID, func(cart []models.CartItem) ([]models.CartItem, error) {
		if index < 0 || index >= len(cart) {
			return cart, nil
		}
		cart[index].Count = max(1, cart[index].Count+delta)
		return cart, nil
	})
}

// RemoveLine drops the line at index. An index outside the cart leaves it unchanged.
func (s *CartService) RemoveLine(ctx context.Context, userID uint, index int) ([]models.CartItem, error) {
	return s.updateCart(ctx, userID, func(cart []models.CartItem) ([]models.CartItem, error) {
		if index < 0 || index >= len(cart) {
			return cart, nil
		}
		return append(cart[:index], cart[index+1:]...), nil
	})
}

// PlaceOrder turns the cart into an order, appends it to the order history and empties the cart.
// There is no payment and no stock check.
func (s *CartService) PlaceOrder(ctx context.Context, userID uint, in PlaceOrderInput) (models.Order, error) {
	scope := store.UserScope(userID)

	var items []models.CartItem
	_, err := store.Update(ctx, s.store, scope, models.SliceCart, []models.CartItem{},
		func(cart []models.CartItem) ([]models.CartItem, error) {
			if len(cart) == 0 {
				return nil, errEmptyCart
			}
			items = cart
			return []models.CartItem{}, nil
		})
	if err != nil {
		return models.Order{}, err
	}

	order := models.Order{
		ID:        models.NewRecordID(),
		Items:     items,
		Total:     Subtotal(items),
		Details:   in.Details,
		Note:      in.Note,
		Timestamp: models.Timestamp(s.now()),
	}
	_, err = store.Update(ctx, s.store, scope, models.SliceOrders, []models.Order{},
		func(orders []models.Order) ([]models.Order, error) {
			return append(orders, order), nil
		})
	if err != nil {
		s.restoreCart(ctx, userID, items)
		return models.Order{}, err
	}

	s.setCheckout(ctx, userID, models.CheckoutState{OrderPlaced: true, LastOrderID: order.ID})

	s.bus.Publish(ctx, notifications.UserEvent(notifications.EventOrdersUpdated, userID, map[string]any{"id": order.ID}))
	s.bus.Publish(ctx, notifications.UserEvent(notifications.EventCartUpdated, userID, map[string]any{"lines": 0}))
	return order, nil
}

// restoreCart puts items back in front of anything added since the cart was emptied.
func (s *CartService) restoreCart(ctx context.Context, userID uint, items []models.CartItem) {
	_, err := store.Update(ctx, s.store, store.UserScope(userID), models.SliceCart, []models.CartItem{},
		func(cart []models.CartItem) ([]models.CartItem, error) {
			return append(append([]models.CartItem{}, items...), cart...), nil
		})
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "Failed to restore cart after order write failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
	}
}

// Checkout returns the panel state.
func (s *CartService) Checkout(ctx context.Context, userID uint) CheckoutView {
	st := store.Read(ctx, s.store, store.UserScope(userID), models.SliceCheckout, models.CheckoutState{})
	return CheckoutView{CheckoutState: st, Phase: st.Phase()}
}

func (s *CartService) setCheckout(ctx context.Context, userID uint, st models.CheckoutState) {
	s.store.Set(ctx, store.UserScope(userID), models.SliceCheckout, st)
	s.bus.Publish(ctx, notifications.UserEvent(notifications.EventCheckoutUpdated, userID,
		map[string]any{"phase": st.Phase()}))
}

// Transition applies a panel action. Cart and checkout panels open and close
// independently; once an order was placed, any action returns to Browsing.
func (s *CartService) Transition(ctx context.Context, userID uint, action string) (CheckoutView, error) {
	st := s.Checkout(ctx, userID).CheckoutState

	if st.OrderPlaced {
		switch action {
		case ActionOpenCart, ActionCloseCart, ActionOpenCheckout, ActionCloseCheckout, ActionAcknowledge:
			st = models.CheckoutState{LastOrderID: st.LastOrderID}
		default:
			return CheckoutView{}, unknownAction(action)
		}
	} else {
		switch action {
		case ActionOpenCart:
			st.CartOpen = true
		case ActionCloseCart:
			st.CartOpen = false
		case ActionOpenCheckout:
			st.CheckoutOpen = true
		case ActionCloseCheckout:
			st.CheckoutOpen = false
		case ActionAcknowledge:
		default:
			return CheckoutView{}, unknownAction(action)
		}
	}

	s.setCheckout(ctx, userID, st)
	return CheckoutView{CheckoutState: st, Phase: st.Phase()}, nil
}

func unknownAction(action string) error {
	return models.NewValidationError("Unknown checkout action: " + action)
}

// IsEmptyCart reports whether err is the empty-cart rejection of PlaceOrder.
func IsEmptyCart(err error) bool {
	return errors.Is(err, errEmptyCart)
}
