package server

import (
	"sherise/internal/models"
	"sherise/internal/service"

	"github.com/gofiber/fiber/v2"
)

type cartResponse struct {
	Items    []models.CartItem `json:"items"`
	Subtotal int64             `json:"subtotal"`
}

func newCartResponse(items []models.CartItem) cartResponse {
	if items == nil {
		items = []models.CartItem{}
	}
	return cartResponse{Items: items, Subtotal: service.Subtotal(items)}
}

// GetCart returns the caller's cart and its subtotal.
func (s *Server) GetCart(c *fiber.Ctx) error {
	return c.JSON(newCartResponse(s.cart.Cart(c.UserContext(), currentUserID(c))))
}

// AddCartItem adds a product; an equal (name, business) line is incremented instead.
func (s *Server) AddCartItem(c *fiber.Ctx) error {
	var item models.CartItem
	if err := bindJSON(c, &item); err != nil {
		return respondError(c, err)
	}
	items, err := s.cart.AddToCart(c.UserContext(), currentUserID(c), item)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(newCartResponse(items))
}

// UpdateCartItem changes a line's count by delta; the count never drops below one.
func (s *Server) UpdateCartItem(c *fiber.Ctx) error {
	index, err := indexParam(c, "index")
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Delta int `json:"delta"`
	}
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	items, err := s.cart.UpdateQuantity(c.UserContext(), currentUserID(c), index, req.Delta)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(newCartResponse(items))
}

func (s *Server) RemoveCartItem(c *fiber.Ctx) error {
	index, err := indexParam(c, "index")
	if err != nil {
		return respondError(c, err)
	}
	items, err := s.cart.RemoveLine(c.UserContext(), currentUserID(c), index)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(newCartResponse(items))
}

// GetCheckout returns the cart/checkout panel state.
func (s *Server) GetCheckout(c *fiber.Ctx) error {
	return c.JSON(s.cart.Checkout(c.UserContext(), currentUserID(c)))
}

// TransitionCheckout applies a panel action such as open-cart or acknowledge.
func (s *Server) TransitionCheckout(c *fiber.Ctx) error {
	view, err := s.cart.Transition(c.UserContext(), currentUserID(c), c.Params("action"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// GetOrders returns the caller's order history, oldest first.
func (s *Server) GetOrders(c *fiber.Ctx) error {
	return c.JSON(s.cart.Orders(c.UserContext(), currentUserID(c)))
}

// PlaceOrder turns the cart into an order and empties it.
func (s *Server) PlaceOrder(c *fiber.Ctx) error {
	var in service.PlaceOrderInput
	if len(c.Body()) > 0 {
		if err := bindJSON(c, &in); err != nil {
			return respondError(c, err)
		}
	}
	order, err := s.cart.PlaceOrder(c.UserContext(), currentUserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}
