package models

import (
	"strconv"
	"strings"
	"time"
)

// Timestamp formats t the way records store it (RFC 3339, UTC, millisecond precision).
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// Comment is a reply attached to a feed post.
type Comment struct {
	UserID    RecordID `json:"userId"`
	Text      string   `json:"text"`
	Timestamp string   `json:"timestamp,omitempty"`
}

// Post is a community feed entry.
type Post struct {
	ID        RecordID  `json:"id"`
	UserID    RecordID  `json:"userId"`
	Content   string    `json:"content"`
	Image     string    `json:"image,omitempty"`
	Timestamp string    `json:"timestamp"`
	Comments  []Comment `json:"comments"`
}

// HiringPost is a marketplace request for help.
type HiringPost struct {
	ID          RecordID `json:"id"`
	UserID      RecordID `json:"userId"`
	UserName    string   `json:"userName"`
	UserEmail   string   `json:"userEmail,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Budget      string   `json:"budget,omitempty"`
	Contact     string   `json:"contact"`
	Timestamp   string   `json:"timestamp"`
}

// HiringCategories are the categories offered by the hiring form.
var HiringCategories = []string{
	"Food & Beverages",
	"Cosmetics & Beauty",
	"Clothing & Fashion",
	"Handicrafts",
	"Jewelry",
	"Home Decor",
	"Services",
	"Marketing & Social Media",
	"Photography & Design",
	"Other",
}

// CartItem is one cart line; a line is identified by (Name, Business).
type CartItem struct {
	Name     string  `json:"name"`
	Business string  `json:"business"`
	Price    Display `json:"price"`
	Image    string  `json:"image,omitempty"`
	Category string  `json:"category,omitempty"`
	Count    int     `json:"count"`
}

// SameLine reports whether two items belong on the same cart line.
func (c CartItem) SameLine(o CartItem) bool {
	return c.Name == o.Name && c.Business == o.Business
}

// OrderDetails are the shipping details typed into the checkout form.
type OrderDetails struct {
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

// Order is a placed order. Orders are never updated once appended.
type Order struct {
	ID        RecordID     `json:"id"`
	Items     []CartItem   `json:"items"`
	Total     int64        `json:"total"`
	Details   OrderDetails `json:"details"`
	Note      string       `json:"note,omitempty"`
	Timestamp string       `json:"timestamp"`
}

// CheckoutPhase is the derived state of the cart/checkout flow.
type CheckoutPhase string

const (
	PhaseBrowsing     CheckoutPhase = "Browsing"
	PhaseCartOpen     CheckoutPhase = "CartOpen"
	PhaseCheckoutOpen CheckoutPhase = "CheckoutOpen"
	PhaseOrderPlaced  CheckoutPhase = "OrderPlaced"
)

// CheckoutState is the persisted cart/checkout panel state. Cart and checkout may be open together.
type CheckoutState struct {
	CartOpen     bool     `json:"cartOpen"`
	CheckoutOpen bool     `json:"checkoutOpen"`
	OrderPlaced  bool     `json:"orderPlaced"`
	LastOrderID  RecordID `json:"lastOrderId,omitempty"`
}

// Phase derives the flow state from the panel flags.
func (s CheckoutState) Phase() CheckoutPhase {
	switch {
	case s.OrderPlaced:
		return PhaseOrderPlaced
	case s.CheckoutOpen:
		return PhaseCheckoutOpen
	case s.CartOpen:
		return PhaseCartOpen
	default:
		return PhaseBrowsing
	}
}

// Coach transcript roles.
const (
	CoachRoleUser = "user"
	CoachRoleBot  = "bot"
)

// CoachMessage is one entry of the coach transcript.
type CoachMessage struct {
	Role    string `json:"type"`
	Content string `json:"content"`
	TS      int64  `json:"ts"`
}

// Direct message roles.
const (
	MessageRoleMe   = "me"
	MessageRoleThem = "them"
)

// DirectMessage is one line of a simulated conversation.
type DirectMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// Conversations maps a peer user id to the thread with that user.
type Conversations map[string][]DirectMessage

// Last returns the latest message with peer, if any.
func (c Conversations) Last(peer string) (DirectMessage, bool) {
	thread := c[peer]
	if len(thread) == 0 {
		return DirectMessage{}, false
	}
	return thread[len(thread)-1], true
}

// FollowGraph maps a followed user id to true.
type FollowGraph map[string]bool

// LikeSet maps a liked or saved item id to true.
type LikeSet map[string]bool

// Toggle flips id and reports the new state. Unset entries are removed rather than stored as false.
func (s LikeSet) Toggle(id string) bool {
	if s[id] {
		delete(s, id)
		return false
	}
	s[id] = true
	return true
}

// AuthState is the per-user login marker.
type AuthState struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	Since         string `json:"since,omitempty"`
}

// ParsePrice keeps only the digits of a display price, so "₹1,299" is 1299.
// Decimal separators are dropped too: "12.50" reads as 1250.
// A price with no digits, or too many to fit an int64, is 0.
func ParsePrice(display Display) int64 {
	var b strings.Builder
	for _, r := range string(display) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
