package models

import (
	"encoding/json"
	"strings"
)

// Trend is one row of the trends fixture.
type Trend struct {
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Keywords   []string `json:"keywords"`
	TrendScore float64  `json:"trendScore"`
	Momentum   string   `json:"momentum"`
}

// UnmarshalJSON tolerates rows with a missing name, a non-numeric score or no keywords.
func (t *Trend) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name       string          `json:"name"`
		Category   string          `json:"category"`
		Keywords   []string        `json:"keywords"`
		TrendScore json.RawMessage `json:"trendScore"`
		Momentum   string          `json:"momentum"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Name = raw.Name
	if t.Name == "" {
		t.Name = "Unknown"
	}
	t.Category = raw.Category
	t.Keywords = raw.Keywords
	if t.Keywords == nil {
		t.Keywords = []string{}
	}
	t.Momentum = raw.Momentum
	t.TrendScore = 0
	if len(raw.TrendScore) > 0 {
		var score float64
		if err := json.Unmarshal(raw.TrendScore, &score); err == nil {
			t.TrendScore = score
		}
	}
	return nil
}

// Momentum labels for trend scores.
const (
	MomentumRising  = "🔥 Rising"
	MomentumPopular = "💎 Popular"
	MomentumNiche   = "✨ Niche"
)

// MomentumLabel buckets a 0-100 popularity score.
func MomentumLabel(score float64) string {
	switch {
	case score > 70:
		return MomentumRising
	case score >= 40:
		return MomentumPopular
	default:
		return MomentumNiche
	}
}

// CommunityMember is a row of the community fixture used for partner suggestions.
type CommunityMember struct {
	ID       RecordID `json:"id"`
	Name     string   `json:"name"`
	City     string   `json:"city"`
	Product  string   `json:"product"`
	Business string   `json:"business,omitempty"`
}

// ExploreItem is a showcase card on the explore page.
type ExploreItem struct {
	ID               RecordID `json:"id"`
	OwnerID          RecordID `json:"ownerId"`
	Title            string   `json:"title"`
	ShortDescription string   `json:"shortDescription,omitempty"`
	Description      string   `json:"description,omitempty"`
	Image            string   `json:"image"`
	Category         string   `json:"category,omitempty"`
	Tags             []string `json:"tags,omitempty"`
}

// Product is a shop listing.
type Product struct {
	ID          RecordID `json:"id,omitempty"`
	Name        string   `json:"name"`
	Business    string   `json:"business"`
	Price       Display  `json:"price"`
	Image       string   `json:"image,omitempty"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Quantity    Display  `json:"quantity,omitempty"`
}

// ShopTabs are the category tabs of the shop, "All" first.
var ShopTabs = []string{"All", "Food", "Beauty", "Crafts", "Decor", "Fashion", "Wellness"}

// CartItem converts a listing into a single-count cart line.
func (p Product) CartItem() CartItem {
	return CartItem{
		Name:     p.Name,
		Business: p.Business,
		Price:    p.Price,
		Image:    p.Image,
		Category: p.Category,
		Count:    1,
	}
}

// InCategory reports whether the product belongs under a shop tab.
func (p Product) InCategory(tab string) bool {
	return tab == "" || strings.EqualFold(tab, "All") || strings.EqualFold(p.Category, tab)
}

// Display is a human-facing value that fixtures write either as text ("₹250") or as a bare number.
type Display string

// UnmarshalJSON keeps strings as-is and renders numbers in their JSON form.
func (d *Display) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = Display(s)
		return nil
	}
	if string(data) == "null" {
		*d = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*d = Display(n.String())
	return nil
}
