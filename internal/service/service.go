// Package service holds the domain logic behind the HTTP API. Every service
// reads a slice, changes it, writes it back through the store and then
// publishes a notification so other consumers re-read it.
package service

import (
	"context"
	"strings"

	"sherise/internal/models"
)

// Fixtures is the read side of the fixture catalog used by the services.
// *fixtures.Catalog implements it.
type Fixtures interface {
	Users(ctx context.Context) []models.Profile
	Posts(ctx context.Context) []models.Post
	Hirings(ctx context.Context) []models.HiringPost
	Explore(ctx context.Context) []models.ExploreItem
	Products(ctx context.Context) []models.Product
	Trends(ctx context.Context) []models.Trend
}

func isAll(category string) bool {
	category = strings.TrimSpace(category)
	return category == "" || strings.EqualFold(category, "All")
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
