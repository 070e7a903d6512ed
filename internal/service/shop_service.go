package service

import (
	"context"

	"sherise/internal/fixtures"
	"sherise/internal/models"
)

// ShopService serves the read-only shop listings and the trends chart.
type ShopService struct {
	fixtures Fixtures
}

func NewShopService(f Fixtures) *ShopService {
	return &ShopService{fixtures: f}
}

// Products lists the merged product fixture under one shop tab.
func (s *ShopService) Products(ctx context.Context, tab string) []models.Product {
	out := []models.Product{}
	for _, p := range s.fixtures.Products(ctx) {
		if p.InCategory(tab) {
			out = append(out, p)
		}
	}
	return out
}

// Trends returns chart rows, limited to the top n when n > 0.
func (s *ShopService) Trends(ctx context.Context, n int) []fixtures.TrendSummary {
	trends := s.fixtures.Trends(ctx)
	if n > 0 {
		trends = fixtures.TopTrends(trends, n)
	}
	return fixtures.Summaries(trends)
}
