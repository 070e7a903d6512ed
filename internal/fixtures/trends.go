package fixtures

import (
	"sort"

	"sherise/internal/models"
)

// TrendSummary is the chart row served by /api/trends.
type TrendSummary struct {
	Name       string  `json:"name"`
	TrendScore float64 `json:"trendScore"`
	Momentum   string  `json:"momentum"`
}

// Summaries normalizes trend rows and labels each with its momentum bucket.
func Summaries(trends []models.Trend) []TrendSummary {
	out := make([]TrendSummary, 0, len(trends))
	for _, t := range trends {
		out = append(out, TrendSummary{
			Name:       t.Name,
			TrendScore: t.TrendScore,
			Momentum:   models.MomentumLabel(t.TrendScore),
		})
	}
	return out
}

// TopTrends returns the n highest scoring trends; ties keep fixture order.
func TopTrends(trends []models.Trend, n int) []models.Trend {
	sorted := append([]models.Trend(nil), trends...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TrendScore > sorted[j].TrendScore })
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
