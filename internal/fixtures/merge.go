package fixtures

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"sherise/internal/middleware"
	"sherise/internal/observability"

	"gopkg.in/yaml.v3"
)

// MergeEntry maps one per-category product file to the category it is tagged with.
type MergeEntry struct {
	File     string `yaml:"file"`
	Category string `yaml:"category"`
}

// DefaultMergeManifest is the shop's category file layout.
var DefaultMergeManifest = []MergeEntry{
	{File: "food.json", Category: "Food"},
	{File: "beauty.json", Category: "Beauty"},
	{File: "crafts.json", Category: "Crafts"},
	{File: "decor.json", Category: "Decor"},
	{File: "fashion.json", Category: "Fashion"},
	{File: "wellness.json", Category: "Wellness"},
}

// ParseManifest reads a YAML manifest of the form
//
//	files:
//	  - file: food.json
//	    category: Food
func ParseManifest(data []byte) ([]MergeEntry, error) {
	var doc struct {
		Files []MergeEntry `yaml:"files"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse merge manifest: %w", err)
	}
	for i, e := range doc.Files {
		if e.File == "" || e.Category == "" {
			return nil, fmt.Errorf("merge manifest entry %d needs both file and category", i)
		}
	}
	return doc.Files, nil
}

// MergeProducts concatenates the listed files in manifest order, overwriting each item's
// category with the entry's. Other item fields pass through untouched. Files that cannot
// be read or are not JSON arrays are logged and skipped.
func MergeProducts(ctx context.Context, src Source, entries []MergeEntry) []map[string]any {
	merged := []map[string]any{}
	for _, e := range entries {
		data, err := src.Read(ctx, e.File)
		if err != nil {
			skipMerge(ctx, e.File, err)
			continue
		}
		var items []map[string]any
		if err := json.Unmarshal(data, &items); err != nil {
			skipMerge(ctx, e.File, err)
			continue
		}
		for _, item := range items {
			if item == nil {
				continue
			}
			item["category"] = e.Category
			merged = append(merged, item)
		}
	}
	return merged
}

func skipMerge(ctx context.Context, file string, err error) {
	observability.FixtureLoadErrors.WithLabelValues(file).Inc()
	middleware.Logger.ErrorContext(ctx, "Failed to read product file",
		slog.String("file", file),
		slog.String("error", err.Error()),
	)
}

// WriteMerged writes items as indented JSON to name in dst.
func WriteMerged(ctx context.Context, dst Sink, name string, items []map[string]any) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode merged products: %w", err)
	}
	return dst.Write(ctx, name, data)
}
