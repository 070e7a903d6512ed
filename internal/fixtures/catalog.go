package fixtures

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"sherise/internal/cache"
	"sherise/internal/config"
	"sherise/internal/middleware"
	"sherise/internal/models"
	"sherise/internal/observability"

	"github.com/redis/go-redis/v9"
)

// NewSource picks the S3 bucket when one is configured, else the fixtures directory.
func NewSource(ctx context.Context, cfg *config.Config) (Source, error) {
	if cfg.FixturesS3Bucket == "" {
		return DirSource{Dir: cfg.FixturesDir}, nil
	}
	return NewS3Source(ctx, S3Config{
		Bucket:   cfg.FixturesS3Bucket,
		Prefix:   cfg.FixturesS3Prefix,
		Region:   cfg.S3Region,
		Endpoint: cfg.S3Endpoint,
		Key:      cfg.S3Key,
		Secret:   cfg.S3Secret,
	})
}

// Catalog decodes fixtures into typed lists. A fixture that cannot be read or
// parsed yields an empty list; the failure is logged and counted.
type Catalog struct {
	src Source
	rdb *redis.Client
}

// NewCatalog wraps src; decoded lists are cached in rdb when it is non-nil.
func NewCatalog(src Source, rdb *redis.Client) *Catalog {
	return &Catalog{src: src, rdb: rdb}
}

// Raw returns a fixture file as stored. Only names in Names are served.
func (c *Catalog) Raw(ctx context.Context, name string) ([]byte, error) {
	for _, n := range Names {
		if n == name {
			return c.src.Read(ctx, name)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Forget drops the cached decodings of the named fixtures so the next read goes to the source.
func (c *Catalog) Forget(ctx context.Context, names ...string) {
	keys := make([]string, 0, len(names))
	for _, n := range names {
		keys = append(keys, cache.FixtureKey(n))
	}
	cache.Invalidate(ctx, c.rdb, keys...)
}

func load[T any](ctx context.Context, c *Catalog, name string) []T {
	var items []T
	err := cache.Aside(ctx, c.rdb, cache.FixtureKey(name), &items, cache.FixtureTTL, func() error {
		data, err := c.src.Read(ctx, name)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &items)
	})
	if err != nil {
		observability.FixtureLoadErrors.WithLabelValues(name).Inc()
		middleware.Logger.WarnContext(ctx, "Fixture unavailable, using empty list",
			slog.String("fixture", name),
			slog.String("error", err.Error()),
		)
		return []T{}
	}
	if items == nil {
		return []T{}
	}
	return items
}

func (c *Catalog) Users(ctx context.Context) []models.Profile {
	return load[models.Profile](ctx, c, UsersFile)
}

func (c *Catalog) Trends(ctx context.Context) []models.Trend {
	return load[models.Trend](ctx, c, TrendsFile)
}

func (c *Catalog) Community(ctx context.Context) []models.CommunityMember {
	return load[models.CommunityMember](ctx, c, CommunityFile)
}

func (c *Catalog) Posts(ctx context.Context) []models.Post {
	return load[models.Post](ctx, c, PostsFile)
}

func (c *Catalog) Hirings(ctx context.Context) []models.HiringPost {
	return load[models.HiringPost](ctx, c, HiringsFile)
}

func (c *Catalog) Explore(ctx context.Context) []models.ExploreItem {
	return load[models.ExploreItem](ctx, c, ExploreFile)
}

func (c *Catalog) Products(ctx context.Context) []models.Product {
	return load[models.Product](ctx, c, ProductsFile)
}
