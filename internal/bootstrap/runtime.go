// Package bootstrap wires the process-level runtime shared by the server and the CLI.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sherise/internal/cache"
	"sherise/internal/config"
	"sherise/internal/database"
	"sherise/internal/fixtures"
	"sherise/internal/middleware"
	"sherise/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo fills an empty development database with demo members.
	SeedDemo bool
}

// InitRuntime connects to the database, applies the schema and connects Redis.
// Redis is optional: an unreachable server yields a nil client.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return nil, nil, fmt.Errorf("schema setup failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	rdb := cache.GetClient()

	if opts.SeedDemo {
		if err := seedDemo(ctx, cfg, db, rdb); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, rdb, nil
}

// seedDemo seeds only development databases that have no accounts yet.
func seedDemo(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client) error {
	if !strings.EqualFold(cfg.Env, "development") {
		middleware.Logger.WarnContext(ctx, "Demo seeding skipped outside development", slog.String("env", cfg.Env))
		return nil
	}

	var accounts int64
	if err := db.WithContext(ctx).Table("accounts").Count(&accounts).Error; err != nil {
		return err
	}
	if accounts > 0 {
		return nil
	}

	src, err := fixtures.NewSource(ctx, cfg)
	if err != nil {
		return err
	}
	_, err = seed.NewSeeder(db, rdb, fixtures.NewCatalog(src, rdb), cfg.JWTSecret, seed.DefaultOptions()).Run(ctx)
	return err
}
