package repository

import (
	"context"
	"errors"
	"time"

	"sherise/internal/cache"
	"sherise/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SliceRepository persists versioned JSON slices.
type SliceRepository interface {
	// Load returns the stored bytes and version, or models.ErrSliceNotFound.
	Load(ctx context.Context, scope, key string) ([]byte, int64, error)
	// Save overwrites unconditionally and returns the new version.
	Save(ctx context.Context, scope, key string, value []byte) (int64, error)
	// CompareAndSwap writes only if the stored version equals expect; expect 0 means "must not exist".
	// A lost race returns models.ErrVersionMismatch.
	CompareAndSwap(ctx context.Context, scope, key string, value []byte, expect int64) (int64, error)
	Delete(ctx context.Context, scope, key string) error
}

type sliceRepository struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewSliceRepository returns a gorm-backed SliceRepository. rdb may be nil.
func NewSliceRepository(db *gorm.DB, rdb *redis.Client) SliceRepository {
	return &sliceRepository{db: db, rdb: rdb}
}

func (r *sliceRepository) Load(ctx context.Context, scope, key string) ([]byte, int64, error) {
	var row models.Slice
	if found, err := cache.GetVersioned(ctx, r.rdb, cache.SliceKey(scope, key), &row); err == nil && found {
		return []byte(row.Value), row.Version, nil
	}

	row = models.Slice{}
	err := r.db.WithContext(ctx).
		Where("scope = ? AND slice_key = ?", scope, key).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, models.ErrSliceNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	r.cacheRow(ctx, row)
	return []byte(row.Value), row.Version, nil
}

// cacheRow refreshes the cached copy. The version guard in the cache keeps a row read
// before a concurrent write from overwriting the write's entry.
func (r *sliceRepository) cacheRow(ctx context.Context, row models.Slice) {
	_ = cache.SetVersioned(ctx, r.rdb, cache.SliceKey(row.Scope, row.Key), row.Version, row, cache.SliceTTL)
}

func (r *sliceRepository) Save(ctx context.Context, scope, key string, value []byte) (int64, error) {
	row := models.Slice{Scope: scope, Key: key, Value: string(value), Version: 1}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := clause.OnConflict{
			Columns: []clause.Column{{Name: "scope"}, {Name: "slice_key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"value":      string(value),
				"version":    gorm.Expr("slices.version + 1"),
				"updated_at": time.Now(),
			}),
		}
		if err := tx.Clauses(upsert).Create(&row).Error; err != nil {
			return err
		}
		return tx.Where("scope = ? AND slice_key = ?", scope, key).Take(&row).Error
	})
	if err != nil {
		return 0, err
	}
	r.cacheRow(ctx, row)
	return row.Version, nil
}

func (r *sliceRepository) CompareAndSwap(ctx context.Context, scope, key string, value []byte, expect int64) (int64, error) {
	if expect == 0 {
		row := models.Slice{Scope: scope, Key: key, Value: string(value), Version: 1}
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			if isUniqueConstraintError(err) {
				return 0, models.ErrVersionMismatch
			}
			return 0, err
		}
		r.cacheRow(ctx, row)
		return 1, nil
	}

	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.Slice{}).
		Where("scope = ? AND slice_key = ? AND version = ?", scope, key, expect).
		Updates(map[string]interface{}{
			"value":      string(value),
			"version":    expect + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, models.ErrVersionMismatch
	}
	r.cacheRow(ctx, models.Slice{Scope: scope, Key: key, Value: string(value), Version: expect + 1, UpdatedAt: now})
	return expect + 1, nil
}

func (r *sliceRepository) Delete(ctx context.Context, scope, key string) error {
	err := r.db.WithContext(ctx).
		Where("scope = ? AND slice_key = ?", scope, key).
		Delete(&models.Slice{}).Error
	if err != nil {
		return err
	}
	_ = cache.Tombstone(ctx, r.rdb, cache.SliceKey(scope, key), cache.SliceTTL)
	return nil
}
