package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"sherise/internal/cache"
	"sherise/internal/models"
	"sherise/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSliceRepository_LoadMissing(t *testing.T) {
	repo := NewSliceRepository(testutil.NewTestDB(t), nil)

	_, _, err := repo.Load(context.Background(), "shared", "nope")
	assert.ErrorIs(t, err, models.ErrSliceNotFound)
}

func TestSliceRepository_SaveBumpsVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewSliceRepository(testutil.NewTestDB(t), nil)

	v, err := repo.Save(ctx, "user:1", models.SliceCart, []byte(`[]`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = repo.Save(ctx, "user:1", models.SliceCart, []byte(`[{"name":"Jam"}]`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	raw, version, err := repo.Load(ctx, "user:1", models.SliceCart)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
	assert.JSONEq(t, `[{"name":"Jam"}]`, string(raw))
}

func TestSliceRepository_ScopesAreIndependent(t *testing.T) {
	ctx := context.Background()
	repo := NewSliceRepository(testutil.NewTestDB(t), nil)

	_, err := repo.Save(ctx, "user:1", models.SliceCart, []byte(`"one"`))
	require.NoError(t, err)
	_, err = repo.Save(ctx, "user:2", models.SliceCart, []byte(`"two"`))
	require.NoError(t, err)

	raw, _, err := repo.Load(ctx, "user:1", models.SliceCart)
	require.NoError(t, err)
	assert.Equal(t, `"one"`, string(raw))
}

func TestSliceRepository_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := NewSliceRepository(testutil.NewTestDB(t), nil)

	v, err := repo.CompareAndSwap(ctx, "shared", "k", []byte(`1`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = repo.CompareAndSwap(ctx, "shared", "k", []byte(`2`), 0)
	assert.ErrorIs(t, err, models.ErrVersionMismatch, "create over an existing row")

	v, err = repo.CompareAndSwap(ctx, "shared", "k", []byte(`2`), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	_, err = repo.CompareAndSwap(ctx, "shared", "k", []byte(`3`), 1)
	assert.ErrorIs(t, err, models.ErrVersionMismatch, "stale version")

	raw, version, err := repo.Load(ctx, "shared", "k")
	require.NoError(t, err)
	assert.Equal(t, `2`, string(raw))
	assert.Equal(t, int64(2), version)
}

func TestSliceRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewSliceRepository(testutil.NewTestDB(t), nil)

	_, err := repo.Save(ctx, "user:1", models.SliceAuth, []byte(`{"authenticated":true}`))
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, "user:1", models.SliceAuth))

	_, _, err = repo.Load(ctx, "user:1", models.SliceAuth)
	assert.True(t, errors.Is(err, models.ErrSliceNotFound))
	assert.NoError(t, repo.Delete(ctx, "user:1", models.SliceAuth), "deleting twice is fine")
}

func TestSliceRepository_WritesRefreshCache(t *testing.T) {
	ctx := context.Background()
	mr, rdb := testutil.NewTestRedis(t)
	repo := NewSliceRepository(testutil.NewTestDB(t), rdb)
	key := cache.SliceKey("shared", "k")

	_, err := repo.Save(ctx, "shared", "k", []byte(`"a"`))
	require.NoError(t, err)
	assert.Equal(t, "1", mr.HGet(key, "version"), "writes cache the new row")

	_, _, err = repo.Load(ctx, "shared", "k")
	require.NoError(t, err)

	_, err = repo.Save(ctx, "shared", "k", []byte(`"b"`))
	require.NoError(t, err)
	assert.Equal(t, "2", mr.HGet(key, "version"))

	v, err := repo.CompareAndSwap(ctx, "shared", "k", []byte(`"c"`), 2)
	require.NoError(t, err)
	assert.Equal(t, "3", mr.HGet(key, "version"))

	raw, version, err := repo.Load(ctx, "shared", "k")
	require.NoError(t, err)
	assert.Equal(t, `"c"`, string(raw))
	assert.Equal(t, v, version)
}

func TestSliceRepository_SlowReaderDoesNotCacheStaleRow(t *testing.T) {
	ctx := context.Background()
	_, rdb := testutil.NewTestRedis(t)
	db := testutil.NewTestDB(t)
	repo := NewSliceRepository(db, rdb)

	_, err := repo.Save(ctx, "shared", models.SliceHirings, []byte(`["old"]`))
	require.NoError(t, err)
	require.NoError(t, rdb.Del(ctx, cache.SliceKey("shared", models.SliceHirings)).Err())

	// Commit a write after the reader's query returns but before it fills the cache.
	written := false
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:interleaved_write", func(tx *gorm.DB) {
		if written || tx.Statement.Table != "slices" {
			return
		}
		written = true
		_, err := repo.Save(ctx, "shared", models.SliceHirings, []byte(`["new"]`))
		require.NoError(t, err)
	}))

	raw, version, err := repo.Load(ctx, "shared", models.SliceHirings)
	require.NoError(t, err)
	require.True(t, written)
	assert.Equal(t, `["old"]`, string(raw), "the slow reader sees what it read")
	assert.Equal(t, int64(1), version)

	raw, version, err = repo.Load(ctx, "shared", models.SliceHirings)
	require.NoError(t, err)
	assert.Equal(t, `["new"]`, string(raw))
	assert.Equal(t, int64(2), version)
}

func TestSliceRepository_DeleteBlocksStaleRefill(t *testing.T) {
	ctx := context.Background()
	mr, rdb := testutil.NewTestRedis(t)
	repo := NewSliceRepository(testutil.NewTestDB(t), rdb)
	key := cache.SliceKey("user:1", models.SliceAuth)

	_, err := repo.Save(ctx, "user:1", models.SliceAuth, []byte(`{"authenticated":true}`))
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, "user:1", models.SliceAuth))
	assert.True(t, mr.Exists(key), "delete leaves a tombstone")

	// A reader that loaded version 1 before the delete tries to fill the cache.
	require.NoError(t, cache.SetVersioned(ctx, rdb, key, 1, models.Slice{Scope: "user:1", Key: models.SliceAuth, Value: `{}`, Version: 1}, time.Minute))

	_, _, err = repo.Load(ctx, "user:1", models.SliceAuth)
	assert.ErrorIs(t, err, models.ErrSliceNotFound)

	_, err = repo.Save(ctx, "user:1", models.SliceAuth, []byte(`{"authenticated":false}`))
	require.NoError(t, err)
	raw, version, err := repo.Load(ctx, "user:1", models.SliceAuth)
	require.NoError(t, err)
	assert.JSONEq(t, `{"authenticated":false}`, string(raw))
	assert.Equal(t, int64(1), version)
}

func TestSliceRepository_MissingIsNotCached(t *testing.T) {
	ctx := context.Background()
	mr, rdb := testutil.NewTestRedis(t)
	repo := NewSliceRepository(testutil.NewTestDB(t), rdb)

	_, _, err := repo.Load(ctx, "shared", "ghost")
	require.ErrorIs(t, err, models.ErrSliceNotFound)
	assert.False(t, mr.Exists(cache.SliceKey("shared", "ghost")))
}
