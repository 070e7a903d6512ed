package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"sherise/internal/models"
	"sherise/internal/repository"
	"sherise/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingBackend struct {
	*MemoryBackend
	loadErr error
	saveErr error
}

func (f *failingBackend) Load(ctx context.Context, scope, key string) ([]byte, int64, error) {
	if f.loadErr != nil {
		return nil, 0, f.loadErr
	}
	return f.MemoryBackend.Load(ctx, scope, key)
}

func (f *failingBackend) Save(ctx context.Context, scope, key string, value []byte) (int64, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	return f.MemoryBackend.Save(ctx, scope, key, value)
}

func TestUserScope(t *testing.T) {
	assert.Equal(t, "user:42", UserScope(42))
}

func TestRead_DefaultsForBadValues(t *testing.T) {
	ctx := context.Background()
	def := []models.CartItem{{Name: "default"}}

	tests := []struct {
		name string
		raw  []byte
	}{
		{"malformed", []byte(`{not json`)},
		{"null", []byte(`null`)},
		{"empty", []byte(``)},
		{"wrong shape", []byte(`{"name":"x"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := NewMemoryBackend()
			mem.Put(SharedScope, models.SliceCart, tt.raw)
			got := Read(ctx, New(mem), SharedScope, models.SliceCart, def)
			assert.Equal(t, def, got)
		})
	}

	t.Run("absent", func(t *testing.T) {
		got := Read(ctx, New(NewMemoryBackend()), SharedScope, models.SliceCart, def)
		assert.Equal(t, def, got)
	})

	t.Run("backend error", func(t *testing.T) {
		s := New(&failingBackend{MemoryBackend: NewMemoryBackend(), loadErr: errors.New("db down")})
		got := Read(ctx, s, SharedScope, models.SliceCart, def)
		assert.Equal(t, def, got)
	})
}

func TestGet_LeavesDestUntouchedOnFailure(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryBackend()
	mem.Put(SharedScope, "k", []byte(`{"a":1,"b":`))

	dest := map[string]int{"keep": 1}
	assert.False(t, New(mem).Get(ctx, SharedScope, "k", &dest))
	assert.Equal(t, map[string]int{"keep": 1}, dest)

	var notPointer map[string]int
	assert.False(t, New(mem).Get(ctx, SharedScope, "k", notPointer))
}

func TestSetThenRead(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())

	s.Set(ctx, UserScope(1), models.SliceFollows, models.FollowGraph{"2": true})
	got := Read(ctx, s, UserScope(1), models.SliceFollows, models.FollowGraph{})
	assert.Equal(t, models.FollowGraph{"2": true}, got)

	other := Read(ctx, s, UserScope(2), models.SliceFollows, models.FollowGraph{})
	assert.Empty(t, other, "scopes do not leak")
}

func TestSet_SwallowsFailures(t *testing.T) {
	ctx := context.Background()
	s := New(&failingBackend{MemoryBackend: NewMemoryBackend(), saveErr: errors.New("disk full")})
	assert.NotPanics(t, func() {
		s.Set(ctx, SharedScope, "k", []string{"a"})
		s.Set(ctx, SharedScope, "k", func() {})
	})
}

func TestUpdate_ReadModifyWrite(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())

	add := func(name string) func([]models.CartItem) ([]models.CartItem, error) {
		return func(cart []models.CartItem) ([]models.CartItem, error) {
			return append(cart, models.CartItem{Name: name, Count: 1}), nil
		}
	}

	_, err := Update(ctx, s, UserScope(1), models.SliceCart, nil, add("a"))
	require.NoError(t, err)
	got, err := Update(ctx, s, UserScope(1), models.SliceCart, nil, add("b"))
	require.NoError(t, err)
	require.Len(t, got, 2)

	stored := Read[[]models.CartItem](ctx, s, UserScope(1), models.SliceCart, nil)
	assert.Equal(t, got, stored)
}

func TestUpdate_FnErrorAbortsWrite(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())
	s.Set(ctx, SharedScope, "n", 1)

	boom := errors.New("boom")
	_, err := Update(ctx, s, SharedScope, "n", 0, func(n int) (int, error) { return n + 1, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, Read(ctx, s, SharedScope, "n", 0))
}

func TestUpdate_OverwritesMalformedValue(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryBackend()
	mem.Put(SharedScope, "likes", []byte(`[broken`))
	s := New(mem)

	got, err := Update(ctx, s, SharedScope, "likes", models.LikeSet{}, func(set models.LikeSet) (models.LikeSet, error) {
		set.Toggle("7")
		return set, nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.LikeSet{"7": true}, got)
}

func TestUpdate_DefaultIsNotShared(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())
	def := models.LikeSet{}

	_, err := Update(ctx, s, UserScope(1), "likes", def, func(set models.LikeSet) (models.LikeSet, error) {
		set["x"] = true
		return set, nil
	})
	require.NoError(t, err)
	assert.Empty(t, def)
}

type conflictingBackend struct{ *MemoryBackend }

func (conflictingBackend) CompareAndSwap(context.Context, string, string, []byte, int64) (int64, error) {
	return 0, models.ErrVersionMismatch
}

func TestUpdate_GivesUpAfterConflicts(t *testing.T) {
	ctx := context.Background()
	s := New(conflictingBackend{NewMemoryBackend()})

	calls := 0
	_, err := Update(ctx, s, SharedScope, "k", 0, func(n int) (int, error) {
		calls++
		return n + 1, nil
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, maxUpdateAttempts, calls)
}

func TestUpdate_ConcurrentIncrementsAreNotLost(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Update(ctx, s, SharedScope, "counter", 0, func(n int) (int, error) { return n + 1, nil })
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, successes, Read(ctx, s, SharedScope, "counter", 0))
}

func TestCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())

	v, err := s.CompareAndSet(ctx, SharedScope, "k", []byte(`[1]`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = s.CompareAndSet(ctx, SharedScope, "k", []byte(`[2]`), 0)
	assert.ErrorIs(t, err, models.ErrVersionMismatch)

	_, err = s.CompareAndSet(ctx, SharedScope, "k", []byte(`{oops`), 1)
	assert.Equal(t, 400, models.StatusFor(err))

	raw, version, found := s.Snapshot(ctx, SharedScope, "k")
	require.True(t, found)
	assert.Equal(t, int64(1), version)
	assert.JSONEq(t, `[1]`, string(raw))
}

func TestReplaceAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())

	v, err := s.Replace(ctx, SharedScope, "k", []byte(`"a"`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	v, err = s.Replace(ctx, SharedScope, "k", []byte(`"b"`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	require.NoError(t, s.Delete(ctx, SharedScope, "k"))
	_, _, found := s.Snapshot(ctx, SharedScope, "k")
	assert.False(t, found)
}

func TestStore_OnSliceRepository(t *testing.T) {
	ctx := context.Background()
	_, rdb := testutil.NewTestRedis(t)
	s := New(repository.NewSliceRepository(testutil.NewTestDB(t), rdb))

	s.Set(ctx, SharedScope, models.SliceHirings, []models.HiringPost{{ID: "1", Title: "Need a baker"}})
	got, err := Update(ctx, s, SharedScope, models.SliceHirings, nil, func(list []models.HiringPost) ([]models.HiringPost, error) {
		return append(list, models.HiringPost{ID: "2", Title: "Need a designer"}), nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	stored := Read[[]models.HiringPost](ctx, s, SharedScope, models.SliceHirings, nil)
	require.Len(t, stored, 2)
	assert.Equal(t, "Need a designer", stored[1].Title)

	_, version, found := s.Snapshot(ctx, SharedScope, models.SliceHirings)
	require.True(t, found)
	assert.Equal(t, int64(2), version)
}

func TestUpdate_RecordsSpan(t *testing.T) {
	rec := testutil.RecordSpans(t)
	ctx := context.Background()
	s := New(NewMemoryBackend())

	_, err := Update(ctx, s, UserScope(3), models.SliceCart, []string{}, func(l []string) ([]string, error) {
		return append(l, "jam"), nil
	})
	require.NoError(t, err)

	attrs := testutil.SpanAttrs(testutil.EndedSpan(t, rec, "store.update"))
	assert.Equal(t, "user:3", attrs["sherise.slice.scope"])
	assert.Equal(t, models.SliceCart, attrs["sherise.slice.key"])
	assert.Equal(t, int64(1), attrs["sherise.slice.update_attempts"])
	assert.Equal(t, int64(1), attrs["sherise.slice.version"])

	conflicted := New(conflictingBackend{NewMemoryBackend()})
	_, err = Update(ctx, conflicted, SharedScope, "k", 0, func(n int) (int, error) { return n + 1, nil })
	require.ErrorIs(t, err, ErrConflict)

	var last map[string]any
	for _, sp := range rec.Ended() {
		if sp.Name() == "store.update" {
			last = testutil.SpanAttrs(sp)
		}
	}
	assert.Equal(t, int64(maxUpdateAttempts), last["sherise.slice.update_attempts"])
}
