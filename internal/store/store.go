// Package store is the persisted slice accessor: independently keyed JSON documents
// that any consumer may read or overwrite in full.
//
// Reads never fail; a missing, null, malformed or unreadable slice yields the
// caller's default. Full writes through Set never fail either; a write that
// cannot be stored is logged, counted and dropped. Update adds a versioned
// read-modify-write on top for callers that must not lose concurrent changes.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"sherise/internal/middleware"
	"sherise/internal/models"
	"sherise/internal/observability"
)

// SharedScope holds slices visible to every user (posts, hirings, the profile directory).
const SharedScope = "shared"

// UserScope is the scope of one user's private slices.
func UserScope(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

const maxUpdateAttempts = 5

// ErrConflict is returned by Update when every attempt lost a version race.
var ErrConflict = errors.New("store: slice changed concurrently, giving up")

// Backend persists raw slice bytes with a version counter.
// repository.SliceRepository and MemoryBackend implement it.
type Backend interface {
	Load(ctx context.Context, scope, key string) ([]byte, int64, error)
	Save(ctx context.Context, scope, key string, value []byte) (int64, error)
	CompareAndSwap(ctx context.Context, scope, key string, value []byte, expect int64) (int64, error)
	Delete(ctx context.Context, scope, key string) error
}

// Store is the slice accessor shared by every service.
type Store struct {
	backend Backend
}

// New wraps a backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

func readFallback(ctx context.Context, scope, key, reason string, err error) {
	observability.StoreReadFallbacks.WithLabelValues(key, reason).Inc()
	middleware.Logger.WarnContext(ctx, "Slice read fell back to default",
		slog.String("scope", scope),
		slog.String("key", key),
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	)
}

func droppedWrite(ctx context.Context, scope, key, reason string, err error) {
	observability.StoreDroppedWrites.WithLabelValues(key, reason).Inc()
	middleware.Logger.ErrorContext(ctx, "Slice write dropped",
		slog.String("scope", scope),
		slog.String("key", key),
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	)
}

func isNull(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Get decodes the slice into dest, which must be a non-nil pointer.
// It reports false and leaves dest untouched when the slice is absent, null, malformed or unreadable.
func (s *Store) Get(ctx context.Context, scope, key string, dest any) bool {
	raw, _, err := s.backend.Load(ctx, scope, key)
	if err != nil {
		if !errors.Is(err, models.ErrSliceNotFound) {
			readFallback(ctx, scope, key, "backend", err)
		}
		return false
	}
	return decodeInto(ctx, scope, key, raw, dest)
}

func decodeInto(ctx context.Context, scope, key string, raw []byte, dest any) bool {
	if isNull(raw) {
		return false
	}
	target := reflect.ValueOf(dest)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		readFallback(ctx, scope, key, "destination", fmt.Errorf("destination %T is not a non-nil pointer", dest))
		return false
	}
	fresh := reflect.New(target.Elem().Type())
	if err := json.Unmarshal(raw, fresh.Interface()); err != nil {
		readFallback(ctx, scope, key, "malformed", err)
		return false
	}
	target.Elem().Set(fresh.Elem())
	return true
}

// Read returns the decoded slice, or def when Get would report false.
func Read[T any](ctx context.Context, s *Store, scope, key string, def T) T {
	var v T
	if s.Get(ctx, scope, key, &v) {
		return v
	}
	return def
}

// Set serializes value and overwrites the slice. Failures are logged, counted and swallowed.
func (s *Store) Set(ctx context.Context, scope, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		droppedWrite(ctx, scope, key, "marshal", err)
		return
	}
	if _, err := s.backend.Save(ctx, scope, key, data); err != nil {
		droppedWrite(ctx, scope, key, "backend", err)
	}
}

// Update runs a versioned read-modify-write. fn receives the current value (def when absent or
// unreadable) and returns the value to store; an error from fn aborts without writing.
// fn may run more than once, each time on a freshly decoded value.
func Update[T any](ctx context.Context, s *Store, scope, key string, def T, fn func(T) (T, error)) (T, error) {
	defJSON, err := json.Marshal(def)
	if err != nil {
		return def, fmt.Errorf("encode default for %s: %w", key, err)
	}

	span, ctx := observability.NewSpan(ctx, "store.update", observability.SliceAttrs(scope, key)...)
	defer span.End()

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		span.AddAttributes(observability.AttrUpdateAttempt.Int(attempt + 1))
		raw, version, err := s.backend.Load(ctx, scope, key)
		switch {
		case errors.Is(err, models.ErrSliceNotFound):
			version = 0
		case err != nil:
			return def, fmt.Errorf("load slice %s: %w", key, err)
		}

		var current T
		if !decodeInto(ctx, scope, key, raw, &current) {
			current = freshDefault[T](defJSON, def)
		}

		next, err := fn(current)
		if err != nil {
			return current, err
		}

		data, err := json.Marshal(next)
		if err != nil {
			return current, fmt.Errorf("encode slice %s: %w", key, err)
		}

		stored, err := s.backend.CompareAndSwap(ctx, scope, key, data, version)
		if err != nil {
			if errors.Is(err, models.ErrVersionMismatch) {
				observability.StoreConflicts.WithLabelValues(key).Inc()
				continue
			}
			span.SetError(err)
			return current, fmt.Errorf("store slice %s: %w", key, err)
		}
		span.AddAttributes(observability.AttrSliceVersion.Int64(stored))
		return next, nil
	}

	span.SetError(ErrConflict)
	middleware.Logger.WarnContext(ctx, "Slice update gave up after repeated conflicts",
		slog.String("scope", scope),
		slog.String("key", key),
		slog.Int("attempts", maxUpdateAttempts),
	)
	return def, ErrConflict
}

// freshDefault decodes a private copy of def so fn can mutate maps and slices safely across retries.
func freshDefault[T any](defJSON []byte, def T) T {
	var v T
	if err := json.Unmarshal(defJSON, &v); err != nil {
		return def
	}
	return v
}

// Snapshot returns the raw stored JSON and its version. found is false for an absent slice
// and for an unreadable one.
func (s *Store) Snapshot(ctx context.Context, scope, key string) (raw json.RawMessage, version int64, found bool) {
	data, version, err := s.backend.Load(ctx, scope, key)
	if err != nil {
		if !errors.Is(err, models.ErrSliceNotFound) {
			readFallback(ctx, scope, key, "backend", err)
		}
		return nil, 0, false
	}
	return json.RawMessage(data), version, true
}

// Replace overwrites the slice with raw JSON and returns the new version.
func (s *Store) Replace(ctx context.Context, scope, key string, raw json.RawMessage) (int64, error) {
	if !json.Valid(raw) {
		return 0, models.NewValidationError("slice value must be valid JSON")
	}
	return s.backend.Save(ctx, scope, key, raw)
}

// CompareAndSet writes raw only when the stored version equals expect (0: slice must not exist).
// A stale expect returns models.ErrVersionMismatch.
func (s *Store) CompareAndSet(ctx context.Context, scope, key string, raw json.RawMessage, expect int64) (int64, error) {
	if !json.Valid(raw) {
		return 0, models.NewValidationError("slice value must be valid JSON")
	}
	version, err := s.backend.CompareAndSwap(ctx, scope, key, raw, expect)
	if errors.Is(err, models.ErrVersionMismatch) {
		observability.StoreConflicts.WithLabelValues(key).Inc()
	}
	return version, err
}

// Delete removes the slice. Removing an absent slice is not an error.
func (s *Store) Delete(ctx context.Context, scope, key string) error {
	return s.backend.Delete(ctx, scope, key)
}
