package store

import (
	"context"
	"sync"

	"sherise/internal/models"
)

type memoryEntry struct {
	value   []byte
	version int64
}

// MemoryBackend keeps slices in process memory. Used by tests and when no database is configured.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]memoryEntry)}
}

func memoryKey(scope, key string) string { return scope + "\x00" + key }

func (m *MemoryBackend) Load(_ context.Context, scope, key string) ([]byte, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[memoryKey(scope, key)]
	if !ok {
		return nil, 0, models.ErrSliceNotFound
	}
	return append([]byte(nil), e.value...), e.version, nil
}

func (m *MemoryBackend) Save(_ context.Context, scope, key string, value []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memoryKey(scope, key)
	e := m.entries[k]
	e.value = append([]byte(nil), value...)
	e.version++
	m.entries[k] = e
	return e.version, nil
}

func (m *MemoryBackend) CompareAndSwap(_ context.Context, scope, key string, value []byte, expect int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memoryKey(scope, key)
	e, ok := m.entries[k]
	if (!ok && expect != 0) || (ok && e.version != expect) {
		return 0, models.ErrVersionMismatch
	}
	e.value = append([]byte(nil), value...)
	e.version = expect + 1
	m.entries[k] = e
	return e.version, nil
}

func (m *MemoryBackend) Delete(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, memoryKey(scope, key))
	return nil
}

// Put stores raw bytes as-is, bypassing JSON encoding. Tests use it to plant malformed values.
func (m *MemoryBackend) Put(scope, key string, raw []byte) {
	_, _ = m.Save(context.Background(), scope, key, raw)
}
