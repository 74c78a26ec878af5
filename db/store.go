package db

import (
	"context"
	"sync"
)

// Store is the key-value layer the roster collections are persisted in.
// Each collection lives under one key as a JSON-encoded array.
type Store interface {
	// Get returns the raw value for key; found is false when the key does not exist
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error
	// SetIfAbsent stores value only when key does not exist yet and reports whether it did
	SetIfAbsent(ctx context.Context, key, value string) (bool, error)
	// SetMany stores every key/value pair atomically: either all are written or none are
	SetMany(ctx context.Context, values map[string]string) error
}

// MemoryStore keeps everything in a map. Used for tests and STORE_DRIVER=memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Get returns the value stored under key
func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set stores value under key
func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// SetIfAbsent stores value only when key is not present yet
func (m *MemoryStore) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value
	return true, nil
}

// SetMany stores all pairs under a single lock
func (m *MemoryStore) SetMany(ctx context.Context, values map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.data[k] = v
	}
	return nil
}
