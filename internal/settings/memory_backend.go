package settings

import (
	"sync"
)

// InMemoryBackend implements Backend without persistence (for testing and
// ephemeral runs).
type InMemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewInMemoryBackend returns an empty in-memory backend.
func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{values: make(map[string]string)}
}

// Get implements Backend.
func (b *InMemoryBackend) Get(key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok, nil
}

// Set implements Backend.
func (b *InMemoryBackend) Set(key, value string) error {
	b.mu.Lock()
	b.values[key] = value
	b.mu.Unlock()
	return nil
}

// Close implements Backend (no-op).
func (b *InMemoryBackend) Close() error { return nil }

var _ Backend = (*InMemoryBackend)(nil)
