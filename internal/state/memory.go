package state

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store implementation for tests and development.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]State
	menu   []CachedProduct
	hasMnu bool
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

// Get returns the state for key if it exists.
func (m *MemoryStore) Get(_ context.Context, key string) (State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[key]
	return st, ok, nil
}

// Set updates the state for key.
func (m *MemoryStore) Set(_ context.Context, key string, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = st
	return nil
}

// SetMenu replaces the cached catalog snapshot.
func (m *MemoryStore) SetMenu(_ context.Context, menu []CachedProduct) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.menu = append([]CachedProduct(nil), menu...)
	m.hasMnu = true
	return nil
}

// Menu returns the cached catalog snapshot if one was stored.
func (m *MemoryStore) Menu(_ context.Context) ([]CachedProduct, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.hasMnu {
		return nil, false, nil
	}
	return append([]CachedProduct(nil), m.menu...), true, nil
}
