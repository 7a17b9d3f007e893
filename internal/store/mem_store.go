package store

import "sync"

// MemStore is an in-memory Store for tests that never writes to disk.
type MemStore struct {
	mu    sync.Mutex
	state *Persisted
	saves int
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (m *MemStore) Load() (*Persisted, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		def := Default()
		return &def, nil
	}
	cp := m.state.DeepCopy()
	return &cp, nil
}

func (m *MemStore) Save(state *Persisted) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := state.DeepCopy()
	m.state = &cp
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *MemStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemStore) Path() string { return ":memory:" }

func (m *MemStore) Flush() error { return nil }

var _ Store = (*MemStore)(nil)
