package settings

import (
	"context"
	"fmt"
	"maps"
	"sync"
)

// Store persists raw option values.
type Store interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, values map[string]string) error
}

// Manager holds the active Settings snapshot and writes changes through to a Store.
type Manager struct {
	store Store

	mu      sync.RWMutex
	current Settings
}

// NewManager starts from the defaults until Load is called.
func NewManager(store Store) *Manager {
	return &Manager{store: store, current: Defaults()}
}

// Load replaces the active snapshot with the persisted values.
func (m *Manager) Load(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	raw, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	m.mu.Lock()
	m.current = Parse(raw)
	m.mu.Unlock()
	return nil
}

// Current returns the active snapshot.
func (m *Manager) Current() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Update sanitises changes on top of the active snapshot, persists the full
// option set, and activates it.
func (m *Manager) Update(ctx context.Context, changes map[string]string) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.current.Apply(changes)
	if m.store != nil {
		if err := m.store.Save(ctx, next.Values()); err != nil {
			return m.current, fmt.Errorf("save settings: %w", err)
		}
	}
	m.current = next
	return next, nil
}

// MemoryStore keeps option values in memory for tests and local development.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns a store seeded with values.
func NewMemoryStore(values map[string]string) *MemoryStore {
	return &MemoryStore{values: maps.Clone(values)}
}

// Load returns a copy of the stored values.
func (s *MemoryStore) Load(context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values), nil
}

// Save replaces the stored values.
func (s *MemoryStore) Save(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	s.values = maps.Clone(values)
	s.mu.Unlock()
	return nil
}
