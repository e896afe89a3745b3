package storage

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryBackend is an in-memory implementation of SessionBackend for testing.
type MemoryBackend struct {
	mu           sync.RWMutex
	styles       map[string]StyleRecord
	associations map[string]AssociationRecord
	initialized  bool
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Initialize implements SessionBackend.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.styles == nil {
		m.styles = make(map[string]StyleRecord)
		m.associations = make(map[string]AssociationRecord)
	}
	m.initialized = true
	return nil
}

// Close implements SessionBackend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.styles = nil
	m.associations = nil
	m.initialized = false
	return nil
}

// IsInitialized reports whether the backend is open.
func (m *MemoryBackend) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// SaveStyle implements SessionBackend.
func (m *MemoryBackend) SaveStyle(ctx context.Context, style StyleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return ErrNotInitialized
	}
	m.styles[style.Title] = style
	return nil
}

// DeleteStyle implements SessionBackend.
func (m *MemoryBackend) DeleteStyle(ctx context.Context, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return ErrNotInitialized
	}
	delete(m.styles, title)
	maps.DeleteFunc(m.associations, func(_ string, a AssociationRecord) bool {
		return a.References(title)
	})
	return nil
}

// Styles implements SessionBackend.
func (m *MemoryBackend) Styles(ctx context.Context) ([]StyleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return nil, ErrNotInitialized
	}
	out := slices.Collect(maps.Values(m.styles))
	slices.SortFunc(out, func(a, b StyleRecord) int { return cmp.Compare(a.Title, b.Title) })
	return out, nil
}

// SaveAssociation implements SessionBackend.
func (m *MemoryBackend) SaveAssociation(ctx context.Context, assoc AssociationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return ErrNotInitialized
	}
	m.associations[assoc.Key()] = assoc
	return nil
}

// DeleteAssociation implements SessionBackend.
func (m *MemoryBackend) DeleteAssociation(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return ErrNotInitialized
	}
	delete(m.associations, key)
	return nil
}

// Associations implements SessionBackend.
func (m *MemoryBackend) Associations(ctx context.Context) ([]AssociationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return nil, ErrNotInitialized
	}
	out := slices.Collect(maps.Values(m.associations))
	slices.SortFunc(out, func(a, b AssociationRecord) int { return cmp.Compare(a.Key(), b.Key()) })
	return out, nil
}
