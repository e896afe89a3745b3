package viewmodel

import "sync"

// ViewLock guards the property store of one view container. Every view of
// the container shares it, so a multi-view update made through
// VPStore.Update is observed atomically.
type ViewLock struct {
	mu sync.RWMutex
}

// NewViewLock returns an unlocked ViewLock.
func NewViewLock() *ViewLock {
	return &ViewLock{}
}

// Lock acquires the write lock.
func (l *ViewLock) Lock() { l.mu.Lock() }

// Unlock releases the write lock.
func (l *ViewLock) Unlock() { l.mu.Unlock() }

// RLock acquires the read lock.
func (l *ViewLock) RLock() { l.mu.RLock() }

// RUnlock releases the read lock.
func (l *ViewLock) RUnlock() { l.mu.RUnlock() }
