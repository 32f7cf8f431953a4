package memoize

import "sync"

// Store is the side storage a host hands out for memoized results.
// Lookup reports presence together with the value, so a read can never
// observe a key that is not there.
type Store interface {
	Lookup(key Key) (any, bool)
	// Put overwrites silently.
	Put(key Key, value any)
}

// MapStore is a map backed Store. It is safe for concurrent use.
type MapStore struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewMapStore returns an empty MapStore.
func NewMapStore() *MapStore {
	return &MapStore{data: make(map[string]any)}
}

// Lookup implements Store.
func (s *MapStore) Lookup(key Key) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key.String()]
	return v, ok
}

// Put implements Store.
func (s *MapStore) Put(key Key, value any) {
	s.mu.Lock()
	s.data[key.String()] = value
	s.mu.Unlock()
}

// Len returns the number of stored entries.
func (s *MapStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Clear drops every entry.
func (s *MapStore) Clear() {
	s.mu.Lock()
	s.data = make(map[string]any)
	s.mu.Unlock()
}
