package session

import (
	"sort"
	"sync"
)

// Store is the external session mapping fields are persisted in. It is owned
// by the host and outlives any model bound to it.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)
	Range(fn func(key string, value any) bool)
}

// StoreFactory lazily produces a store. Bind calls it exactly once.
type StoreFactory func() Store

// MapStore is an in-memory Store safe for concurrent use.
type MapStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewMapStore returns an empty MapStore.
func NewMapStore() *MapStore {
	return &MapStore{values: map[string]any{}}
}

// NewMapStoreFrom returns a MapStore seeded with a copy of values.
func NewMapStoreFrom(values map[string]any) *MapStore {
	s := &MapStore{values: make(map[string]any, len(values))}
	for key, value := range values {
		s.values[key] = value
	}
	return s
}

func (s *MapStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok
}

func (s *MapStore) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = map[string]any{}
	}
	s.values[key] = value
}

func (s *MapStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Range calls fn for each entry in key order until fn returns false. fn may
// mutate the store.
func (s *MapStore) Range(fn func(key string, value any) bool) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	for _, key := range keys {
		value, ok := s.Get(key)
		if !ok {
			continue
		}
		if !fn(key, value) {
			return
		}
	}
}

// Len returns the number of entries.
func (s *MapStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Snapshot returns a copy of the current entries.
func (s *MapStore) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for key, value := range s.values {
		out[key] = value
	}
	return out
}

// ReadOnlyState is a view over a Store without mutating methods. It reads
// through to the live store, so writes made elsewhere are visible.
type ReadOnlyState struct {
	store Store
}

// ReadOnly wraps store in a read-only view.
func ReadOnly(store Store) ReadOnlyState {
	return ReadOnlyState{store: store}
}

// Get returns the value stored under key.
func (v ReadOnlyState) Get(key string) (any, bool) {
	if v.store == nil {
		return nil, false
	}
	return v.store.Get(key)
}

// Contains reports whether key is present.
func (v ReadOnlyState) Contains(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// Range iterates the underlying store.
func (v ReadOnlyState) Range(fn func(key string, value any) bool) {
	if v.store == nil {
		return
	}
	v.store.Range(fn)
}

// Keys returns the stored keys in the order Range yields them.
func (v ReadOnlyState) Keys() []string {
	var keys []string
	v.Range(func(key string, _ any) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Len returns the number of stored entries.
func (v ReadOnlyState) Len() int {
	n := 0
	v.Range(func(string, any) bool {
		n++
		return true
	})
	return n
}
