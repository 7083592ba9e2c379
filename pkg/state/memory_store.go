package state

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a minimal in-memory Store intended for tests and examples.
// It keys records by Ref.Identifier().
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
}

type memoryRecord struct {
	ref      Ref
	snapshot Snapshot
	meta     Meta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}}
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (Snapshot, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Snapshot{}, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, Meta{}, false, nil
	}
	return cloneSnapshot(record.snapshot), cloneMeta(record.meta), true, nil
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, snapshot Snapshot, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	s.records[key] = memoryRecord{ref: ref, snapshot: cloneSnapshot(snapshot), meta: cloneMeta(meta)}
	s.mu.Unlock()
	return cloneMeta(meta), nil
}

// List returns the stored refs ordered by identifier.
func (s *MemoryStore) List(_ context.Context) ([]Ref, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	refs := make([]Ref, 0, len(keys))
	for _, key := range keys {
		refs = append(refs, s.records[key].ref)
	}
	return refs, nil
}
