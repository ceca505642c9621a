package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/devraulu/refscout/pkg/reference"
)

// MemoryStore is a process-local Store. It does not survive restarts.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]reference.CacheEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]reference.CacheEntry)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (reference.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return reference.CacheEntry{}, ErrNotFound
	}
	return clone(e), nil
}

func (s *MemoryStore) Put(ctx context.Context, e reference.CacheEntry) error {
	e = clone(e)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Key] = e
	return nil
}

func (s *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error {
	return nil
}

func clone(e reference.CacheEntry) reference.CacheEntry {
	e.Summary.Highlights = slices.Clone(e.Summary.Highlights)
	e.Summary.Assumptions = slices.Clone(e.Summary.Assumptions)
	e.Summary.Components = slices.Clone(e.Summary.Components)
	return e
}
