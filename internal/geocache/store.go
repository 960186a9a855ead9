package geocache

import (
	"context"
	"maps"
	"sync"

	"github.com/skysight/thunderhead/internal/domain"
)

// Store is the cache persistence collaborator: one record per grid key with
// get/set/delete-by-key and scan-all. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key domain.GridKey) (domain.CacheEntry, bool, error)
	Set(ctx context.Context, entry domain.CacheEntry) error
	Delete(ctx context.Context, key domain.GridKey) error
	// All returns every stored entry. Used by stats and cleanup only,
	// never on the request hot path.
	All(ctx context.Context) ([]domain.CacheEntry, error)
	Ping(ctx context.Context) error
}

// MemoryStore is the default in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[domain.GridKey]domain.CacheEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[domain.GridKey]domain.CacheEntry)}
}

func (s *MemoryStore) Get(_ context.Context, key domain.GridKey) (domain.CacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	return entry, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, entry domain.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Replace wholesale; entries are immutable snapshots, never merged.
	s.entries[entry.GridKey] = entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key domain.GridKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) All(_ context.Context) ([]domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CacheEntry, 0, len(s.entries))
	for entry := range maps.Values(s.entries) {
		out = append(out, entry)
	}
	return out, nil
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }
