package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skysight/thunderhead/internal/domain"
	"github.com/skysight/thunderhead/internal/observability"
)

type fakeEntryStore struct {
	mu      sync.Mutex
	entries map[domain.GridKey]domain.CacheEntry
	failing map[domain.GridKey]bool
}

func newFakeEntryStore() *fakeEntryStore {
	return &fakeEntryStore{
		entries: make(map[domain.GridKey]domain.CacheEntry),
		failing: make(map[domain.GridKey]bool),
	}
}

func (s *fakeEntryStore) add(key domain.GridKey, expiresAt time.Time) {
	s.entries[key] = domain.CacheEntry{GridKey: key, ExpiresAt: expiresAt}
}

func (s *fakeEntryStore) All(_ context.Context) ([]domain.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CacheEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out, nil
}

func (s *fakeEntryStore) Delete(_ context.Context, key domain.GridKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing[key] {
		return errors.New("delete failed")
	}
	delete(s.entries, key)
	return nil
}

func (s *fakeEntryStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func newTestCleanup(store EntryStore, clk clockwork.Clock, batchSize int) *Cleanup {
	return NewCleanup(store, 24*time.Hour, time.Hour, batchSize, clk,
		observability.NewMetricsForTesting(), discardLogger())
}

func TestCleanup_DeletesPastGraceOnly(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	clk := clockwork.NewFakeClockAt(now)
	store := newFakeEntryStore()
	store.add("a", now.Add(-2*time.Hour)) // expired past grace
	store.add("b", now.Add(-30*time.Minute)) // expired but within grace
	store.add("c", now.Add(10*time.Minute))  // still valid

	deleted, failed := newTestCleanup(store, clk, 100).RunOnce(context.Background())
	assert.Equal(t, 1, deleted)
	assert.Zero(t, failed)
	assert.Equal(t, 2, store.len())
}

func TestCleanup_PerItemFailureContinues(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	clk := clockwork.NewFakeClockAt(now)
	store := newFakeEntryStore()
	store.add("a", now.Add(-3*time.Hour))
	store.add("b", now.Add(-3*time.Hour))
	store.add("c", now.Add(-3*time.Hour))
	store.failing["b"] = true

	deleted, failed := newTestCleanup(store, clk, 100).RunOnce(context.Background())
	assert.Equal(t, 2, deleted)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, store.len(), "only the failing entry remains")
}

func TestCleanup_BoundedBatch(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	clk := clockwork.NewFakeClockAt(now)
	store := newFakeEntryStore()
	for _, key := range []domain.GridKey{"a", "b", "c", "d", "e"} {
		store.add(key, now.Add(-3*time.Hour))
	}

	deleted, _ := newTestCleanup(store, clk, 2).RunOnce(context.Background())
	assert.Equal(t, 2, deleted, "a pass deletes at most one batch")
	assert.Equal(t, 3, store.len())
}

func TestCleanup_RunTicks(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	clk := clockwork.NewFakeClockAt(now)
	store := newFakeEntryStore()
	store.add("a", now.Add(-3*time.Hour))
	c := newTestCleanup(store, clk, 100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(done)
	}()

	require.NoError(t, clk.BlockUntilContext(ctx, 1))
	clk.Advance(24 * time.Hour)

	require.Eventually(t, func() bool {
		return store.len() == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
