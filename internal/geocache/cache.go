// Package geocache caches directional risk scans per quantized grid cell so
// concurrent and repeated requests for nearby points share one upstream scan
// per TTL window.
package geocache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/skysight/thunderhead/internal/domain"
	"github.com/skysight/thunderhead/internal/observability"
)

// Scanner is the recompute path invoked on a cache miss.
type Scanner interface {
	Scan(ctx context.Context, origin domain.Coordinate) (map[domain.Direction]domain.DirectionalResult, error)
}

// GeoCache answers directional risk queries from the store when fresh and
// recomputes otherwise, collapsing concurrent recomputes for the same grid
// key into a single upstream scan.
type GeoCache struct {
	store   Store
	scanner Scanner
	ttl     time.Duration
	clock   clockwork.Clock
	group   singleflight.Group
	metrics *observability.Metrics
	logger  *slog.Logger

	mu   sync.Mutex
	subs map[chan domain.CacheEntry]struct{}
}

// New creates a GeoCache with explicit dependencies so tests can inject a
// fake clock and a counting scanner.
func New(store Store, scanner Scanner, ttl time.Duration, clk clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *GeoCache {
	return &GeoCache{
		store:   store,
		scanner: scanner,
		ttl:     ttl,
		clock:   clk,
		metrics: metrics,
		logger:  logger.With("component", "geocache"),
		subs:    make(map[chan domain.CacheEntry]struct{}),
	}
}

// GetOrCompute returns the directional results for the grid cell containing
// origin. A fresh cached entry is returned with no I/O; otherwise the scanner
// runs once per key regardless of request concurrency (single-flight) and the
// entry is replaced wholesale.
//
// An all-Unknown recompute never overwrites a prior entry: the stale results
// are served instead, preserving the last data the upstream actually produced.
func (g *GeoCache) GetOrCompute(ctx context.Context, origin domain.Coordinate) (map[domain.Direction]domain.DirectionalResult, error) {
	if err := origin.Validate(); err != nil {
		return nil, fmt.Errorf("geocache: %w", err)
	}
	key := domain.GridKeyFor(origin)

	entry, ok, err := g.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("geocache get %s: %w", key, err)
	}
	if ok && g.clock.Now().Before(entry.ExpiresAt) {
		g.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return entry.Results, nil
	}
	g.metrics.CacheLookups.WithLabelValues("miss").Inc()

	// Latecomers for the same key await the in-flight recompute instead of
	// independently hitting the upstream provider.
	v, err, _ := g.group.Do(string(key), func() (any, error) {
		return g.recompute(ctx, key, origin)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[domain.Direction]domain.DirectionalResult), nil
}

func (g *GeoCache) recompute(ctx context.Context, key domain.GridKey, origin domain.Coordinate) (map[domain.Direction]domain.DirectionalResult, error) {
	// A latecomer that lost the singleflight race but entered after the
	// winner stored its entry would start a second scan; re-checking here
	// keeps upstream calls at one per key per TTL window.
	if entry, ok, err := g.store.Get(ctx, key); err == nil && ok && g.clock.Now().Before(entry.ExpiresAt) {
		return entry.Results, nil
	}

	results, err := g.scanner.Scan(ctx, origin)
	if err != nil {
		return nil, fmt.Errorf("geocache recompute %s: %w", key, err)
	}

	now := g.clock.Now()
	entry := domain.CacheEntry{
		GridKey:   key,
		Results:   results,
		CreatedAt: now,
		ExpiresAt: now.Add(g.ttl),
	}

	if entry.AllUnknown() {
		// Serve-stale-on-error: a completely failed scan must not destroy
		// the last good data for the cell.
		if prior, ok, getErr := g.store.Get(ctx, key); getErr == nil && ok && !prior.AllUnknown() {
			g.metrics.CacheLookups.WithLabelValues("stale").Inc()
			g.logger.Warn("scan returned no data, serving stale entry",
				"grid_key", key, "expired_at", prior.ExpiresAt)
			return prior.Results, nil
		}
		g.logger.Warn("scan returned no data and no prior entry exists", "grid_key", key)
		return results, nil
	}

	if err := g.store.Set(ctx, entry); err != nil {
		// The computed results are still valid for this caller.
		g.logger.Error("failed to store cache entry", "grid_key", key, "error", err)
		return results, nil
	}
	g.publish(entry)
	return results, nil
}

// Stats summarizes the store for operational visibility. It is a full scan;
// callers must keep it off the request hot path.
type Stats struct {
	Total   int `json:"totalEntries"`
	Valid   int `json:"validEntries"`
	Expired int `json:"expiredEntries"`
}

func (g *GeoCache) Stats(ctx context.Context) (Stats, error) {
	entries, err := g.store.All(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("geocache stats: %w", err)
	}
	now := g.clock.Now()
	stats := Stats{Total: len(entries)}
	for _, e := range entries {
		if now.Before(e.ExpiresAt) {
			stats.Valid++
		} else {
			stats.Expired++
		}
	}
	g.metrics.CacheEntries.Set(float64(stats.Total))
	return stats, nil
}

// Subscribe returns a channel receiving every new cache entry version, plus a
// cancel function. Slow subscribers lose versions rather than blocking the
// recompute path; each entry is a complete replacement so dropped versions
// are superseded by later ones.
func (g *GeoCache) Subscribe(buffer int) (<-chan domain.CacheEntry, func()) {
	ch := make(chan domain.CacheEntry, buffer)
	g.mu.Lock()
	g.subs[ch] = struct{}{}
	g.mu.Unlock()

	cancel := func() {
		g.mu.Lock()
		if _, ok := g.subs[ch]; ok {
			delete(g.subs, ch)
			close(ch)
		}
		g.mu.Unlock()
	}
	return ch, cancel
}

func (g *GeoCache) publish(entry domain.CacheEntry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for ch := range g.subs {
		select {
		case ch <- entry:
		default:
		}
	}
}
