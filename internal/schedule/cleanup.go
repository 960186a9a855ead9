package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/skysight/thunderhead/internal/domain"
	"github.com/skysight/thunderhead/internal/observability"
)

// EntryStore is the slice of the cache store the cleanup job needs.
type EntryStore interface {
	All(ctx context.Context) ([]domain.CacheEntry, error)
	Delete(ctx context.Context, key domain.GridKey) error
}

// Cleanup deletes cache entries past expiry plus a grace period, in bounded
// batches on a fixed (typically daily) interval. The grace period keeps
// recently expired entries around for serve-stale fallback.
type Cleanup struct {
	store     EntryStore
	interval  time.Duration
	grace     time.Duration
	batchSize int
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewCleanup wires a cleanup job.
func NewCleanup(store EntryStore, interval, grace time.Duration, batchSize int, clk clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Cleanup {
	return &Cleanup{
		store:     store,
		interval:  interval,
		grace:     grace,
		batchSize: batchSize,
		clock:     clk,
		metrics:   metrics,
		logger:    logger.With("component", "cleanup"),
	}
}

// Run ticks until the context is cancelled.
func (c *Cleanup) Run(ctx context.Context) error {
	c.logger.Info("cleanup started", "interval", c.interval, "grace", c.grace)
	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("cleanup stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			c.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single purge pass and returns (deleted, failed) counts.
// A per-entry deletion failure is logged and skipped, never aborting the pass.
func (c *Cleanup) RunOnce(ctx context.Context) (deleted, failed int) {
	entries, err := c.store.All(ctx)
	if err != nil {
		c.logger.Error("failed to scan cache entries", "error", err)
		return 0, 0
	}

	cutoff := c.clock.Now().Add(-c.grace)
	processed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		if !e.ExpiresAt.Before(cutoff) {
			continue
		}
		if processed >= c.batchSize {
			// Bounded batch: leave the rest for the next tick.
			break
		}
		processed++
		if err := c.store.Delete(ctx, e.GridKey); err != nil {
			failed++
			c.metrics.CleanupFailures.Inc()
			c.logger.Warn("failed to delete expired entry", "grid_key", e.GridKey, "error", err)
			continue
		}
		deleted++
		c.metrics.CleanupDeleted.Inc()
	}

	c.logger.Info("cleanup pass complete",
		"scanned", len(entries), "deleted", deleted, "failed", failed)
	return deleted, failed
}
