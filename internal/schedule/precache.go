// Package schedule runs the periodic background jobs: warming the geo-cache
// for active-user locations and purging entries that outlived their grace
// period. Neither job holds work across ticks; each runs to completion or
// failure within its invocation.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/skysight/thunderhead/internal/domain"
	"github.com/skysight/thunderhead/internal/observability"
)

// CoordinateSource supplies the coordinates of currently active users. The
// real implementation lives outside this service; a static env-configured
// source stands in for it.
type CoordinateSource interface {
	ActiveCoordinates(ctx context.Context) ([]domain.Coordinate, error)
}

// RiskCache is the slice of the geo-cache the precacher needs.
type RiskCache interface {
	GetOrCompute(ctx context.Context, origin domain.Coordinate) (map[domain.Direction]domain.DirectionalResult, error)
}

// Precacher warms the cache on a fixed interval so interactive requests hit
// fresh entries. Cells are de-duplicated on the cache grid and processed in
// bounded batches with a pause between them to respect upstream rate limits.
type Precacher struct {
	source     CoordinateSource
	cache      RiskCache
	interval   time.Duration
	batchSize  int
	batchPause time.Duration
	quiet      domain.QuietHours
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewPrecacher wires a precache scheduler.
func NewPrecacher(source CoordinateSource, cache RiskCache, interval time.Duration, batchSize int, batchPause time.Duration, quiet domain.QuietHours, clk clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Precacher {
	return &Precacher{
		source:     source,
		cache:      cache,
		interval:   interval,
		batchSize:  batchSize,
		batchPause: batchPause,
		quiet:      quiet,
		clock:      clk,
		metrics:    metrics,
		logger:     logger.With("component", "precacher"),
	}
}

// Run ticks until the context is cancelled.
func (p *Precacher) Run(ctx context.Context) error {
	p.logger.Info("precacher started", "interval", p.interval, "batch_size", p.batchSize)
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("precacher stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			p.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single warming pass and returns the number of cells
// warmed. Exposed for tests and one-shot operational use.
func (p *Precacher) RunOnce(ctx context.Context) int {
	if p.quiet.Contains(p.clock.Now()) {
		p.metrics.PrecacheSkipped.Inc()
		p.logger.Info("precache tick skipped, inside quiet hours")
		return 0
	}

	coords, err := p.source.ActiveCoordinates(ctx)
	if err != nil {
		p.logger.Error("failed to obtain active coordinates", "error", err)
		return 0
	}

	cells := dedupeCells(coords)
	warmed := 0
	for i, c := range cells {
		if ctx.Err() != nil {
			return warmed
		}
		if i > 0 && i%p.batchSize == 0 {
			if !sleepWithContext(ctx, p.clock, p.batchPause) {
				return warmed
			}
		}
		if _, err := p.cache.GetOrCompute(ctx, c); err != nil {
			p.logger.Warn("precache cell failed", "lat", c.Lat, "lon", c.Lon, "error", err)
			continue
		}
		warmed++
		p.metrics.PrecacheCells.Inc()
	}

	p.logger.Info("precache pass complete", "cells", len(cells), "warmed", warmed)
	return warmed
}

// dedupeCells collapses coordinates onto distinct grid cells, keeping the
// first coordinate seen per cell as its representative. Order is preserved so
// warming is deterministic.
func dedupeCells(coords []domain.Coordinate) []domain.Coordinate {
	seen := make(map[domain.GridKey]struct{}, len(coords))
	out := make([]domain.Coordinate, 0, len(coords))
	for _, c := range coords {
		if c.Validate() != nil {
			continue
		}
		key := domain.GridKeyFor(c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

func sleepWithContext(ctx context.Context, clk clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := clk.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

// StaticSource is a fixed coordinate list standing in for the external
// active-user collaborator.
type StaticSource struct {
	coords []domain.Coordinate
}

// NewStaticSource creates a source returning the given coordinates on every call.
func NewStaticSource(coords []domain.Coordinate) *StaticSource {
	return &StaticSource{coords: coords}
}

func (s *StaticSource) ActiveCoordinates(_ context.Context) ([]domain.Coordinate, error) {
	return s.coords, nil
}
