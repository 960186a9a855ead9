// Package scan orchestrates the four-direction risk probe around an origin
// coordinate: project outward, fetch a sounding, score it, stop per direction
// at the nearest distance where risk triggers.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skysight/thunderhead/internal/domain"
	"github.com/skysight/thunderhead/internal/observability"
)

// Scanner fans out across the cardinal directions with bounded concurrency.
// Within one direction distances are probed sequentially, ascending, because
// the nearest-threat-first short-circuit makes farther probes wasteful once
// risk is found.
type Scanner struct {
	provider      domain.SoundingProvider
	scorer        *domain.Scorer
	distancesKm   []float64
	maxConcurrent int
	metrics       *observability.Metrics
	logger        *slog.Logger
}

// New creates a Scanner. distancesKm must be strictly ascending (validated by
// config); maxConcurrent bounds the direction fan-out.
func New(provider domain.SoundingProvider, scorer *domain.Scorer, distancesKm []float64, maxConcurrent int, metrics *observability.Metrics, logger *slog.Logger) *Scanner {
	if maxConcurrent <= 0 {
		maxConcurrent = len(domain.Directions())
	}
	return &Scanner{
		provider:      provider,
		scorer:        scorer,
		distancesKm:   distancesKm,
		maxConcurrent: maxConcurrent,
		metrics:       metrics,
		logger:        logger.With("component", "scanner"),
	}
}

// Scan probes all four directions around origin and always returns a complete
// map: every direction holds either a valid assessment or an explicit Unknown
// result. It errors only on an invalid origin, never on upstream failures.
func (s *Scanner) Scan(ctx context.Context, origin domain.Coordinate) (map[domain.Direction]domain.DirectionalResult, error) {
	if err := origin.Validate(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	s.metrics.ScansInFlight.Inc()
	defer s.metrics.ScansInFlight.Dec()
	start := time.Now()
	defer func() {
		s.metrics.ScanDuration.Observe(time.Since(start).Seconds())
	}()

	dirs := domain.Directions()
	results := make([]domain.DirectionalResult, len(dirs))

	// scanDirection never returns an error, so the group context is never
	// cancelled early; a failing direction must not abort its siblings.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i, dir := range dirs {
		g.Go(func() error {
			results[i] = s.scanDirection(gctx, origin, dir)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[domain.Direction]domain.DirectionalResult, len(dirs))
	for i, dir := range dirs {
		if results[i].Unknown {
			s.metrics.DirectionsUnknown.Inc()
		}
		out[dir] = results[i]
	}
	return out, nil
}

// AssessPoint fetches and scores the origin itself, the single-point query
// mode. Unlike Scan it propagates fetch errors: there is no sibling direction
// to fall back on.
func (s *Scanner) AssessPoint(ctx context.Context, origin domain.Coordinate) (domain.SoundingSample, domain.RiskAssessment, error) {
	if err := origin.Validate(); err != nil {
		return domain.SoundingSample{}, domain.RiskAssessment{}, fmt.Errorf("assess point: %w", err)
	}
	sample, err := s.provider.Fetch(ctx, origin)
	if err != nil {
		return domain.SoundingSample{}, domain.RiskAssessment{}, err
	}
	return sample, s.scorer.Score(sample), nil
}

// scanDirection probes one direction at ascending distances. A failed probe
// (projection or fetch) is skipped and scanning continues outward; only when
// every probe fails is the direction reported Unknown.
func (s *Scanner) scanDirection(ctx context.Context, origin domain.Coordinate, dir domain.Direction) domain.DirectionalResult {
	var farthest *domain.DirectionalResult

	for _, distanceKm := range s.distancesKm {
		coord, err := domain.Project(origin, dir, distanceKm)
		if err != nil {
			s.logger.Warn("projection failed, skipping probe",
				"direction", dir, "distance_km", distanceKm, "error", err)
			continue
		}

		sample, err := s.provider.Fetch(ctx, coord)
		if err != nil {
			s.logger.Warn("sounding fetch failed, skipping probe",
				"direction", dir, "distance_km", distanceKm,
				"lat", coord.Lat, "lon", coord.Lon, "error", err)
			continue
		}

		assessment := s.scorer.Score(sample)
		result := domain.DirectionalResult{
			Direction:  dir,
			DistanceKm: distanceKm,
			Coordinate: coord,
			Sample:     &sample,
			Assessment: &assessment,
		}
		if assessment.IsLikely {
			// Nearest threat found; farther probes are irrelevant.
			return result
		}
		farthest = &result
	}

	if farthest == nil {
		return domain.DirectionalResult{Direction: dir, Unknown: true}
	}
	return *farthest
}
