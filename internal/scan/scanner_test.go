package scan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skysight/thunderhead/internal/domain"
	"github.com/skysight/thunderhead/internal/observability"
)

var testOrigin = domain.Coordinate{Lat: 35.68, Lon: 139.76}

// stableSample scores well below the decision threshold.
var stableSample = domain.SoundingSample{CAPE: 50, LiftedIndex: 8, ConvectiveInhibition: 80, Temperature: 10}

// severeSample scores 0.965, well above it.
var severeSample = domain.SoundingSample{CAPE: 3000, LiftedIndex: -7, ConvectiveInhibition: 5, Temperature: 32}

// fakeProvider resolves each fetch through a caller-supplied function and
// records every probed coordinate.
type fakeProvider struct {
	mu      sync.Mutex
	fetched []domain.Coordinate
	resolve func(coord domain.Coordinate) (domain.SoundingSample, error)
}

func (f *fakeProvider) Fetch(_ context.Context, coord domain.Coordinate) (domain.SoundingSample, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, coord)
	f.mu.Unlock()
	return f.resolve(coord)
}

func (f *fakeProvider) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

func newTestScanner(t *testing.T, provider domain.SoundingProvider, distances []float64) *Scanner {
	t.Helper()
	scorer, err := domain.NewScorer(domain.DefaultScorerConfig())
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(provider, scorer, distances, 4, observability.NewMetricsForTesting(), logger)
}

func TestScan_AllDirectionsStable(t *testing.T) {
	provider := &fakeProvider{resolve: func(domain.Coordinate) (domain.SoundingSample, error) {
		return stableSample, nil
	}}
	scanner := newTestScanner(t, provider, []float64{50, 150, 250})

	results, err := scanner.Scan(context.Background(), testOrigin)
	require.NoError(t, err)
	require.Len(t, results, 4)

	for _, dir := range domain.Directions() {
		r := results[dir]
		assert.False(t, r.Unknown)
		require.NotNil(t, r.Assessment)
		assert.False(t, r.Assessment.IsLikely)
		// No probe triggered: the farthest checked distance is recorded.
		assert.Equal(t, 250.0, r.DistanceKm)
	}
	// Without a short-circuit every direction probes every distance.
	assert.Equal(t, 12, provider.fetchCount())
}

func TestScan_NearestThreatFirst(t *testing.T) {
	// Only the 150 km probe east of the origin is favorable.
	eastAt150, err := domain.Project(testOrigin, domain.East, 150)
	require.NoError(t, err)

	provider := &fakeProvider{resolve: func(coord domain.Coordinate) (domain.SoundingSample, error) {
		if coord == eastAt150 {
			return severeSample, nil
		}
		return stableSample, nil
	}}
	scanner := newTestScanner(t, provider, []float64{50, 150, 250})

	results, err := scanner.Scan(context.Background(), testOrigin)
	require.NoError(t, err)

	east := results[domain.East]
	require.NotNil(t, east.Assessment)
	assert.True(t, east.Assessment.IsLikely)
	assert.Equal(t, 150.0, east.DistanceKm)
	assert.Equal(t, eastAt150, east.Coordinate)

	// East short-circuited after 150 km; the other directions probed all
	// three distances: 2 + 3·3 = 11 fetches.
	assert.Equal(t, 11, provider.fetchCount())
}

func TestScan_PartialFailureSkipsProbe(t *testing.T) {
	northAt50, err := domain.Project(testOrigin, domain.North, 50)
	require.NoError(t, err)

	provider := &fakeProvider{resolve: func(coord domain.Coordinate) (domain.SoundingSample, error) {
		if coord == northAt50 {
			return domain.SoundingSample{}, errors.New("upstream blew up")
		}
		return stableSample, nil
	}}
	scanner := newTestScanner(t, provider, []float64{50, 150, 250})

	results, err := scanner.Scan(context.Background(), testOrigin)
	require.NoError(t, err)

	// One failed probe does not make the direction Unknown; farther
	// distances still count.
	north := results[domain.North]
	assert.False(t, north.Unknown)
	assert.Equal(t, 250.0, north.DistanceKm)
}

func TestScan_AllProbesFailedIsUnknown(t *testing.T) {
	northOf := map[domain.Coordinate]bool{}
	for _, d := range []float64{50, 150, 250} {
		c, err := domain.Project(testOrigin, domain.North, d)
		require.NoError(t, err)
		northOf[c] = true
	}

	provider := &fakeProvider{resolve: func(coord domain.Coordinate) (domain.SoundingSample, error) {
		if northOf[coord] {
			return domain.SoundingSample{}, errors.New("unreachable")
		}
		return stableSample, nil
	}}
	scanner := newTestScanner(t, provider, []float64{50, 150, 250})

	results, err := scanner.Scan(context.Background(), testOrigin)
	require.NoError(t, err)

	north := results[domain.North]
	assert.True(t, north.Unknown)
	assert.Nil(t, north.Sample)
	assert.Nil(t, north.Assessment)

	// A complete map is still returned; failures never shrink it.
	require.Len(t, results, 4)
	assert.False(t, results[domain.East].Unknown)
}

func TestScan_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	provider := &fakeProvider{resolve: func(domain.Coordinate) (domain.SoundingSample, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return stableSample, nil
	}}

	scorer, err := domain.NewScorer(domain.DefaultScorerConfig())
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	scanner := New(provider, scorer, []float64{50, 150}, 2, observability.NewMetricsForTesting(), logger)

	_, err = scanner.Scan(context.Background(), testOrigin)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestScan_InvalidOrigin(t *testing.T) {
	provider := &fakeProvider{resolve: func(domain.Coordinate) (domain.SoundingSample, error) {
		return stableSample, nil
	}}
	scanner := newTestScanner(t, provider, []float64{50})

	_, err := scanner.Scan(context.Background(), domain.Coordinate{Lat: 95, Lon: 0})
	assert.Error(t, err)
	assert.Zero(t, provider.fetchCount())
}

func TestAssessPoint(t *testing.T) {
	provider := &fakeProvider{resolve: func(domain.Coordinate) (domain.SoundingSample, error) {
		return severeSample, nil
	}}
	scanner := newTestScanner(t, provider, []float64{50, 150, 250})

	sample, assessment, err := scanner.AssessPoint(context.Background(), testOrigin)
	require.NoError(t, err)
	assert.Equal(t, severeSample, sample)
	assert.True(t, assessment.IsLikely)
	// Single-point mode probes the origin itself, once.
	assert.Equal(t, 1, provider.fetchCount())
	assert.Equal(t, testOrigin, provider.fetched[0])
}

func TestAssessPoint_PropagatesFetchError(t *testing.T) {
	provider := &fakeProvider{resolve: func(domain.Coordinate) (domain.SoundingSample, error) {
		return domain.SoundingSample{}, errors.New("provider down")
	}}
	scanner := newTestScanner(t, provider, []float64{50})

	_, _, err := scanner.AssessPoint(context.Background(), testOrigin)
	assert.ErrorContains(t, err, "provider down")
}
