package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(DefaultScorerConfig())
	require.NoError(t, err)
	return s
}

func TestScore_SevereConvectiveSetup(t *testing.T) {
	// CAPE=3000, LI=-7, CIN=5, Temp=32 → components (1.0, 1.0, 0.3, 1.0)
	// → 0.5·1.0 + 0.35·1.0 + 0.05·0.3 + 0.1·1.0 = 0.965.
	s := newTestScorer(t)
	got := s.Score(SoundingSample{
		CAPE:                 3000,
		LiftedIndex:          -7,
		ConvectiveInhibition: 5,
		Temperature:          32,
	})

	assert.InDelta(t, 1.0, got.Components[ComponentCAPE], 1e-9)
	assert.InDelta(t, 1.0, got.Components[ComponentLiftedIndex], 1e-9)
	assert.InDelta(t, 0.3, got.Components[ComponentCIN], 1e-9)
	assert.InDelta(t, 1.0, got.Components[ComponentTemperature], 1e-9)
	assert.InDelta(t, 0.965, got.TotalScore, 1e-9)
	assert.True(t, got.IsLikely)
	assert.Equal(t, RiskLevelHigh, got.Level)
}

func TestScore_StableAirMass(t *testing.T) {
	// CAPE=50, LI=8, CIN=80, Temp=10 → every component 0.0.
	s := newTestScorer(t)
	got := s.Score(SoundingSample{
		CAPE:                 50,
		LiftedIndex:          8,
		ConvectiveInhibition: 80,
		Temperature:          10,
	})

	for name, score := range got.Components {
		assert.Zero(t, score, "component %s", name)
	}
	assert.Zero(t, got.TotalScore)
	assert.False(t, got.IsLikely)
	assert.Equal(t, RiskLevelNone, got.Level)
}

func TestScore_Idempotent(t *testing.T) {
	s := newTestScorer(t)
	sample := SoundingSample{CAPE: 1200, LiftedIndex: -2, ConvectiveInhibition: 30, Temperature: 22}

	first := s.Score(sample)
	second := s.Score(sample)
	assert.Equal(t, first, second)
}

func TestScore_TotalAlwaysInUnitInterval(t *testing.T) {
	s := newTestScorer(t)
	capes := []float64{0, 50, 100, 500, 1000, 2500, 6000}
	lis := []float64{-12, -6, -3, 0, 3, 6, 10}
	cins := []float64{0, 10, 50, 200}
	temps := []float64{-10, 15, 20, 25, 30, 45}

	for _, cape := range capes {
		for _, li := range lis {
			for _, cin := range cins {
				for _, temp := range temps {
					got := s.Score(SoundingSample{CAPE: cape, LiftedIndex: li, ConvectiveInhibition: cin, Temperature: temp})
					assert.GreaterOrEqual(t, got.TotalScore, 0.0)
					assert.LessOrEqual(t, got.TotalScore, 1.0)
				}
			}
		}
	}
}

func TestScore_RiskLevelBands(t *testing.T) {
	tests := []struct {
		name   string
		sample SoundingSample
		want   RiskLevel
		likely bool
	}{
		{
			name:   "high at threshold boundary",
			sample: SoundingSample{CAPE: 1000, LiftedIndex: 3, ConvectiveInhibition: 100, Temperature: 10},
			// 0.5·0.8 + 0.35·0.4 = 0.54
			want:   RiskLevelHigh,
			likely: true,
		},
		{
			name:   "medium",
			sample: SoundingSample{CAPE: 500, LiftedIndex: 6, ConvectiveInhibition: 100, Temperature: 10},
			// 0.5·0.6 + 0.35·0.2 = 0.37
			want: RiskLevelMedium,
		},
		{
			name:   "low",
			sample: SoundingSample{CAPE: 100, LiftedIndex: 6, ConvectiveInhibition: 100, Temperature: 10},
			// 0.5·0.3 + 0.35·0.2 = 0.22
			want: RiskLevelLow,
		},
		{
			name:   "none",
			sample: SoundingSample{CAPE: 0, LiftedIndex: 10, ConvectiveInhibition: 100, Temperature: 16},
			// 0.1·0.4 = 0.04
			want: RiskLevelNone,
		},
	}

	s := newTestScorer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(tt.sample)
			assert.Equal(t, tt.want, got.Level)
			assert.Equal(t, tt.likely, got.IsLikely)
			// IsLikely and the High band must agree by construction.
			assert.Equal(t, got.Level == RiskLevelHigh, got.IsLikely)
		})
	}
}

func TestScore_CloudCoverComponent(t *testing.T) {
	cfg := DefaultScorerConfig()
	cfg.UseCloudCover = true
	s, err := NewScorer(cfg)
	require.NoError(t, err)

	got := s.Score(SoundingSample{
		CAPE:                 3000,
		LiftedIndex:          -7,
		ConvectiveInhibition: 5,
		Temperature:          32,
		CloudCoverMid:        40,
		CloudCoverHigh:       75,
	})

	// max(40,75)=75 → 1.0; base components scale by 0.85:
	// 0.85·0.965 + 0.15·1.0 = 0.97025.
	assert.InDelta(t, 1.0, got.Components[ComponentCloudCover], 1e-9)
	assert.InDelta(t, 0.97025, got.TotalScore, 1e-9)
	assert.True(t, got.IsLikely)
}

func TestNewScorer_RejectsBadWeights(t *testing.T) {
	cfg := DefaultScorerConfig()
	cfg.CAPEWeight = 0.9
	_, err := NewScorer(cfg)
	assert.Error(t, err)

	cfg = DefaultScorerConfig()
	cfg.UseCloudCover = true
	cfg.CloudCoverWeight = 1.5
	_, err = NewScorer(cfg)
	assert.Error(t, err)
}

func TestScore_CINSuppressionMagnitude(t *testing.T) {
	s := newTestScorer(t)
	weak := s.Score(SoundingSample{ConvectiveInhibition: 5})
	moderate := s.Score(SoundingSample{ConvectiveInhibition: 30})
	strong := s.Score(SoundingSample{ConvectiveInhibition: 120})

	// A weak cap contributes more than a strong one; flipping the sign
	// convention upstream would invert this ordering.
	assert.InDelta(t, 0.3, weak.Components[ComponentCIN], 1e-9)
	assert.InDelta(t, 0.1, moderate.Components[ComponentCIN], 1e-9)
	assert.Zero(t, strong.Components[ComponentCIN])
}
