package domain

import (
	"fmt"
	"math"
)

// Component score names as they appear in RiskAssessment.Components.
const (
	ComponentCAPE        = "cape"
	ComponentLiftedIndex = "lifted_index"
	ComponentCIN         = "cin"
	ComponentTemperature = "temperature"
	ComponentCloudCover  = "cloud_cover"
)

// DecisionThreshold is the single constant that decides IsLikely and bounds
// the High risk band. Keeping one value for both is deliberate: a result can
// never be "likely" without also being High, and vice versa.
const DecisionThreshold = 0.50

// Risk band lower bounds below High.
const (
	mediumThreshold = 0.30
	lowThreshold    = 0.15
)

// ScorerConfig holds the component weights. Active weights must sum to 1.0;
// when UseCloudCover is set the four base weights are scaled by
// 1−CloudCoverWeight so the invariant holds with five components.
type ScorerConfig struct {
	CAPEWeight        float64
	LiftedIndexWeight float64
	CINWeight         float64
	TemperatureWeight float64
	CloudCoverWeight  float64
	UseCloudCover     bool
}

// DefaultScorerConfig is the canonical weighting: CAPE dominates, lifted
// index second, CIN and temperature as minor modifiers.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		CAPEWeight:        0.50,
		LiftedIndexWeight: 0.35,
		CINWeight:         0.05,
		TemperatureWeight: 0.10,
		CloudCoverWeight:  0.15,
	}
}

// Scorer converts soundings into risk assessments. Construct with NewScorer;
// the zero value is not usable.
type Scorer struct {
	weights map[string]float64
}

// NewScorer validates the config and precomputes the active weight set.
func NewScorer(cfg ScorerConfig) (*Scorer, error) {
	base := cfg.CAPEWeight + cfg.LiftedIndexWeight + cfg.CINWeight + cfg.TemperatureWeight
	if math.Abs(base-1.0) > 1e-9 {
		return nil, fmt.Errorf("scorer base weights must sum to 1.0, got %v", base)
	}

	weights := map[string]float64{
		ComponentCAPE:        cfg.CAPEWeight,
		ComponentLiftedIndex: cfg.LiftedIndexWeight,
		ComponentCIN:         cfg.CINWeight,
		ComponentTemperature: cfg.TemperatureWeight,
	}
	if cfg.UseCloudCover {
		if cfg.CloudCoverWeight <= 0 || cfg.CloudCoverWeight >= 1 {
			return nil, fmt.Errorf("cloud cover weight must be in (0,1), got %v", cfg.CloudCoverWeight)
		}
		scale := 1.0 - cfg.CloudCoverWeight
		for k := range weights {
			weights[k] *= scale
		}
		weights[ComponentCloudCover] = cfg.CloudCoverWeight
	}
	return &Scorer{weights: weights}, nil
}

// Score assesses one sounding. Pure and deterministic: it reads only the
// sample and the precomputed weights, so identical input yields identical
// output and concurrent calls are safe.
func (s *Scorer) Score(sample SoundingSample) RiskAssessment {
	components := map[string]float64{
		ComponentCAPE:        scoreCAPE(sample.CAPE),
		ComponentLiftedIndex: scoreLiftedIndex(sample.LiftedIndex),
		ComponentCIN:         scoreCIN(sample.ConvectiveInhibition),
		ComponentTemperature: scoreTemperature(sample.Temperature),
	}
	if _, ok := s.weights[ComponentCloudCover]; ok {
		components[ComponentCloudCover] = scoreCloudCover(sample.CloudCoverMid, sample.CloudCoverHigh)
	}

	total := 0.0
	for name, score := range components {
		total += s.weights[name] * score
	}

	return RiskAssessment{
		IsLikely:   total >= DecisionThreshold,
		TotalScore: total,
		Level:      levelFor(total),
		Components: components,
	}
}

func levelFor(total float64) RiskLevel {
	switch {
	case total >= DecisionThreshold:
		return RiskLevelHigh
	case total >= mediumThreshold:
		return RiskLevelMedium
	case total >= lowThreshold:
		return RiskLevelLow
	default:
		return RiskLevelNone
	}
}

func scoreCAPE(cape float64) float64 {
	switch {
	case cape >= 2500:
		return 1.0
	case cape >= 1000:
		return 0.8
	case cape >= 500:
		return 0.6
	case cape >= 100:
		return 0.3
	default:
		return 0.0
	}
}

// scoreLiftedIndex: lower is more unstable.
func scoreLiftedIndex(li float64) float64 {
	switch {
	case li <= -6:
		return 1.0
	case li <= -3:
		return 0.8
	case li <= 0:
		return 0.6
	case li <= 3:
		return 0.4
	case li <= 6:
		return 0.2
	default:
		return 0.0
	}
}

// scoreCIN expects a positive suppression magnitude: a small cap barely
// resists convection and contributes a little, a strong cap contributes
// nothing.
func scoreCIN(cin float64) float64 {
	switch {
	case cin <= 10:
		return 0.3
	case cin <= 50:
		return 0.1
	default:
		return 0.0
	}
}

func scoreTemperature(tempC float64) float64 {
	switch {
	case tempC >= 30:
		return 1.0
	case tempC >= 25:
		return 0.8
	case tempC >= 20:
		return 0.6
	case tempC >= 15:
		return 0.4
	default:
		return 0.0
	}
}

// scoreCloudCover uses the greater of mid and high level cover, the layers
// where developing cumulonimbus towers show up first.
func scoreCloudCover(mid, high float64) float64 {
	cover := math.Max(mid, high)
	switch {
	case cover >= 70:
		return 1.0
	case cover >= 50:
		return 0.8
	case cover >= 30:
		return 0.6
	case cover >= 15:
		return 0.3
	default:
		return 0.0
	}
}
