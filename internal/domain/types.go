package domain

import (
	"fmt"
	"time"
)

// Coordinate is a WGS-84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports whether the coordinate lies within the valid degree ranges.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]", c.Lon)
	}
	return nil
}

// Direction is one of the four cardinal compass directions a scan probes.
type Direction string

const (
	North Direction = "N"
	East  Direction = "E"
	South Direction = "S"
	West  Direction = "W"
)

// Directions returns the four cardinal directions in scan order.
func Directions() []Direction {
	return []Direction{North, East, South, West}
}

// Bearing returns the fixed compass bearing in degrees.
func (d Direction) Bearing() float64 {
	switch d {
	case North:
		return 0
	case East:
		return 90
	case South:
		return 180
	case West:
		return 270
	}
	return 0
}

// SoundingSample holds the raw atmospheric parameters for one coordinate at
// one instant. Produced by the provider adapter; immutable afterwards.
// ConvectiveInhibition is a positive suppression magnitude (see package doc).
type SoundingSample struct {
	CAPE                 float64   `json:"cape"`
	LiftedIndex          float64   `json:"lifted_index"`
	ConvectiveInhibition float64   `json:"convective_inhibition"`
	Temperature          float64   `json:"temperature"`
	CloudCoverLow        float64   `json:"cloud_cover_low"`
	CloudCoverMid        float64   `json:"cloud_cover_mid"`
	CloudCoverHigh       float64   `json:"cloud_cover_high"`
	Timestamp            time.Time `json:"timestamp_utc"`
}

// RiskLevel is the banded interpretation of a total risk score.
type RiskLevel string

const (
	RiskLevelNone   RiskLevel = "none"
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// RiskAssessment is the scored interpretation of one sounding. It is a pure,
// deterministic function of the sample: identical input yields identical output.
type RiskAssessment struct {
	IsLikely   bool               `json:"is_likely"`
	TotalScore float64            `json:"total_score"`
	Level      RiskLevel          `json:"risk_level"`
	Components map[string]float64 `json:"component_scores"`
}

// DirectionalResult records the outcome of probing one direction.
//
// When risk was found, DistanceKm is the nearest distance at which it
// triggered. When no probe triggered, DistanceKm is the farthest distance
// successfully checked. When every probe failed, Unknown is true and Sample
// and Assessment are nil — "don't know" is never coerced to "no risk".
type DirectionalResult struct {
	Direction  Direction       `json:"direction"`
	DistanceKm float64         `json:"distance_km"`
	Coordinate Coordinate      `json:"coordinate"`
	Sample     *SoundingSample `json:"sample,omitempty"`
	Assessment *RiskAssessment `json:"assessment,omitempty"`
	Unknown    bool            `json:"unknown,omitempty"`
}

// CacheEntry is one cached directional scan, keyed by grid cell. Entries are
// replaced wholesale on refresh, never mutated in place.
type CacheEntry struct {
	GridKey   GridKey                         `json:"grid_key"`
	Results   map[Direction]DirectionalResult `json:"results"`
	CreatedAt time.Time                       `json:"created_at"`
	ExpiresAt time.Time                       `json:"expires_at"`
}

// AllUnknown reports whether every direction in the entry is Unknown.
func (e CacheEntry) AllUnknown() bool {
	return allUnknown(e.Results)
}

func allUnknown(results map[Direction]DirectionalResult) bool {
	if len(results) == 0 {
		return true
	}
	for _, r := range results {
		if !r.Unknown {
			return false
		}
	}
	return true
}

// AnyLikely reports whether risk was detected in at least one direction.
func (e CacheEntry) AnyLikely() bool {
	for _, r := range e.Results {
		if r.Assessment != nil && r.Assessment.IsLikely {
			return true
		}
	}
	return false
}

// MaxLevel returns the highest risk level across known directions, or
// RiskLevelNone when nothing is known.
func (e CacheEntry) MaxLevel() RiskLevel {
	rank := map[RiskLevel]int{RiskLevelNone: 0, RiskLevelLow: 1, RiskLevelMedium: 2, RiskLevelHigh: 3}
	max := RiskLevelNone
	for _, r := range e.Results {
		if r.Assessment != nil && rank[r.Assessment.Level] > rank[max] {
			max = r.Assessment.Level
		}
	}
	return max
}
