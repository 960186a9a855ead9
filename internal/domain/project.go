package domain

import (
	"fmt"
	"math"
)

// kmPerDegreeLat is the equirectangular approximation used for all offset
// math: one degree of latitude spans roughly 111 km everywhere, and one
// degree of longitude spans 111·cos(lat) km. Intentionally not ellipsoidal
// geodesy; the error is negligible at scan distances of a few hundred km.
const kmPerDegreeLat = 111.0

// maxProjectableLat bounds east/west projection. Beyond it cos(lat) is close
// enough to zero that the longitude offset blows up, so the input is rejected
// as degenerate rather than producing a garbage coordinate.
const maxProjectableLat = 89.9

// Project offsets origin by distanceKm along the given cardinal direction.
// It is pure and safe for concurrent use. distanceKm must be positive and
// origin must be valid; projections that would leave the valid coordinate
// domain (over a pole, or east/west hard against one) return a
// *DegenerateInputError.
func Project(origin Coordinate, dir Direction, distanceKm float64) (Coordinate, error) {
	if err := origin.Validate(); err != nil {
		return Coordinate{}, fmt.Errorf("project from invalid origin: %w", err)
	}
	if distanceKm <= 0 {
		return Coordinate{}, fmt.Errorf("project: distance must be positive, got %v", distanceKm)
	}

	latOffset := distanceKm / kmPerDegreeLat

	switch dir {
	case North, South:
		lat := origin.Lat + latOffset
		if dir == South {
			lat = origin.Lat - latOffset
		}
		if lat > 90 || lat < -90 {
			return Coordinate{}, &DegenerateInputError{Lat: origin.Lat, Reason: "projection crosses a pole"}
		}
		return Coordinate{Lat: lat, Lon: origin.Lon}, nil

	case East, West:
		if math.Abs(origin.Lat) >= maxProjectableLat {
			return Coordinate{}, &DegenerateInputError{Lat: origin.Lat, Reason: "cos(latitude) too small for east/west offset"}
		}
		// The cosine correction is mandatory: without it east/west offsets
		// drift by 1/cos(lat), roughly 2x at 60° latitude.
		lonOffset := distanceKm / (kmPerDegreeLat * math.Cos(origin.Lat*math.Pi/180))
		lon := origin.Lon + lonOffset
		if dir == West {
			lon = origin.Lon - lonOffset
		}
		return Coordinate{Lat: origin.Lat, Lon: normalizeLon(lon)}, nil
	}

	return Coordinate{}, fmt.Errorf("project: unknown direction %q", dir)
}

// normalizeLon wraps a longitude into [-180,180] after crossing the antimeridian.
func normalizeLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
