package domain

import (
	"fmt"
	"math"
)

// gridPrecision is the quantization step in degrees, ~1.1 km of latitude.
const gridPrecision = 0.01

// GridKey identifies one quantized cache cell, e.g. "35.68:139.76".
type GridKey string

// GridKeyFor buckets a coordinate onto the cache grid by flooring both axes
// to gridPrecision. Flooring (rather than rounding) gives each cell the
// half-open span [x, x+0.01), so any two points inside the same span share a
// key regardless of which edge they sit near.
func GridKeyFor(c Coordinate) GridKey {
	return GridKey(fmt.Sprintf("%.2f:%.2f", quantize(c.Lat), quantize(c.Lon)))
}

func quantize(deg float64) float64 {
	// The epsilon keeps values that are exactly on a cell boundary (35.68
	// is 35.679999… in binary) from flipping into the lower cell.
	return math.Floor(deg/gridPrecision+1e-9) * gridPrecision
}
