package domain

import "context"

// SoundingProvider fetches the current atmospheric sounding for one point.
// Implementations retry transient faults internally; an error from Fetch
// means all attempts were exhausted or the failure was not retryable.
type SoundingProvider interface {
	Fetch(ctx context.Context, coord Coordinate) (SoundingSample, error)
}
