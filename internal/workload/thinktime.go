package workload

import (
	"fmt"
	"time"
)

// ThinkTime is the closed range a user pauses for between cycles
type ThinkTime struct {
	Min time.Duration
	Max time.Duration
}

// NewThinkTime validates and returns a think-time range
func NewThinkTime(min, max time.Duration) (ThinkTime, error) {
	if min < 0 || max < min {
		return ThinkTime{}, fmt.Errorf("%w: [%s, %s]", ErrInvalidThinkTime, min, max)
	}
	return ThinkTime{Min: min, Max: max}, nil
}

// Sample draws a pause uniformly from the range
func (t ThinkTime) Sample(rng Rand) time.Duration {
	return rng.UniformDuration(t.Min, t.Max)
}

// Contains reports whether d lies within the range
func (t ThinkTime) Contains(d time.Duration) bool {
	return d >= t.Min && d <= t.Max
}
