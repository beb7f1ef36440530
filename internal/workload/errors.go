package workload

import (
	"errors"
	"time"
)

var (
	ErrEmptyTaskSet     = errors.New("task set is empty")
	ErrInvalidWeight    = errors.New("task weight must be positive")
	ErrUnknownTask      = errors.New("unknown task")
	ErrInvalidThinkTime = errors.New("invalid think time range")
)

// Rand is the randomness a workload needs. *utils.RandSource satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
	IntRange(min, max int) int
	UniformFloat64(min, max float64) float64
	UniformDuration(min, max time.Duration) time.Duration
}
