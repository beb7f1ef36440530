package utils

import (
	"math/rand"
	"sync"
	"time"
)

// RandSource is a seeded random number generator safe for concurrent use.
// Each virtual user owns one; the scheduler's master source only hands out
// child seeds.
type RandSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandSource creates a new random source with the given seed.
// A zero seed means "seed from the clock".
func NewRandSource(seed int64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// Intn returns a random int in [0, n)
func (r *RandSource) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// Int63 returns a non-negative random int64.
func (r *RandSource) Int63() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Int63()
}

// IntRange returns a random int in the closed interval [min, max].
func (r *RandSource) IntRange(min, max int) int {
	if max <= min {
		return min
	}
	return min + r.Intn(max-min+1)
}

// UniformFloat64 returns a uniformly distributed random number in [min, max)
func (r *RandSource) UniformFloat64(min, max float64) float64 {
	return min + r.Float64()*(max-min)
}

// UniformDuration returns a uniformly distributed duration in [min, max].
func (r *RandSource) UniformDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(r.Float64()*float64(max-min))
}

// Fork returns an independent source seeded from this one. Forks taken in the
// same order from equally seeded parents produce equal streams.
func (r *RandSource) Fork() *RandSource {
	seed := r.Int63()
	if seed == 0 {
		seed = 1
	}
	return NewRandSource(seed)
}
