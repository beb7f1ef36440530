package workload

import (
	"fmt"
	"iter"
	"sort"
)

// WeightedTask pairs a task with its relative weight
type WeightedTask struct {
	Task   Task
	Weight int
}

// Sampler draws tasks from a categorical distribution proportional to
// integer weights. Selection is with replacement; a Sampler is immutable and
// safe to share between users as long as each brings its own Rand.
type Sampler struct {
	entries    []WeightedTask
	cumulative []int
	total      int
}

// NewSampler builds a sampler over an ordered list of (task, weight) pairs.
func NewSampler(entries []WeightedTask) (*Sampler, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyTaskSet
	}

	s := &Sampler{
		entries:    make([]WeightedTask, len(entries)),
		cumulative: make([]int, len(entries)),
	}
	copy(s.entries, entries)

	for i, e := range entries {
		if e.Weight <= 0 {
			return nil, fmt.Errorf("%w: task %s has weight %d", ErrInvalidWeight, e.Task.Name, e.Weight)
		}
		s.total += e.Weight
		s.cumulative[i] = s.total
	}
	return s, nil
}

// Next draws one task.
func (s *Sampler) Next(rng Rand) Task {
	r := rng.Intn(s.total)
	// first bucket whose cumulative weight exceeds r
	i := sort.SearchInts(s.cumulative, r+1)
	return s.entries[i].Task
}

// Sequence returns an unbounded, lazily drawn sequence of tasks. Each range
// over it starts a fresh draw loop on rng, so it can be restarted; the caller
// stops it by breaking out of the loop.
func (s *Sampler) Sequence(rng Rand) iter.Seq[Task] {
	return func(yield func(Task) bool) {
		for {
			if !yield(s.Next(rng)) {
				return
			}
		}
	}
}

// Entries returns a copy of the (task, weight) pairs in declaration order
func (s *Sampler) Entries() []WeightedTask {
	out := make([]WeightedTask, len(s.entries))
	copy(out, s.entries)
	return out
}

// TotalWeight returns the sum of all weights
func (s *Sampler) TotalWeight() int {
	return s.total
}

// Probability returns the selection probability of the named task, or 0.
func (s *Sampler) Probability(name string) float64 {
	for _, e := range s.entries {
		if e.Task.Name == name {
			return float64(e.Weight) / float64(s.total)
		}
	}
	return 0
}
