package workload

import (
	"time"

	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/models"
)

// Range is a half-open float interval [Min, Max)
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within the closed range
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) draw(rng Rand) float64 {
	return rng.UniformFloat64(r.Min, r.Max)
}

// Value ranges of generated device readings.
var (
	CPURange     = Range{Min: 0.1, Max: 0.9}
	MemoryRange  = Range{Min: 0.2, Max: 0.8}
	RPSRange     = Range{Min: 10, Max: 1000}
	NetworkRange = Range{Min: 1, Max: 100}
)

// NewMetricSample builds a fresh reading for deviceID stamped with now.
// Each field is drawn independently.
func NewMetricSample(deviceID string, now time.Time, rng Rand) models.MetricSample {
	return models.MetricSample{
		DeviceID:  deviceID,
		Timestamp: now.Unix(),
		CPU:       CPURange.draw(rng),
		Memory:    MemoryRange.draw(rng),
		RPS:       RPSRange.draw(rng),
		Network:   NetworkRange.draw(rng),
	}
}
