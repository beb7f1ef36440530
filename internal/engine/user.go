package engine

import (
	"sync/atomic"

	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/workload"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/utils"
)

// VirtualUser is one simulated client. Identity and Profile are fixed at
// spawn time.
type VirtualUser struct {
	ID       int64
	Identity string
	Profile  workload.Profile

	rng    *utils.RandSource
	cycles atomic.Int64
}

// Cycles returns how many task cycles the user has completed
func (u *VirtualUser) Cycles() int64 {
	return u.cycles.Load()
}

// ThinkTime returns the pause range the user draws from between cycles
func (u *VirtualUser) ThinkTime() workload.ThinkTime {
	return u.Profile.ThinkTime()
}
