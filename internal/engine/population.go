package engine

import (
	"sort"

	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/workload"
)

// SplitUsers divides users across profiles in proportion to their user
// weights. Floors are assigned first and the leftover users go to the
// largest remainders, ties broken by profile order.
func SplitUsers(profiles []workload.Profile, users int) []int {
	counts := make([]int, len(profiles))
	total := 0
	for _, p := range profiles {
		total += p.UserWeight()
	}
	if total <= 0 || users <= 0 {
		return counts
	}

	remainders := make([]int, len(profiles))
	assigned := 0
	for i, p := range profiles {
		counts[i] = users * p.UserWeight() / total
		remainders[i] = users * p.UserWeight() % total
		assigned += counts[i]
	}

	order := make([]int, len(profiles))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for _, i := range order {
		if assigned == users {
			break
		}
		if profiles[i].UserWeight() == 0 {
			continue
		}
		counts[i]++
		assigned++
	}
	return counts
}

// SpawnPlan returns the profile of every user in spawn order. Profiles
// are interleaved by smooth weighted round robin over their user counts,
// so a partial ramp-up already carries the configured mix.
func SpawnPlan(profiles []workload.Profile, users int) []workload.Profile {
	counts := SplitUsers(profiles, users)
	total := 0
	for _, n := range counts {
		total += n
	}

	plan := make([]workload.Profile, 0, total)
	current := make([]int, len(profiles))
	for len(plan) < total {
		best := -1
		for i, n := range counts {
			if n == 0 {
				continue
			}
			current[i] += n
			if best < 0 || current[i] > current[best] {
				best = i
			}
		}
		current[best] -= total
		plan = append(plan, profiles[best])
	}
	return plan
}
