package engine

import (
	"testing"

	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/workload"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/config"
)

func weighted(t *testing.T, name string, weight int) workload.Profile {
	t.Helper()
	spec := config.DeviceProfileSpec()
	spec.Name = name
	spec.UserWeight = weight
	p, err := workload.ProfileFromSpec(spec)
	if err != nil {
		t.Fatalf("ProfileFromSpec: %v", err)
	}
	return p
}

func TestSplitUsersLargestRemainder(t *testing.T) {
	tests := []struct {
		name    string
		weights []int
		users   int
		want    []int
	}{
		{"even", []int{1, 1}, 10, []int{5, 5}},
		{"odd tie goes to first", []int{1, 1}, 5, []int{3, 2}},
		{"two to one", []int{2, 1}, 4, []int{3, 1}},
		{"three way", []int{1, 1, 1}, 2, []int{1, 1, 0}},
		{"zero weight", []int{1, 0}, 3, []int{3, 0}},
		{"fewer users than profiles", []int{1, 3}, 1, []int{0, 1}},
		{"no users", []int{1, 1}, 0, []int{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles := make([]workload.Profile, len(tt.weights))
			for i, w := range tt.weights {
				profiles[i] = weighted(t, string(rune('a'+i)), w)
			}
			got := SplitUsers(profiles, tt.users)
			sum := 0
			for i := range got {
				sum += got[i]
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
			if tt.users > 0 && sum != tt.users {
				t.Fatalf("expected counts to sum to %d, got %d", tt.users, sum)
			}
		})
	}
}

func TestSpawnPlanInterleaves(t *testing.T) {
	device := weighted(t, "device", 3)
	admin := weighted(t, "admin", 1)

	plan := SpawnPlan([]workload.Profile{device, admin}, 8)
	if len(plan) != 8 {
		t.Fatalf("expected 8 users, got %d", len(plan))
	}

	counts := map[string]int{}
	for i, p := range plan {
		counts[p.Name()]++
		if i == 3 && counts["admin"] != 1 {
			t.Fatalf("expected one admin within the first four spawns, plan prefix %v", names(plan[:4]))
		}
	}
	if counts["device"] != 6 || counts["admin"] != 2 {
		t.Fatalf("expected 6 device and 2 admin, got %v", counts)
	}
}

func TestSpawnPlanDefaultProfiles(t *testing.T) {
	plan := SpawnPlan([]workload.Profile{workload.DeviceProfile(), workload.AdminProfile()}, 2)
	if len(plan) != 2 || plan[0].Name() != "device" || plan[1].Name() != "admin" {
		t.Fatalf("unexpected plan %v", names(plan))
	}
}

func names(plan []workload.Profile) []string {
	out := make([]string, len(plan))
	for i, p := range plan {
		out[i] = p.Name()
	}
	return out
}
