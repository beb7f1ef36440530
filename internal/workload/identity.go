package workload

import "strconv"

// NewIdentity draws "<prefix><n>" with n uniform in [1, max].
func NewIdentity(prefix string, max int, rng Rand) string {
	if max < 1 {
		max = 1
	}
	return prefix + strconv.Itoa(rng.IntRange(1, max))
}
