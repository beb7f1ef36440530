package workload

import (
	"fmt"

	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/config"
)

// Profile is the immutable description of a class of virtual users: which
// tasks they pick, how often, how long they pause and how they are named.
type Profile struct {
	name           string
	userWeight     int
	identityPrefix string
	identityMax    int
	thinkTime      ThinkTime
	sampler        *Sampler
}

// Name returns the profile name
func (p Profile) Name() string { return p.name }

// UserWeight is the profile's share of the spawned population
func (p Profile) UserWeight() int { return p.userWeight }

// ThinkTime returns the pause range between cycles
func (p Profile) ThinkTime() ThinkTime { return p.thinkTime }

// Sampler returns the profile's task sampler
func (p Profile) Sampler() *Sampler { return p.sampler }

// IdentityPrefix returns the prefix of generated identities
func (p Profile) IdentityPrefix() string { return p.identityPrefix }

// IdentityMax returns the upper bound of the identity number
func (p Profile) IdentityMax() int { return p.identityMax }

// NewIdentity draws an identity for a freshly spawned user of this profile
func (p Profile) NewIdentity(rng Rand) string {
	return NewIdentity(p.identityPrefix, p.identityMax, rng)
}

// Only returns a copy of the profile restricted to the named task, which must
// already be part of it. Useful for pinning a user to one action.
func (p Profile) Only(taskName string) (Profile, error) {
	for _, e := range p.sampler.Entries() {
		if e.Task.Name != taskName {
			continue
		}
		sampler, err := NewSampler([]WeightedTask{{Task: e.Task, Weight: 1}})
		if err != nil {
			return Profile{}, err
		}
		restricted := p
		restricted.sampler = sampler
		return restricted, nil
	}
	return Profile{}, fmt.Errorf("%w: %s is not part of profile %s", ErrUnknownTask, taskName, p.name)
}

// ProfileFromSpec resolves a configured profile against the task catalogue
func ProfileFromSpec(spec config.ProfileSpec) (Profile, error) {
	min, err := spec.ThinkTime.GetMin()
	if err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", spec.Name, err)
	}
	max, err := spec.ThinkTime.GetMax()
	if err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", spec.Name, err)
	}
	think, err := NewThinkTime(min, max)
	if err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", spec.Name, err)
	}

	entries := make([]WeightedTask, 0, len(spec.Tasks))
	for _, ts := range spec.Tasks {
		task, err := LookupTask(ts.Name)
		if err != nil {
			return Profile{}, fmt.Errorf("profile %s: %w", spec.Name, err)
		}
		entries = append(entries, WeightedTask{Task: task, Weight: ts.Weight})
	}
	sampler, err := NewSampler(entries)
	if err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", spec.Name, err)
	}

	identityMax := spec.IdentityMax
	if identityMax == 0 {
		identityMax = config.DefaultIdentityMax
	}

	return Profile{
		name:           spec.Name,
		userWeight:     spec.UserWeight,
		identityPrefix: spec.IdentityPrefix,
		identityMax:    identityMax,
		thinkTime:      think,
		sampler:        sampler,
	}, nil
}

// ProfilesFromConfig resolves every profile of cfg
func ProfilesFromConfig(cfg *config.Config) ([]Profile, error) {
	profiles := make([]Profile, 0, len(cfg.Profiles))
	for _, spec := range cfg.Profiles {
		p, err := ProfileFromSpec(spec)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// DeviceProfile returns the built-in device profile
func DeviceProfile() Profile {
	return mustProfile(config.DeviceProfileSpec())
}

// AdminProfile returns the built-in admin profile
func AdminProfile() Profile {
	return mustProfile(config.AdminProfileSpec())
}

func mustProfile(spec config.ProfileSpec) Profile {
	p, err := ProfileFromSpec(spec)
	if err != nil {
		panic(fmt.Sprintf("built-in profile %s is invalid: %v", spec.Name, err))
	}
	return p
}
