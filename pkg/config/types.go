package config

import "time"

// Config represents a load run configuration
type Config struct {
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format,omitempty"` // json or text
	Target          string        `yaml:"target"`               // base URL of the service under test
	Users           int           `yaml:"users"`
	SpawnRate       float64       `yaml:"spawn_rate"` // users per second
	Duration        string        `yaml:"duration,omitempty"`
	Seed            int64         `yaml:"seed,omitempty"`
	RequestTimeout  string        `yaml:"request_timeout,omitempty"`
	AbandonInFlight bool          `yaml:"abandon_in_flight"`
	Profiles        []ProfileSpec `yaml:"profiles"`
}

// ProfileSpec declares one class of virtual users
type ProfileSpec struct {
	Name           string        `yaml:"name"`
	UserWeight     int           `yaml:"user_weight"`
	IdentityPrefix string        `yaml:"identity_prefix"`
	IdentityMax    int           `yaml:"identity_max,omitempty"`
	ThinkTime      ThinkTimeSpec `yaml:"think_time"`
	Tasks          []TaskSpec    `yaml:"tasks"`
}

// ThinkTimeSpec bounds the pause between two cycles of a user
type ThinkTimeSpec struct {
	Min string `yaml:"min"` // e.g., "10ms"
	Max string `yaml:"max"` // e.g., "50ms"
}

// TaskSpec binds a catalogue task to a relative weight
type TaskSpec struct {
	Name   string `yaml:"name"`
	Weight int    `yaml:"weight"`
}

// GetDuration parses the run duration. An empty duration means "until stopped".
func (c *Config) GetDuration() (time.Duration, error) {
	return parseOptionalDuration(c.Duration)
}

// GetRequestTimeout parses the per-request timeout. Empty means no client timeout.
func (c *Config) GetRequestTimeout() (time.Duration, error) {
	return parseOptionalDuration(c.RequestTimeout)
}

// GetMin parses the lower think-time bound
func (t ThinkTimeSpec) GetMin() (time.Duration, error) {
	return time.ParseDuration(t.Min)
}

// GetMax parses the upper think-time bound
func (t ThinkTimeSpec) GetMax() (time.Duration, error) {
	return time.ParseDuration(t.Max)
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
