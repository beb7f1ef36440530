package config

import (
	"fmt"
	"net/url"
	"os"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate performs validation on the configuration
func Validate(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.LogFormat != "" && cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("invalid log_format: %s (must be json or text)", cfg.LogFormat)
	}

	target, err := url.Parse(cfg.Target)
	if err != nil {
		return fmt.Errorf("invalid target %q: %w", cfg.Target, err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return fmt.Errorf("target %q must use http or https", cfg.Target)
	}
	if target.Host == "" {
		return fmt.Errorf("target %q has no host", cfg.Target)
	}

	if cfg.Users <= 0 {
		return fmt.Errorf("users must be positive, got %d", cfg.Users)
	}
	if cfg.SpawnRate <= 0 {
		return fmt.Errorf("spawn_rate must be positive, got %f", cfg.SpawnRate)
	}

	if d, err := cfg.GetDuration(); err != nil {
		return fmt.Errorf("invalid duration %s: %w", cfg.Duration, err)
	} else if d < 0 {
		return fmt.Errorf("duration cannot be negative, got %s", cfg.Duration)
	}
	if d, err := cfg.GetRequestTimeout(); err != nil {
		return fmt.Errorf("invalid request_timeout %s: %w", cfg.RequestTimeout, err)
	} else if d < 0 {
		return fmt.Errorf("request_timeout cannot be negative, got %s", cfg.RequestTimeout)
	}

	if err := validateProfiles(cfg.Profiles); err != nil {
		return fmt.Errorf("profiles validation failed: %w", err)
	}

	return nil
}

// validateProfiles checks the structural rules every profile must follow.
// Task names are resolved later against the task catalogue.
func validateProfiles(profiles []ProfileSpec) error {
	if len(profiles) == 0 {
		return fmt.Errorf("at least one profile must be defined")
	}

	names := make(map[string]bool)
	totalWeight := 0
	for _, p := range profiles {
		if p.Name == "" {
			return fmt.Errorf("profile name cannot be empty")
		}
		if names[p.Name] {
			return fmt.Errorf("duplicate profile name: %s", p.Name)
		}
		names[p.Name] = true

		if p.UserWeight < 0 {
			return fmt.Errorf("profile %s: user_weight cannot be negative", p.Name)
		}
		totalWeight += p.UserWeight

		if p.IdentityMax < 0 {
			return fmt.Errorf("profile %s: identity_max cannot be negative", p.Name)
		}

		min, err := p.ThinkTime.GetMin()
		if err != nil {
			return fmt.Errorf("profile %s: invalid think_time.min %q: %w", p.Name, p.ThinkTime.Min, err)
		}
		max, err := p.ThinkTime.GetMax()
		if err != nil {
			return fmt.Errorf("profile %s: invalid think_time.max %q: %w", p.Name, p.ThinkTime.Max, err)
		}
		if min < 0 {
			return fmt.Errorf("profile %s: think_time.min cannot be negative", p.Name)
		}
		if max < min {
			return fmt.Errorf("profile %s: think_time.max (%s) is below think_time.min (%s)", p.Name, max, min)
		}

		if len(p.Tasks) == 0 {
			return fmt.Errorf("profile %s: at least one task must be defined", p.Name)
		}
		tasks := make(map[string]bool)
		for i, task := range p.Tasks {
			if task.Name == "" {
				return fmt.Errorf("profile %s, task %d: name cannot be empty", p.Name, i)
			}
			if tasks[task.Name] {
				return fmt.Errorf("profile %s: duplicate task %s", p.Name, task.Name)
			}
			tasks[task.Name] = true
			if task.Weight <= 0 {
				return fmt.Errorf("profile %s, task %s: weight must be positive, got %d", p.Name, task.Name, task.Weight)
			}
		}
	}

	if totalWeight == 0 {
		return fmt.Errorf("at least one profile needs a positive user_weight")
	}

	return nil
}
