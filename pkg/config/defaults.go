package config

// Task names of the built-in catalogue.
const (
	TaskSendMetric      = "send_metric"
	TaskGetAnalytics    = "get_analytics"
	TaskGetSummary      = "get_summary"
	TaskHealthCheck     = "health_check"
	TaskGetAllAnalytics = "get_all_analytics"
	TaskGetCacheMetrics = "get_cache_metrics"
)

const (
	ProfileDevice = "device"
	ProfileAdmin  = "admin"

	DefaultIdentityMax = 1000
)

// DeviceProfileSpec is the IoT device profile: frequent metric pushes and read-backs.
func DeviceProfileSpec() ProfileSpec {
	return ProfileSpec{
		Name:           ProfileDevice,
		UserWeight:     1,
		IdentityPrefix: "device_",
		IdentityMax:    DefaultIdentityMax,
		ThinkTime:      ThinkTimeSpec{Min: "10ms", Max: "50ms"},
		Tasks: []TaskSpec{
			{Name: TaskSendMetric, Weight: 3},
			{Name: TaskGetAnalytics, Weight: 1},
			{Name: TaskGetSummary, Weight: 1},
			{Name: TaskHealthCheck, Weight: 1},
		},
	}
}

// AdminProfileSpec is the operator profile: slow aggregate queries.
func AdminProfileSpec() ProfileSpec {
	return ProfileSpec{
		Name:           ProfileAdmin,
		UserWeight:     1,
		IdentityPrefix: "admin_",
		IdentityMax:    DefaultIdentityMax,
		ThinkTime:      ThinkTimeSpec{Min: "1s", Max: "5s"},
		Tasks: []TaskSpec{
			{Name: TaskGetAllAnalytics, Weight: 3},
			{Name: TaskGetCacheMetrics, Weight: 1},
		},
	}
}

// DefaultConfig returns a valid configuration with the device and admin profiles.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Target:          "http://localhost:8080",
		Users:           10,
		SpawnRate:       10,
		AbandonInFlight: true,
		Profiles:        []ProfileSpec{DeviceProfileSpec(), AdminProfileSpec()},
	}
}
