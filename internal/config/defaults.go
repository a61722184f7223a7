package config

const (
	// DefaultKeepDays is used by rules that omit keep_days.
	DefaultKeepDays = 7

	DefaultCheckIntervalSeconds = 300
	DefaultDiskThresholdMB      = 500
	DefaultEmergencyThresholdMB = 1000
	DefaultIdleTimeoutMinutes   = 30
	DefaultIdleKeepDays         = 3
	DefaultEmergencyKeepDays    = 1
	DefaultGracePeriodSeconds   = 60

	DefaultAPIListen        = "127.0.0.1:8089"
	DefaultMetricsNamespace = "docsweep"
	DefaultWatchDebounceMS  = 250
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		AutoCleanup: AutoCleanupConfig{
			Enabled:              true,
			CheckIntervalSeconds: DefaultCheckIntervalSeconds,
			DiskThresholdMB:      DefaultDiskThresholdMB,
			EmergencyThresholdMB: DefaultEmergencyThresholdMB,
			SessionCleanup:       true,
			IdleTimeoutMinutes:   DefaultIdleTimeoutMinutes,
			IdleKeepDays:         DefaultIdleKeepDays,
			EmergencyKeepDays:    DefaultEmergencyKeepDays,
			GracePeriodSeconds:   DefaultGracePeriodSeconds,
			BaseDir:              ".",
			RemoveEmptyDirs:      true,
		},
		CleanupRules: DefaultRules(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		API: APIConfig{
			Enabled: false,
			Listen:  DefaultAPIListen,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultMetricsNamespace,
		},
		Watch: WatchConfig{
			Enabled:    false,
			DebounceMS: DefaultWatchDebounceMS,
		},
	}
}

// DefaultRules returns the built-in category rules.
func DefaultRules() map[string]RuleConfig {
	return map[string]RuleConfig{
		"ocr_results":      {Enabled: boolPtr(true), KeepDays: intPtr(3)},
		"property_reports": {Enabled: boolPtr(true), KeepDays: intPtr(7)},
		"temp_images":      {Enabled: boolPtr(true), KeepDays: intPtr(1)},
		"uploads":          {Enabled: boolPtr(true), KeepDays: intPtr(3)},
		"cache":            {Enabled: boolPtr(true), KeepDays: intPtr(1)},
	}
}

// mergeRules overlays user rules on the defaults. A user rule replaces the
// default rule of the same category as a whole.
func mergeRules(defaults, user map[string]RuleConfig) map[string]RuleConfig {
	merged := make(map[string]RuleConfig, len(defaults)+len(user))
	for name, rule := range defaults {
		merged[name] = rule
	}
	for name, rule := range user {
		merged[name] = rule
	}
	return merged
}

func boolPtr(v bool) *bool { return &v }

func intPtr(v int) *int { return &v }
