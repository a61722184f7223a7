package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aatumaykin/docsweep/internal/logger"
)

// scheduleModes lists the modes a cron schedule may request.
var scheduleModes = map[string]bool{
	"routine":       true,
	"normal":        true,
	"emergency":     true,
	"idle":          true,
	"disk_pressure": true, // alias of emergency
}

// Validate проверяет валидность конфигурации и возвращает все найденные ошибки
func (c *Config) Validate() []error {
	var errs []error

	ac := c.AutoCleanup
	if ac.CheckIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("auto_cleanup.check_interval_seconds must be > 0 (got %d)", ac.CheckIntervalSeconds))
	}
	if ac.DiskThresholdMB < 0 {
		errs = append(errs, fmt.Errorf("auto_cleanup.disk_threshold_mb must be >= 0 (got %d)", ac.DiskThresholdMB))
	}
	if ac.EmergencyThresholdMB < 0 {
		errs = append(errs, fmt.Errorf("auto_cleanup.emergency_threshold_mb must be >= 0 (got %d)", ac.EmergencyThresholdMB))
	}
	if ac.DiskThresholdMB > 0 && ac.EmergencyThresholdMB > 0 && ac.EmergencyThresholdMB < ac.DiskThresholdMB {
		errs = append(errs, fmt.Errorf("auto_cleanup.emergency_threshold_mb (%d) must not be below disk_threshold_mb (%d)",
			ac.EmergencyThresholdMB, ac.DiskThresholdMB))
	}
	if ac.IdleTimeoutMinutes < 0 {
		errs = append(errs, fmt.Errorf("auto_cleanup.idle_timeout_minutes must be >= 0 (got %d)", ac.IdleTimeoutMinutes))
	}
	if ac.IdleKeepDays < 0 {
		errs = append(errs, fmt.Errorf("auto_cleanup.idle_keep_days must be >= 0 (got %d)", ac.IdleKeepDays))
	}
	if ac.EmergencyKeepDays < 0 {
		errs = append(errs, fmt.Errorf("auto_cleanup.emergency_keep_days must be >= 0 (got %d)", ac.EmergencyKeepDays))
	}
	if ac.GracePeriodSeconds < 0 {
		errs = append(errs, fmt.Errorf("auto_cleanup.grace_period_seconds must be >= 0 (got %d)", ac.GracePeriodSeconds))
	}

	errs = append(errs, c.validateRules()...)

	for i, s := range c.Schedules {
		field := fmt.Sprintf("schedules[%d]", i)
		if strings.TrimSpace(s.Spec) == "" {
			errs = append(errs, fmt.Errorf("%s.spec is required", field))
		}
		if !scheduleModes[s.Mode] {
			errs = append(errs, fmt.Errorf("invalid %s.mode: %q (expected: routine, normal, emergency, idle)", field, s.Mode))
		}
	}

	if !logger.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
	}

	if c.API.Enabled && c.API.Listen == "" {
		errs = append(errs, fmt.Errorf("api.listen is required when api is enabled"))
	}
	if c.Watch.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce_ms must be >= 0 (got %d)", c.Watch.DebounceMS))
	}

	return errs
}

func (c *Config) validateRules() []error {
	var errs []error

	names := make([]string, 0, len(c.CleanupRules))
	for name := range c.CleanupRules {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[string]string, len(names))
	for _, name := range names {
		rule := c.CleanupRules[name]
		field := "cleanup_rules." + name

		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("cleanup_rules contains an empty category name"))
			continue
		}
		if rule.Days() < 0 {
			errs = append(errs, fmt.Errorf("%s.keep_days must be >= 0 (got %d)", field, rule.Days()))
		}
		if rule.Directory != "" {
			if err := validatePath(rule.Directory, field+".directory"); err != nil {
				errs = append(errs, err)
			}
		}

		dir := filepath.Clean(c.CategoryDir(name))
		if other, dup := seen[dir]; dup {
			errs = append(errs, fmt.Errorf("%s.directory %s is already used by cleanup_rules.%s", field, dir, other))
			continue
		}
		seen[dir] = name
	}

	return errs
}

func validatePath(path, fieldName string) error {
	if path == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}

	if strings.HasPrefix(path, "~") {
		return nil
	}

	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("%s contains potentially dangerous path traversal sequence", fieldName)
		}
	}

	return nil
}
