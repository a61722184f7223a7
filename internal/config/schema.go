// Package config provides configuration loading and validation for docsweep.
// It supports TOML (primary), YAML and JSON documents selected by file extension,
// environment variable expansion, default values, and validation.
//
// Configuration structure:
//   - [auto_cleanup]: monitor loop toggles, thresholds and sweep windows
//   - [cleanup_rules.<category>]: per-category enabled flag, keep_days and directory
//   - [[schedules]]: cron-driven sweeps
//   - [logging]: logging level, format, and output
//   - [api]: admin HTTP endpoint
//   - [metrics]: Prometheus metrics
//   - [watch]: hot reload of this file
//
// A missing file or missing keys fall back to the defaults documented in Default().
//
// Environment variables:
// Paths can reference environment variables using ${VAR} or ${VAR:default} syntax.
// For example: base_dir = "${DOCSWEEP_DATA:/var/lib/docsweep}"
package config

// Config represents the main application configuration.
type Config struct {
	AutoCleanup  AutoCleanupConfig     `toml:"auto_cleanup" yaml:"auto_cleanup" json:"auto_cleanup"`
	CleanupRules map[string]RuleConfig `toml:"cleanup_rules" yaml:"cleanup_rules" json:"cleanup_rules"`
	Schedules    []ScheduleConfig      `toml:"schedules" yaml:"schedules" json:"schedules"`
	Logging      LoggingConfig         `toml:"logging" yaml:"logging" json:"logging"`
	API          APIConfig             `toml:"api" yaml:"api" json:"api"`
	Metrics      MetricsConfig         `toml:"metrics" yaml:"metrics" json:"metrics"`
	Watch        WatchConfig           `toml:"watch" yaml:"watch" json:"watch"`
}

// AutoCleanupConfig представляет конфигурацию фонового мониторинга
type AutoCleanupConfig struct {
	Enabled              bool   `toml:"enabled" yaml:"enabled" json:"enabled"`
	CheckIntervalSeconds int    `toml:"check_interval_seconds" yaml:"check_interval_seconds" json:"check_interval_seconds"`
	DiskThresholdMB      int64  `toml:"disk_threshold_mb" yaml:"disk_threshold_mb" json:"disk_threshold_mb"`
	EmergencyThresholdMB int64  `toml:"emergency_threshold_mb" yaml:"emergency_threshold_mb" json:"emergency_threshold_mb"`
	SessionCleanup       bool   `toml:"session_cleanup" yaml:"session_cleanup" json:"session_cleanup"`
	IdleTimeoutMinutes   int    `toml:"idle_timeout_minutes" yaml:"idle_timeout_minutes" json:"idle_timeout_minutes"`
	IdleKeepDays         int    `toml:"idle_keep_days" yaml:"idle_keep_days" json:"idle_keep_days"`
	EmergencyKeepDays    int    `toml:"emergency_keep_days" yaml:"emergency_keep_days" json:"emergency_keep_days"`
	GracePeriodSeconds   int    `toml:"grace_period_seconds" yaml:"grace_period_seconds" json:"grace_period_seconds"`
	BaseDir              string `toml:"base_dir" yaml:"base_dir" json:"base_dir"`
	RemoveEmptyDirs      bool   `toml:"remove_empty_dirs" yaml:"remove_empty_dirs" json:"remove_empty_dirs"`
	DryRun               bool   `toml:"dry_run" yaml:"dry_run" json:"dry_run"`
}

// RuleConfig представляет правило хранения для одной категории.
// Незаданные поля берутся из значений по умолчанию: включено, 7 дней,
// каталог совпадает с именем категории.
type RuleConfig struct {
	Enabled   *bool  `toml:"enabled" yaml:"enabled" json:"enabled"`
	KeepDays  *int   `toml:"keep_days" yaml:"keep_days" json:"keep_days"`
	Directory string `toml:"directory" yaml:"directory" json:"directory"`
}

// IsEnabled reports the effective enabled flag.
func (r RuleConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Days returns the effective retention window in days.
func (r RuleConfig) Days() int {
	if r.KeepDays == nil {
		return DefaultKeepDays
	}
	return *r.KeepDays
}

// ScheduleConfig представляет cron-расписание принудительной очистки
type ScheduleConfig struct {
	Name string `toml:"name" yaml:"name" json:"name"`
	Spec string `toml:"spec" yaml:"spec" json:"spec"`
	Mode string `toml:"mode" yaml:"mode" json:"mode"`
}

// LoggingConfig представляет конфигурацию логирования
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level" json:"level"`
	Format string `toml:"format" yaml:"format" json:"format"`
	Output string `toml:"output" yaml:"output" json:"output"`
}

// APIConfig представляет конфигурацию admin HTTP API
type APIConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled" json:"enabled"`
	Listen  string `toml:"listen" yaml:"listen" json:"listen"`
}

// MetricsConfig представляет конфигурацию Prometheus метрик
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled" yaml:"enabled" json:"enabled"`
	Namespace string `toml:"namespace" yaml:"namespace" json:"namespace"`
}

// WatchConfig представляет конфигурацию hot reload
type WatchConfig struct {
	Enabled    bool `toml:"enabled" yaml:"enabled" json:"enabled"`
	DebounceMS int  `toml:"debounce_ms" yaml:"debounce_ms" json:"debounce_ms"`
}
