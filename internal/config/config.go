package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a configuration document.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the document format by file extension. Unknown
// extensions are treated as TOML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatTOML
	}
}

// Load загружает конфигурацию из файла.
// Если файла нет, возвращается конфигурация по умолчанию без ошибки.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			if err := expandEnvVars(cfg); err != nil {
				return nil, &ConfigError{Path: path, Err: err}
			}
			return cfg, nil
		}
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("failed to read config file: %w", err)}
	}

	return Parse(data, FormatFromPath(path), path)
}

// Parse decodes a configuration document over the defaults, expands
// environment variables and validates the result. path is used for error
// messages only.
func Parse(data []byte, format Format, path string) (*Config, error) {
	cfg := Default()
	cfg.CleanupRules = nil

	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, cfg)
	case FormatJSON:
		err = json.Unmarshal(data, cfg)
	default:
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("failed to parse config file: %w", err)}
	}

	cfg.CleanupRules = mergeRules(DefaultRules(), cfg.CleanupRules)

	if err := expandEnvVars(cfg); err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("failed to expand environment variables: %w", err)}
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, &ConfigError{Path: path, Err: errors.Join(errs...)}
	}

	return cfg, nil
}

// CategoryDir returns the absolute-or-base-relative directory of a category.
func (c *Config) CategoryDir(name string) string {
	rule := c.CleanupRules[name]
	dir := rule.Directory
	if dir == "" {
		dir = name
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(c.AutoCleanup.BaseDir, dir)
}

// expandEnvVars расширяет переменные окружения в путях конфигурации
func expandEnvVars(c *Config) error {
	c.AutoCleanup.BaseDir = expandHome(expandEnv(c.AutoCleanup.BaseDir))
	if c.AutoCleanup.BaseDir == "" {
		c.AutoCleanup.BaseDir = "."
	}

	for name, rule := range c.CleanupRules {
		if rule.Directory == "" {
			continue
		}
		rule.Directory = expandHome(expandEnv(rule.Directory))
		c.CleanupRules[name] = rule
	}

	if c.Logging.Output != "stdout" && c.Logging.Output != "stderr" {
		c.Logging.Output = expandHome(expandEnv(c.Logging.Output))
	}

	c.API.Listen = expandEnv(c.API.Listen)
	return nil
}

// expandEnv расширяет переменную окружения формата ${VAR:default}
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	rest := s[end+1:]
	content := s[2:end]
	if parts := strings.SplitN(content, ":", 2); len(parts) == 2 {
		if val := os.Getenv(parts[0]); val != "" {
			return val + rest
		}
		return parts[1] + rest
	}

	return os.Getenv(content) + rest
}

// expandHome расширяет ~ в пути
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}
