package config

import "fmt"

// ConfigError is returned when a configuration document cannot be read,
// decoded or validated. A running engine keeps its last-good policy when
// a reload fails with ConfigError.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
