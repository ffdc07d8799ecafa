// Package config loads session-wide defaults for a vigil session from a
// YAML file, merging them over built-in defaults. Adapted from
// core/config/manager.go, trimmed to the single Config shape this engine
// needs and stripped of hot-reload file watchers, which have no
// equivalent here — a session's configuration is fixed for the lifetime
// of a Run.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the defaults applied to every ObservationRequest and to the
// supervisor unless a call site overrides them explicitly.
type Config struct {
	Interval           time.Duration `yaml:"interval"`
	FileLimit          *int          `yaml:"file_limit"`
	FlattenData        bool          `yaml:"flatten_data"`
	LockCallbacks      bool          `yaml:"lock_callbacks"`
	TerminateAllOnFail bool          `yaml:"terminate_all_on_fail"`
	Timeout            time.Duration `yaml:"timeout"`
	ExcludeGlobs       []string      `yaml:"exclude_globs"`
	LogLevel           string        `yaml:"log_level"`
}

// Default returns the built-in defaults, matching monitor.py's
// FileMonitor constructor defaults (file_limit=50, interval 0.1s,
// flatten_data=False).
func Default() *Config {
	limit := 50
	return &Config{
		Interval:           100 * time.Millisecond,
		FileLimit:          &limit,
		FlattenData:        false,
		LockCallbacks:      false,
		TerminateAllOnFail: false,
		LogLevel:           "info",
	}
}

// Load reads a YAML file at path and merges it over Default(), so that
// a partially-specified file only overrides the fields it sets.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("vigil/config: reading %s: %w", path, err)
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("vigil/config: parsing %s: %w", path, err)
	}

	DeepMerge(cfg, loaded)
	return cfg, nil
}
