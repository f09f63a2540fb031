package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "ACORN_"
	configEnvVar = "ACORN_CONFIG_PATH"
)

// Loader layers configuration from defaults, an optional YAML file, and
// environment variables, in that priority order (later sources win).
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConfigPaths overrides the list of YAML file locations searched when
// ACORN_CONFIG_PATH is not set.
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) { l.configPaths = paths }
}

// WithEnvPrefix overrides the environment-variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) { l.envPrefix = prefix }
}

// NewLoader builds a Loader with ACORN's default search paths and env
// prefix, which opts can override.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"acorn.yaml",
			"config/acorn.yaml",
			"/etc/acorn/acorn.yaml",
		},
		envPrefix: envPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load layers defaults, the config file (if found), and environment
// variables, then unmarshals and validates the result.
func (l *Loader) Load() (*Config, error) {
	if err := l.k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: loading defaults: %w", err)
	}

	if err := l.loadConfigFile(); err != nil {
		fmt.Fprintf(os.Stderr, "config: warning: %v\n", err)
	}

	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaults() map[string]any {
	return map[string]any{
		"engine.user_drc_free_threshold":     1,
		"engine.max_iterations":              1000,
		"engine.pre_evaporation_iterations":  1,
		"engine.default_evap_rate":           25.0,
		"engine.default_cell_cost":           1.0,
		"engine.num_threads":                 0,
		"engine.trace_sensitivity_levels":    []float64{0, 25, 50, 75, 100},
		"engine.via_sensitivity_levels":      []float64{0, 25, 50, 75, 100},

		"log.level":        "info",
		"log.format":       "json",
		"log.output":       "stdout",
		"log.max_size_mb":  100,
		"log.max_backups":  3,
		"log.max_age_days": 7,
		"log.compress":     true,

		"metrics.enabled": false,
		"metrics.addr":    ":9090",

		"report.max_recorded_drcs": 10000,
	}
}

func (l *Loader) loadConfigFile() error {
	if configPath := os.Getenv(configEnvVar); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return l.k.Load(file.Provider(configPath), yaml.Parser())
		}
	}
	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, err := os.Stat(absPath); err == nil {
			return l.k.Load(file.Provider(absPath), yaml.Parser())
		}
	}
	return fmt.Errorf("no config file found in %v", l.configPaths)
}

func (l *Loader) loadEnv() error {
	return l.k.Load(env.Provider(l.envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, l.envPrefix)),
			"_", ".",
		)
	}), nil)
}

// MustLoad loads configuration or panics — used by callers (tests, one-off
// tools) that would rather crash loudly than propagate a config error.
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
