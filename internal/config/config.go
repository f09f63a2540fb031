// Package config holds ACORN's engine configuration: the loop-control
// constants spec.md §6 lists as coming from the external input file
// (userDRCfreeThreshold, maxIterations, preEvaporationIterations,
// defaultEvapRate, defaultCellCost) plus the ambient stack's own settings
// (logging, metrics, report sinks) that have nothing to do with the board
// file and are instead supplied the way any Go service takes its runtime
// configuration — a layered loader, grounded on the teacher's pkg/config.
package config

import "fmt"

// Config is the full engine configuration.
type Config struct {
	Engine  EngineConfig  `koanf:"engine"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Report  ReportConfig  `koanf:"report"`
}

// EngineConfig holds the routing-loop parameters spec.md §6 assigns to the
// external input file, plus worker-pool and sensitivity-ladder settings.
// The loader fills and validates every field, but cmd/acorn takes the five
// loop knobs (UserDRCFreeThreshold through DefaultCellCost) from the board
// file (boardfile.Scenario) alone; of this struct it reads only NumThreads
// (when -t is not given) and the two sensitivity-level lists.
type EngineConfig struct {
	UserDRCFreeThreshold     int     `koanf:"user_drc_free_threshold"`
	MaxIterations            int     `koanf:"max_iterations"`
	PreEvaporationIterations int     `koanf:"pre_evaporation_iterations"`
	DefaultEvapRate          float64 `koanf:"default_evap_rate"`
	DefaultCellCost          float64 `koanf:"default_cell_cost"`

	// NumThreads overrides runtime.NumCPU-derived worker-pool sizing; 0 means
	// "one per logical CPU," matching the CLI's `-t` flag default.
	NumThreads int `koanf:"num_threads"`

	TraceSensitivityLevels []float64 `koanf:"trace_sensitivity_levels"`
	ViaSensitivityLevels   []float64 `koanf:"via_sensitivity_levels"`
}

// LogConfig configures structured logging (internal/acornlog).
type LogConfig struct {
	Level      string `koanf:"level"` // debug, info, warn, error
	Format     string `koanf:"format"` // json, text
	Output     string `koanf:"output"` // stdout, stderr, file
	FilePath   string `koanf:"file_path"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig configures the optional Prometheus HTTP exporter
// (internal/obsmetrics).
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"` // host:port for the /metrics listener
}

// ReportConfig configures which report sinks (internal/report) the run
// writes to.
type ReportConfig struct {
	JSONPath      string `koanf:"json_path"`
	CSVPath       string `koanf:"csv_path"`
	MarkdownPath  string `koanf:"markdown_path"`
	PostgresDSN   string `koanf:"postgres_dsn"`
	MaxRecordedDRCs int  `koanf:"max_recorded_drcs"`
}

// Validate checks the subset of fields that must hold for the loop to run
// at all; anything board-file-derived (nets, zones) is validated by the
// boardfile loader instead.
func (c *Config) Validate() error {
	var errs []string

	if c.Engine.MaxIterations < 0 {
		errs = append(errs, "engine.max_iterations must be >= 0")
	}
	if c.Engine.DefaultEvapRate < 0 || c.Engine.DefaultEvapRate >= 100 {
		errs = append(errs, fmt.Sprintf("engine.default_evap_rate must be in [0, 100), got %g", c.Engine.DefaultEvapRate))
	}
	if c.Engine.DefaultCellCost <= 0 {
		errs = append(errs, "engine.default_cell_cost must be > 0")
	}
	if len(c.Engine.TraceSensitivityLevels) == 0 {
		errs = append(errs, "engine.trace_sensitivity_levels must have at least one level")
	}
	if len(c.Engine.ViaSensitivityLevels) == 0 {
		errs = append(errs, "engine.via_sensitivity_levels must have at least one level")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if c.Log.Level != "" && !validLogLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level must be one of debug/info/warn/error, got %q", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %v", errs)
	}
	return nil
}
