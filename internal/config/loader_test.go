package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoFileOrEnv(t *testing.T) {
	l := NewLoader(WithConfigPaths("/nonexistent/acorn.yaml"))
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Engine.MaxIterations)
	assert.Equal(t, 25.0, cfg.Engine.DefaultEvapRate)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	// The env-key transform maps every underscore to a path separator, so
	// only single-word leaf keys round-trip through an ACORN_SECTION_LEAF
	// environment variable unambiguously; multi-word leaves (e.g.
	// max_iterations) need the YAML file or direct Config construction
	// instead. This mirrors the same flattening the teacher's loader uses.
	t.Setenv("ACORN_LOG_LEVEL", "debug")
	t.Setenv("ACORN_METRICS_ENABLED", "true")

	l := NewLoader(WithConfigPaths("/nonexistent/acorn.yaml"))
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestValidateRejectsBadEvapRate(t *testing.T) {
	cfg := Config{Engine: EngineConfig{
		DefaultEvapRate:        100,
		DefaultCellCost:        1,
		TraceSensitivityLevels: []float64{0},
		ViaSensitivityLevels:   []float64{0},
	}}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := Config{Engine: EngineConfig{
		DefaultEvapRate:        25,
		DefaultCellCost:        1,
		TraceSensitivityLevels: []float64{0},
		ViaSensitivityLevels:   []float64{0},
	}, Log: LogConfig{Level: "verbose"}}
	assert.Error(t, cfg.Validate())
}
