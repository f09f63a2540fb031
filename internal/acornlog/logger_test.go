package acornlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danboyne/acorn/internal/config"
)

func TestInit(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "unknown"} {
		Init(level)
		if Log == nil {
			t.Errorf("Init(%s) should set Log", level)
		}
	}
}

func TestInitWithConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LogConfig
	}{
		{name: "json format stdout", cfg: config.LogConfig{Level: "info", Format: "json", Output: "stdout"}},
		{name: "text format stderr", cfg: config.LogConfig{Level: "debug", Format: "text", Output: "stderr"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitWithConfig(tt.cfg)
			if Log == nil {
				t.Error("Log should not be nil")
			}
		})
	}
}

func TestInitWithConfigFileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	InitWithConfig(config.LogConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logPath,
	})
	if Log == nil {
		t.Fatal("Log should not be nil")
	}
	Log.Info("test message")
}

func TestInitWithConfigFileOutputInvalidDir(t *testing.T) {
	InitWithConfig(config.LogConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: "/nonexistent/deeply/nested/dir/test.log",
	})
	if Log == nil {
		t.Error("Log should not be nil even with invalid path")
	}
}

func TestLoggingFunctions(t *testing.T) {
	Init("debug")
	Debug("debug message", "key", "value")
	Info("info message", "key", "value")
	Warn("warn message", "key", "value")
	Error("error message", "key", "value")
}

func TestWithRun(t *testing.T) {
	Init("info")
	if logger := WithRun("board-1"); logger == nil {
		t.Error("WithRun should return logger")
	}
}

func TestWithIteration(t *testing.T) {
	Init("info")
	if logger := WithIteration("board-1", 7); logger == nil {
		t.Error("WithIteration should return logger")
	}
}

func TestFatal(t *testing.T) {
	if os.Getenv("TEST_FATAL") == "1" {
		Init("info")
		Fatal("fatal message")
		return
	}
	// Fatal calls os.Exit; exercising it would require a subprocess.
}
