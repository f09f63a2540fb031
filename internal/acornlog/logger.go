// Package acornlog provides ACORN's structured logging: a slog.Logger backed
// by lumberjack-rotated files or plain stdout/stderr, configured from
// config.LogConfig. Grounded on the teacher's pkg/logger — same
// singleton-plus-package-function shape, generalized from request/service
// fields to ACORN's run/iteration fields.
package acornlog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/danboyne/acorn/internal/config"
)

// Log is the process-wide logger. Init or InitWithConfig must run before any
// package-level logging call; until then Log falls back to a default
// stdout/info logger so early-startup logging (flag parsing, config load
// failures) never panics on a nil receiver.
var Log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Init configures Log from the given level with JSON-to-stdout defaults for
// everything else — the common case for quick CLI runs.
func Init(level string) {
	InitWithConfig(config.LogConfig{Level: level, Format: "json", Output: "stdout"})
}

// InitWithConfig configures Log from a full LogConfig, wiring lumberjack
// rotation when Output is "file".
func InitWithConfig(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var writer io.Writer
	switch cfg.Output {
	case "stderr":
		writer = os.Stderr
	case "file":
		path := cfg.FilePath
		if path == "" {
			path = "logs/acorn.log"
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			writer = os.Stdout
		} else {
			writer = &lumberjack.Logger{
				Filename:   path,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   cfg.Compress,
			}
		}
	default:
		writer = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(writer, opts)
	} else {
		handler = slog.NewJSONHandler(writer, opts)
	}

	Log = slog.New(handler)
}

// WithRun returns a logger scoped to one routing run, identifying it by the
// board filename it was invoked on.
func WithRun(runID string) *slog.Logger {
	return Log.With("run_id", runID)
}

// WithIteration returns a logger scoped to one controller iteration — the
// unit every routability/intervention decision is logged against.
func WithIteration(runID string, iteration int) *slog.Logger {
	return Log.With("run_id", runID, "iteration", iteration)
}

func Debug(msg string, args ...any) { Log.Debug(msg, args...) }
func Info(msg string, args ...any)  { Log.Info(msg, args...) }
func Warn(msg string, args ...any)  { Log.Warn(msg, args...) }
func Error(msg string, args ...any) { Log.Error(msg, args...) }

// Fatal logs at error level and exits the process — reserved for
// unrecoverable startup failures (bad board file, unreachable report sink).
func Fatal(msg string, args ...any) {
	Log.Error(msg, args...)
	os.Exit(1)
}
