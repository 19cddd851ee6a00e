// Package logger holds the process-wide zap logger. Init must run before
// any other package logs; tests may leave it uninitialized and get a no-op.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Log = zap.NewNop()

// Init initializes the global logger at the given level ("debug", "info",
// "warn", "error"). An empty level falls back to MATCHCHAT_LOG_LEVEL, then
// to info. Output is JSON on stdout.
func Init(level string) {
	lvl := strings.ToLower(strings.TrimSpace(level))
	if lvl == "" {
		lvl = strings.ToLower(strings.TrimSpace(os.Getenv("MATCHCHAT_LOG_LEVEL")))
	}
	var zl zapcore.Level
	switch lvl {
	case "debug":
		zl = zapcore.DebugLevel
	case "warn", "warning":
		zl = zapcore.WarnLevel
	case "error":
		zl = zapcore.ErrorLevel
	default:
		zl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zl)
	cfg.OutputPaths = []string{"stdout"}
	l, err := cfg.Build()
	if err != nil {
		// zap production config only fails on bad sink paths; keep the no-op
		return
	}
	Log = l
}

// Sync flushes buffered log entries; call on shutdown.
func Sync() {
	_ = Log.Sync()
}
