// Package logging builds the reasoner's zap logger and an optional
// JSON-lines audit trail mirroring bus events to disk, grounded on the
// teacher's cmd/nerd/main.go zap bootstrap and internal/logging's
// category/structured-field conventions — generalized here to the
// reasoner's plain level-based config instead of codeNERD's per-category
// debug-mode switches, since the reasoner has no analogous category set.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger's minimum level.
type Config struct {
	Level string // debug, info, warn, error
}

// New builds a production-encoder zap.Logger at the configured level.
func New(cfg Config) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q", level)
	}
}

// With returns a child logger carrying fields on every subsequent entry —
// a thin fluent alias kept for symmetry with the teacher's logger helpers.
func With(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	return logger.With(fields...)
}
