// Package logger builds the application's zap logger.
// Components receive a *zap.Logger explicitly; there is no package-level
// global, so output and lifecycle are owned by the composition root.
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// New creates a zap logger for the given level ("debug", "info", "warn",
// "error"). The debug level uses the development config for readable output.
func New(level string) (*zap.Logger, error) {
	if level == "" {
		level = "info"
	}
	if level == "debug" {
		return zap.NewDevelopment()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
