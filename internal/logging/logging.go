// Package logging builds the shared zap logger from configuration.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stride/internal/config"
)

// New builds a production zap logger at the given level. Format "console"
// switches to the human-readable encoder; anything else stays JSON.
func New(level, format string) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if format == "console" {
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		zapConfig.Level = zap.NewAtomicLevelAt(parsed)
	}
	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// NewFromConfig builds the logger from the logging config section. The
// verbose flag forces debug regardless of the configured level.
func NewFromConfig(cfg config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	level := cfg.Level
	if verbose {
		level = "debug"
	}
	return New(level, cfg.Format)
}
