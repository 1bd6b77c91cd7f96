// ABOUTME: Root zap logger construction
// ABOUTME: Maps the configured level to a zap config and routes output to file and console
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where log output goes
type Options struct {
	Level string
	// File receives log output when set
	File string
	// Console writes to stderr as well. The TUI owns the terminal, so
	// this is off while it runs.
	Console bool
}

// New builds the root logger. Unknown levels fall back to info.
func New(opts Options) (*zap.Logger, error) {
	cfg := configFor(opts.Level)

	var paths []string
	if opts.File != "" {
		paths = append(paths, opts.File)
	}
	if opts.Console {
		paths = append(paths, "stderr")
	}
	if len(paths) == 0 {
		return zap.NewNop(), nil
	}
	cfg.OutputPaths = paths
	cfg.ErrorOutputPaths = paths

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create zap logger: %w", err)
	}
	return logger, nil
}

func configFor(level string) zap.Config {
	var cfg zap.Config
	switch level {
	case "debug":
		cfg = zap.NewDevelopmentConfig()
	case "warn":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}
