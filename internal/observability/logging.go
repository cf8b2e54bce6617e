// Package observability provides the zap loggers used across the harvester.
//
// Two loggers exist. CLILogger is a console-encoded logger for command
// output and is initialized once at startup. The service logger is a
// structured JSON logger built per configuration for the HTTP server.
package observability

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the process-wide logger for CLI commands.
//
// It defaults to a no-op logger so package-level log calls are safe
// before InitCLILogger runs.
var CLILogger = zap.NewNop()

// InitCLILogger installs the CLI logger.
//
// name is attached to every entry as the component field. verbose
// lowers the minimum level from info to debug.
func InitCLILogger(name string, verbose bool) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	CLILogger = zap.New(core).With(zap.String("component", name))
}

// NewServiceLogger builds the structured logger for the HTTP service.
//
// level is one of debug, info, warn, error. profile selects the
// encoding: "structured" (JSON) or "console".
func NewServiceLogger(level, profile string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch profile {
	case "structured", "":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid logging profile %q", profile)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// Sync flushes buffered log entries. Safe to call on shutdown paths.
func Sync() {
	_ = CLILogger.Sync()
}
