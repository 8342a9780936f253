// Package logging builds the zap logger shared by all commands.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options select the log verbosity and output format.
type Options struct {
	// Verbose lowers the level to debug.
	Verbose bool
	// JSON switches to production JSON output for runs driven by other
	// tooling. The default is a human-readable console encoder.
	JSON bool
}

// New builds the logger. All log output goes to stderr so stdout stays
// reserved for command results.
func New(opts Options) (*zap.Logger, error) {
	var config zap.Config
	if opts.JSON {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.DisableStacktrace = true
	}

	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
