// Package logging builds the zap logger. The terminal belongs to the TUI, so
// logs only ever go to a file, and without one nothing is logged.
package logging

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvDebugLog names a log file when --debug-log is not given.
const EnvDebugLog = "PASS_TUI_DEBUG_LOG"

type Options struct {
	// Path is the log file. Empty disables logging.
	Path string
	// Level is debug, info, warn or error (default debug).
	Level string
	// Format is json (default) or console.
	Format string
}

// New returns a logger writing to opts.Path, or zap.NewNop when no path is
// set. Nothing is ever written to stdout or stderr.
func New(opts Options) (*zap.Logger, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return zap.NewNop(), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "create log dir")
	}

	level := zapcore.DebugLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, errors.Wrapf(err, "log level %q", opts.Level)
		}
	}

	var cfg zap.Config
	if opts.Format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return logger.With(zap.Int("pid", os.Getpid())), nil
}
