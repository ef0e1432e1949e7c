// Package logging builds zap loggers and provides scoped log suppression.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger couples a zap logger with the level that controls it.
type Logger struct {
	*zap.Logger
	Level zap.AtomicLevel
}

// New creates a logger at level ("debug", "info", "warn", "error") using
// format "json" or "console".
func New(level, format string) (*Logger, error) {
	atomic := zap.NewAtomicLevel()
	if strings.TrimSpace(level) != "" {
		if err := atomic.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	var cfg zap.Config
	switch strings.ToLower(format) {
	case "", "console":
		cfg = zap.NewDevelopmentConfig()
	case "json":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	cfg.Level = atomic
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger, Level: atomic}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop(), Level: zap.NewAtomicLevelAt(zapcore.InfoLevel)}
}

// Named returns a child logger sharing the same level.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name), Level: l.Level}
}

// Child returns a named logger with its own level, initially equal to l's.
// Raising the child's level leaves l unaffected.
func (l *Logger) Child(name string) *Logger {
	level := zap.NewAtomicLevelAt(l.Level.Level())
	return &Logger{Logger: l.Logger.Named(name).WithOptions(zap.IncreaseLevel(level)), Level: level}
}
