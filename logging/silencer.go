package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Silencer raises a logger level for the duration of a block and restores it.
// Nested and overlapping Silence calls restore the original level when the
// last one exits.
type Silencer struct {
	level zap.AtomicLevel
	quiet zapcore.Level
	mu    sync.Mutex
	depth int
	saved zapcore.Level
}

// NewSilencer returns a Silencer that raises level to ErrorLevel.
func NewSilencer(level zap.AtomicLevel) *Silencer {
	return &Silencer{level: level, quiet: zapcore.ErrorLevel}
}

// WithQuietLevel sets the level applied while silenced.
func (s *Silencer) WithQuietLevel(level zapcore.Level) *Silencer {
	s.quiet = level
	return s
}

// Silence raises the level and returns a function restoring it; calling the
// returned function more than once has no further effect.
func (s *Silencer) Silence() (restore func()) {
	s.mu.Lock()
	if s.depth == 0 {
		s.saved = s.level.Level()
		if s.saved < s.quiet {
			s.level.SetLevel(s.quiet)
		}
	}
	s.depth++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.depth--
			if s.depth == 0 {
				s.level.SetLevel(s.saved)
			}
		})
	}
}
