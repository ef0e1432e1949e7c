package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		description string
		level       string
		format      string
		expectLevel zapcore.Level
		expectErr   bool
	}{
		{description: "defaults", expectLevel: zapcore.InfoLevel},
		{description: "json debug", level: "DEBUG", format: "json", expectLevel: zapcore.DebugLevel},
		{description: "console warn", level: "warn", format: "console", expectLevel: zapcore.WarnLevel},
		{description: "bad level", level: "loud", expectErr: true},
		{description: "bad format", format: "xml", expectErr: true},
	}
	for _, testCase := range testCases {
		logger, err := New(testCase.level, testCase.format)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expectLevel, logger.Level.Level(), testCase.description)
	}
}

func TestLogger_Child(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	root := &Logger{Logger: zap.New(core), Level: zap.NewAtomicLevelAt(zapcore.InfoLevel)}
	child := root.Child("store")

	restore := NewSilencer(child.Level).Silence()
	child.Info("hidden")
	root.Info("root")
	restore()
	child.Info("child")

	var messages []string
	for _, entry := range logs.All() {
		messages = append(messages, entry.LoggerName+":"+entry.Message)
	}
	assert.Equal(t, []string{":root", "store:child"}, messages)
	assert.Equal(t, zapcore.InfoLevel, root.Level.Level())
}
