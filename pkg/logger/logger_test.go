package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG", "production"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(" warning ", "production"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error", "development"))
	assert.Equal(t, zapcore.DebugLevel, parseLevel("", "development"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose", "production"))
}

func TestPrintfHelpersWriteThroughSetLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	defer Init("test", "error")

	Info("sent %d", 1)
	Warn("slow %s", "push")
	With("conversation", "c1").Debugf("typing %v", true)

	entries := logs.All()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, "sent 1", entries[0].Message)
		assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
		assert.Equal(t, "c1", entries[2].ContextMap()["conversation"])
	}
}
