package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerModuleAndDetails(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core))

	l.Info("DISPATCH", "sent", map[string]interface{}{"group": "ops"})
	l.Warn("DISPATCH", "no details", nil)
	l.Error("DISPATCH", "failed", map[string]interface{}{"error": "boom"})

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "sent", entries[0].Message)
	assert.Equal(t, "DISPATCH", entries[0].ContextMap()["module"])
	assert.Equal(t, map[string]interface{}{"group": "ops"}, entries[0].ContextMap()["details"])

	assert.Equal(t, map[string]interface{}{}, entries[1].ContextMap()["details"])

	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "boom", entries[2].ContextMap()["error_ref"])
}

func TestWALoggerLevelsAndSub(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	wa := NewWALogger(FromZap(zap.New(core)), "whatsmeow", "INFO")

	wa.Debugf("hidden %d", 1)
	wa.Infof("connected to %s", "web")
	wa.Sub("Client").Errorf("stream error: %v", "EOF")

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, "connected to web", entries[0].Message)
	assert.Equal(t, "whatsmeow", entries[0].ContextMap()["module"])

	assert.Equal(t, "stream error: EOF", entries[1].Message)
	assert.Equal(t, "whatsmeow/Client", entries[1].ContextMap()["module"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestParseWALevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseWALevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, parseWALevel("ERROR"))
	assert.Equal(t, zapcore.WarnLevel, parseWALevel(""))
}
