package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZapWritesLeveledJSON(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := NewZap(InfoLevel, buf)

	logger.Infof("bean %q created", "service")
	require.NoError(t, logger.Flush())

	out := buf.String()
	assert.Contains(t, out, `bean \"service\" created`)
	assert.Contains(t, out, `"info"`)
}

func TestZapSuppressesBelowLevel(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := NewZap(WarningLevel, buf)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")
	require.NoError(t, logger.Flush())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Equal(t, WarningLevel, logger.LogLevel())
}

func TestZapMultipleWriters(t *testing.T) {
	first, second := new(bytes.Buffer), new(bytes.Buffer)
	logger := NewZap(InfoLevel, first, second)

	logger.Error("fan out")
	require.NoError(t, logger.Flush())

	assert.Contains(t, first.String(), "fan out")
	assert.Contains(t, second.String(), "fan out")
}

func TestDiscardLoggerDropsEverything(t *testing.T) {
	DiscardLogger.Info("nothing")
	DiscardLogger.Errorf("nothing %d", 42)
	assert.Equal(t, InvalidLevel, DiscardLogger.LogLevel())
}

func TestLevelString(t *testing.T) {
	for level, want := range map[Level]string{
		DebugLevel:   "debug",
		InfoLevel:    "info",
		WarningLevel: "warning",
		ErrorLevel:   "error",
		InvalidLevel: "invalid",
	} {
		assert.Equal(t, want, level.String())
	}
	assert.True(t, strings.HasPrefix(InfoLevel.String(), "inf"))
}
