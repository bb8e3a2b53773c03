package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	logger.Debug("Debug message", map[string]interface{}{
		"pair": "USD/EUR",
	})

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "DEBUG", logEntry["level"])
	assert.Equal(t, "Debug message", logEntry["message"])
	assert.Equal(t, "USD/EUR", logEntry["pair"])
	assert.Contains(t, logEntry, "timestamp")
	assert.Contains(t, logEntry, "file")
	assert.Contains(t, logEntry, "line")

	t.Run("Levels are respected", func(t *testing.T) {
		var out bytes.Buffer
		warnLogger := NewJSONLogger(&out, WarnLevel)

		warnLogger.Debug("Should not appear", nil)
		warnLogger.Info("Should not appear either", nil)
		assert.Equal(t, "", out.String())

		warnLogger.Warn("Warning message", nil)
		assert.Contains(t, out.String(), "Warning message")

		out.Reset()
		warnLogger.Error("Error message", nil)
		assert.Contains(t, out.String(), "\"level\":\"ERROR\"")
	})

	t.Run("WithField", func(t *testing.T) {
		buf.Reset()
		logger.WithField("component", "resolver").Info("With field", nil)

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "resolver", entry["component"])
		assert.Equal(t, "With field", entry["message"])
	})

	t.Run("WithFields", func(t *testing.T) {
		buf.Reset()
		logger.WithFields(map[string]interface{}{
			"app":     "fx-route-engine",
			"version": "1.0.0",
		}).Info("With fields", map[string]interface{}{"tier": "cache"})

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "fx-route-engine", entry["app"])
		assert.Equal(t, "1.0.0", entry["version"])
		assert.Equal(t, "cache", entry["tier"])
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLevel(" ERROR "))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
}

func TestDefaultLogger(t *testing.T) {
	original := GetDefaultLogger()
	assert.NotNil(t, original)

	var buf bytes.Buffer
	SetDefaultLogger(NewJSONLogger(&buf, DebugLevel))
	GetDefaultLogger().Info("through default", nil)
	assert.Contains(t, buf.String(), "through default")

	SetDefaultLogger(nil)
	assert.NotNil(t, GetDefaultLogger())

	SetDefaultLogger(original)
}
