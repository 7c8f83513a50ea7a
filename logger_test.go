package sagatx

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func decodeLastLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	lines := strings.Split(buf.String(), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}

		var payload map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[i]), &payload), "failed to decode log line")
		return payload
	}

	t.Fatal("no log lines found")
	return nil
}

func TestDefaultLoggerPrefixesAndStreams(t *testing.T) {
	tests := []struct {
		name      string
		logFn     func(*DefaultLogger)
		toErrOut  bool
		wantLevel string
		wantMsg   string
	}{
		{
			name:      "log",
			logFn:     func(l *DefaultLogger) { l.Log("Test message") },
			wantLevel: "info",
			wantMsg:   "[Saga] Test message",
		},
		{
			name:      "debug",
			logFn:     func(l *DefaultLogger) { l.Debug("Debug message") },
			wantLevel: "debug",
			wantMsg:   "[Saga Debug] Debug message",
		},
		{
			name:      "warn",
			logFn:     func(l *DefaultLogger) { l.Warn("Warning message") },
			toErrOut:  true,
			wantLevel: "warn",
			wantMsg:   "[Saga Warning] Warning message",
		},
		{
			name:      "error",
			logFn:     func(l *DefaultLogger) { l.Error("Error message", errors.New("Test error")) },
			toErrOut:  true,
			wantLevel: "error",
			wantMsg:   "[Saga Error] Error message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			tt.logFn(NewLogger(&out, &errOut))

			written, silent := &out, &errOut
			if tt.toErrOut {
				written, silent = &errOut, &out
			}
			assert.Empty(t, silent.String())

			payload := decodeLastLogLine(t, written)
			assert.Equal(t, tt.wantLevel, payload["level"])
			assert.Equal(t, tt.wantMsg, payload["message"])
			assert.Equal(t, "saga", payload["component"])
			assert.NotNil(t, payload["time"])
		})
	}
}

func TestDefaultLoggerErrorField(t *testing.T) {
	var errOut bytes.Buffer
	NewLogger(nil, &errOut).Error("Error message", errors.New("Test error"))

	payload := decodeLastLogLine(t, &errOut)
	assert.Equal(t, "Test error", payload["error"])
}

func TestDefaultLoggerWithLevel(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogger(&out, nil).WithLevel(zerolog.InfoLevel)

	logger.Debug("hidden")
	assert.Empty(t, out.String())

	logger.Log("shown")
	payload := decodeLastLogLine(t, &out)
	assert.Equal(t, "[Saga] shown", payload["message"])
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Log("step done")
	logger.Debug("executing")
	logger.Warn("careful")
	logger.Error("Saga transaction failed", errors.New("boom"))

	require.Equal(t, 4, logs.Len())
	entries := logs.All()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "saga", entries[0].LoggerName)
	assert.Equal(t, "boom", entries[3].ContextMap()["error"])
}

func TestZapLoggerNil(t *testing.T) {
	assert.NotPanics(t, func() {
		NewZapLogger(nil).Log("dropped")
	})
}
