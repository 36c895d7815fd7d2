package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/indexrep/pkg/config"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log output: %s", buf.String())
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log := New(&config.Config{Env: "development", LogLevel: tt.level, LogFormat: "json"})
			require.NotNil(t, log)
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestLoggerMethods(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug")

	tests := []struct {
		name      string
		logFunc   func()
		wantMsg   string
		wantLevel string
	}{
		{"debug", func() { log.Debug("candidate rejected") }, "candidate rejected", "debug"},
		{"info", func() { log.Info("search started") }, "search started", "info"},
		{"warn", func() { log.Warnf("dropped %d dates", 3) }, "dropped 3 dates", "warn"},
		{"error", func() { log.Errorf("search failed: %s", "exhausted") }, "search failed: exhausted", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc()

			entry := decode(t, &buf)
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.wantMsg, entry["message"])
		})
	}
}

func TestLevelFilter(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithFields(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug")

	log.WithFields(map[string]interface{}{
		"index": ".DJI",
		"n":     3,
	}).WithField("offset", 1).Info("candidate accepted")

	entry := decode(t, &buf)
	assert.Equal(t, ".DJI", entry["index"])
	assert.Equal(t, float64(3), entry["n"])
	assert.Equal(t, float64(1), entry["offset"])
}

func TestWithError(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug")

	log.WithError(errors.New("singular design matrix")).Error("fit failed")

	entry := decode(t, &buf)
	assert.Equal(t, "singular design matrix", entry["error"])
	assert.Equal(t, "fit failed", entry["message"])
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Info("nothing")
	log.WithField("k", "v").Error("still nothing")
}
