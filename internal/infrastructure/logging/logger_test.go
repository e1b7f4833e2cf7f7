package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/config"
)

func TestConsoleHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggingConfig{Level: "info", Format: "console"}).
		With(ComponentKey, "matcher")

	logger.Info("invoice matched", "invoice_id", "inv-1", "confidence", 0.95)

	line := buf.String()
	assert.Regexp(t, regexp.MustCompile(`^\[INFO\] \[matcher\] \[\d{2}:\d{2}:\d{2}\] invoice matched invoice_id=inv-1 confidence=0.95\n$`), line)
}

func TestConsoleHandler_NoColorsForBuffers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, nil))

	logger.Error("boom")

	assert.NotContains(t, buf.String(), "\033[")
	assert.Contains(t, buf.String(), "[ERROR]")
}

func TestConsoleHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggingConfig{Level: "warn"})

	logger.Info("hidden")
	logger.Debug("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN]")
}

func TestConsoleHandler_GroupsAndQuoting(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.WithGroup("rate").Debug("fetched", "pair", "USD/EUR", slog.Group("cache", "hit", false))
	logger.Info("reason", "text", "Matched 2 of 2 line items")

	out := buf.String()
	assert.Contains(t, out, "rate.pair=USD/EUR rate.cache.hit=false")
	assert.Contains(t, out, `text="Matched 2 of 2 line items"`)
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggingConfig{Level: "debug", Format: "json"})

	logger.Debug("cache cleared", "entries", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "cache cleared", record["msg"])
	assert.Equal(t, float64(3), record["entries"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(NewLoggerTo(&buf, config.LoggingConfig{Level: "info", Format: "json"}), "matcher")

	logger.Info("candidate scored")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "matcher", record[ComponentKey])
}
