package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/najoast/brigade/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[config.LogLevel]slog.Level{
		config.LogLevelTrace: LevelTrace,
		config.LogLevelDebug: slog.LevelDebug,
		config.LogLevelInfo:  slog.LevelInfo,
		"":                   slog.LevelInfo,
		config.LogLevelWarn:  slog.LevelWarn,
		config.LogLevelError: slog.LevelError,
		config.LogLevelFatal: LevelFatal,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("shout")
	assert.ErrorIs(t, err, config.ErrInvalidLogLevel)
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LogConfig{Level: config.LogLevelTrace, Format: config.LogFormatJSON}, &buf)
	require.NoError(t, err)

	logger.Log(context.Background(), LevelTrace, "tiny detail", "dish", "Soup")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "TRACE", record["level"])
	assert.Equal(t, "tiny detail", record["msg"])
	assert.Equal(t, "Soup", record["dish"])
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LogConfig{Level: config.LogLevelInfo, Format: config.LogFormatText}, &buf)
	require.NoError(t, err)

	logger.Info("order dispatched", "cook", "Anna")
	assert.Contains(t, buf.String(), `msg="order dispatched"`)
	assert.Contains(t, buf.String(), "cook=Anna")
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LogConfig{Level: config.LogLevelDebug, Format: config.LogFormatConsole}, &buf)
	require.NoError(t, err)

	logger.With("role", "chef").WithGroup("order").Warn("order dropped", "dish", "Pizza", "reason", "no cook available")

	line := buf.String()
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Contains(t, line, "WARN")
	assert.Contains(t, line, "order dropped")
	assert.Contains(t, line, "role=chef")
	assert.Contains(t, line, "order.dish=Pizza")
	assert.Contains(t, line, `order.reason="no cook available"`)
	assert.NotContains(t, line, "\x1b[", "no color unless asked")
}

func TestLevelCanChangeLive(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LogConfig{Level: config.LogLevelWarn, Format: config.LogFormatText}, &buf)
	require.NoError(t, err)
	derived := logger.With("role", "cook")

	derived.Info("hidden")
	assert.Empty(t, buf.String())

	require.NoError(t, logger.SetLevel(config.LogLevelDebug))
	assert.Equal(t, slog.LevelDebug, logger.Level())
	derived.Info("shown")
	assert.Contains(t, buf.String(), "shown")

	assert.Error(t, logger.SetLevel("nope"))
	assert.Equal(t, slog.LevelDebug, logger.Level())
}

func TestUnknownFormat(t *testing.T) {
	_, err := NewWithWriter(config.LogConfig{Format: "xml"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, config.ErrInvalidLogFormat)
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kitchen.log")
	logger, err := New(config.LogConfig{Level: config.LogLevelInfo, Format: config.LogFormatText, Output: path})
	require.NoError(t, err)

	logger.Info("doors open")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "doors open")
}
