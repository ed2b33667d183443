package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestNewJSONConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := NewWithWriter(config.LoggingSettings{Level: "info", Format: "json", Output: "console"}, &buf)
	require.NoError(t, err)
	defer closeFn()

	logger.Debug("hidden")
	logger.Info("parsed", "records", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "parsed", entry["msg"])
	assert.Equal(t, float64(3), entry["records"])
}

func TestNewAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := NewWithWriter(config.LoggingSettings{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	logger.With("component", "server").InfoContext(ctx, "upload")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "server", entry["component"])
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "estoque.log")
	logger, closeFn, err := New(config.LoggingSettings{Level: "info", Format: "text", Output: "file", FilePath: path})
	require.NoError(t, err)

	logger.Info("written to file")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
