package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "*.txt", cfg.InputPattern)
	assert.Equal(t, "{original}_{timestamp}.xlsx", cfg.OutputNameFormat)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.True(t, cfg.ShouldContinueOnError())

	assert.Equal(t, "utf-8", cfg.Parser.Encoding)
	assert.Equal(t, "§", cfg.Parser.Delimiter)
	assert.Equal(t, "Almoxarifado:", cfg.Parser.HeaderMarker)

	assert.Equal(t, AdjustSurveyMinusTotal, cfg.Workbook.AdjustmentDirection)
	assert.Equal(t, CollisionOverwrite, cfg.Workbook.SheetNameCollision)
	assert.Equal(t, "006400", cfg.Workbook.HeaderFill)
	assert.Equal(t, "DAF2D0", cfg.Workbook.BandFill)
	assert.Equal(t, "D3D3D3", cfg.Workbook.ManualFill)
	assert.Equal(t, 2, cfg.Workbook.ColumnPadding)
	assert.Equal(t, 50, cfg.Workbook.MaxColumnWidth)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadMainConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
input_dir: /data/in
output_dir: /data/out
max_concurrency: 2
continue_on_error: false
parser:
  encoding: windows-1252
workbook:
  adjustment_direction: total_minus_survey
  sheet_name_collision: suffix
logging:
  level: debug
  format: json
`)

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/in", cfg.InputDir)
	assert.Equal(t, "/data/out", cfg.OutputDir)
	assert.Equal(t, 2, cfg.MaxConcurrency)
	assert.False(t, cfg.ShouldContinueOnError())
	assert.Equal(t, "windows-1252", cfg.Parser.Encoding)
	assert.Equal(t, "§", cfg.Parser.Delimiter, "unset fields keep their default")
	assert.Equal(t, AdjustTotalMinusSurvey, cfg.Workbook.AdjustmentDirection)
	assert.Equal(t, CollisionSuffix, cfg.Workbook.SheetNameCollision)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadMainConfigEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "output_dir: /from/file\n")

	t.Setenv("ESTOQUE_OUTPUT_DIR", "/from/env")
	t.Setenv("ESTOQUE_WORKBOOK_MAX_COLUMN_WIDTH", "80")
	t.Setenv("ESTOQUE_SERVER_ADDR", ":9090")

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/from/env", cfg.OutputDir)
	assert.Equal(t, 80, cfg.Workbook.MaxColumnWidth)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoadMainConfigMissingFile(t *testing.T) {
	_, err := LoadMainConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadMainConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown encoding", body: "parser:\n  encoding: ebcdic\n"},
		{name: "multi character delimiter", body: "parser:\n  delimiter: '||'\n"},
		{name: "unknown direction", body: "workbook:\n  adjustment_direction: sideways\n"},
		{name: "unknown collision policy", body: "workbook:\n  sheet_name_collision: ignore\n"},
		{name: "bad colour", body: "workbook:\n  header_fill: green\n"},
		{name: "bad log level", body: "logging:\n  level: loud\n"},
		{name: "negative concurrency", body: "max_concurrency: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMainConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestLoadMainConfigMalformedYAML(t *testing.T) {
	_, err := LoadMainConfig(writeConfig(t, "input_dir: [unterminated\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.InputDir = filepath.Join(root, "in")
	cfg.OutputDir = filepath.Join(root, "out")
	cfg.InputArchiveDir = filepath.Join(root, "archive", "in")
	cfg.OutputArchiveDir = filepath.Join(root, "archive", "out")
	cfg.ArchiveInputs = true

	require.NoError(t, cfg.EnsureDirectories())

	for _, dir := range []string{cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
