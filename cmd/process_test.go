package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/config"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/logging"
)

const goodExport = "Almoxarifado:§001 - ORGAO - UNIDADE - SETOR - Central§§\n" +
	"1§10 - Parafuso§UN§compra§END1§5,00§10,00§5,00§10,00§10,00§20,00§\n"

func setupProcess(t *testing.T) *config.MainConfig {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.InputDir = filepath.Join(root, "input")
	cfg.OutputDir = filepath.Join(root, "output")
	cfg.InputArchiveDir = filepath.Join(root, "input_archive")
	cfg.OutputArchiveDir = filepath.Join(root, "output_archive")
	cfg.OutputNameFormat = "{original}.xlsx"
	cfg.MaxConcurrency = 2
	require.NoError(t, cfg.EnsureDirectories())

	appConfig = cfg
	logger = logging.Discard()
	dryRun = false
	processFile = ""
	t.Cleanup(func() { appConfig = nil })
	return cfg
}

func outputNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRunProcess(t *testing.T) {
	cfg := setupProcess(t)
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.InputDir, name), []byte(goodExport), 0644))
	}

	require.NoError(t, runProcess(context.Background()))

	names := outputNames(t, cfg.OutputDir)
	assert.Contains(t, names, "a.xlsx")
	assert.Contains(t, names, "b.xlsx")
	assert.Contains(t, names, "c.xlsx")

	var summaries int
	for _, n := range names {
		if strings.HasPrefix(n, "processing_summary_") {
			summaries++
		}
	}
	assert.Equal(t, 1, summaries)
}

func TestRunProcessReportsFailures(t *testing.T) {
	cfg := setupProcess(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.InputDir, "ok.txt"), []byte(goodExport), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.InputDir, "bad.txt"), []byte{0xff, 0xfe}, 0644))

	err := runProcess(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 file(s) failed")

	names := outputNames(t, cfg.OutputDir)
	assert.Contains(t, names, "ok.xlsx")

	var errorLog string
	for _, n := range names {
		if strings.HasPrefix(n, "error_log_") {
			errorLog = filepath.Join(cfg.OutputDir, n)
		}
	}
	require.NotEmpty(t, errorLog)
	data, err := os.ReadFile(errorLog)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(data, []byte("bad.txt")))
	assert.True(t, bytes.Contains(data, []byte("decoding")))
}

func TestRunProcessDryRun(t *testing.T) {
	cfg := setupProcess(t)
	dryRun = true
	t.Cleanup(func() { dryRun = false })
	require.NoError(t, os.WriteFile(filepath.Join(cfg.InputDir, "a.txt"), []byte(goodExport), 0644))

	require.NoError(t, runProcess(context.Background()))
	assert.Empty(t, outputNames(t, cfg.OutputDir))
}
