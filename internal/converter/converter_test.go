package converter

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/config"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/metrics"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/workbook"
)

const sample = `PREFEITURA MUNICIPAL - POSIÇÃO DE ESTOQUE
Almoxarifado:§001 - ORGAO - UNIDADE - SETOR - Central§§
Item§Código - Material§U.M.§Finalidade§Endereço§Qtd§Valor§Qtd§Valor§Qtd§Valor§
1§10 - Parafuso§UN§compra§END1§5,00§10,00§5,00§10,00§10,00§20,00§
2§11 - Porca§UN§compra§END1§0,00§0,00§0,00§0,00§0,00§0,00§

Almoxarifado:§002 - ORGAO - UNIDADE - SETOR - Norte§§
1§12 - Arruela§CX§reposição§END9§1,00§3,00§1,00§3,00§2,00§6,00§
`

func testConfig(t *testing.T) *config.MainConfig {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.InputDir = filepath.Join(root, "input")
	cfg.OutputDir = filepath.Join(root, "output")
	cfg.InputArchiveDir = filepath.Join(root, "input_archive")
	cfg.OutputArchiveDir = filepath.Join(root, "output_archive")
	cfg.OutputNameFormat = "{original}_consolidado.xlsx"
	require.NoError(t, cfg.EnsureDirectories())
	return cfg
}

func writeInput(t *testing.T, cfg *config.MainConfig, name, content string) string {
	t.Helper()
	path := filepath.Join(cfg.InputDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestConvert(t *testing.T) {
	c, err := New(testConfig(t), nil)
	require.NoError(t, err)

	out, err := c.Convert(context.Background(), []byte(sample))
	require.NoError(t, err)

	assert.Len(t, out.Parse.Records, 3)
	assert.Equal(t, 1, out.Parse.Diagnostics.SkippedLines)
	assert.Equal(t, 1, out.Validation.WarningCount, "zero quantity has no unit value")

	require.Len(t, out.Sheets, 2)
	assert.Equal(t, "001 - Central", out.Sheets[0].Name)
	assert.Equal(t, 2, out.Sheets[0].Rows)

	summary, err := workbook.Inspect(bytes.NewReader(out.Workbook))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalRows())
}

func TestConvertDecodingError(t *testing.T) {
	c, err := New(testConfig(t), nil)
	require.NoError(t, err)

	out, err := c.Convert(context.Background(), []byte{0xff, 0xfe, 0x00})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, IsDecodingError(err))
}

func TestConvertCancelled(t *testing.T) {
	c, err := New(testConfig(t), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Convert(ctx, []byte(sample))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.ExportCSV = true
	m := metrics.New()

	c, err := New(cfg, nil, WithMetrics(m))
	require.NoError(t, err)

	input := writeInput(t, cfg, "posicao.txt", sample)
	result := c.Run(context.Background(), input)

	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "posicao_consolidado.xlsx"), result.OutputFile)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "posicao_consolidado.csv"), result.CSVFile)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "posicao_consolidado_validation.log"), result.ValidationLog)
	assert.Empty(t, result.ArchivePath)

	assert.Equal(t, 3, result.Stats.Records)
	assert.Equal(t, 2, result.Stats.Sheets)
	assert.Equal(t, 1, result.Stats.SkippedLines)
	assert.Equal(t, 1, result.Stats.Warnings)
	assert.Positive(t, result.Stats.ProcessingTime)

	for _, path := range []string{result.OutputFile, result.CSVFile, result.ValidationLog, input} {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}

	csvData, err := os.ReadFile(result.CSVFile)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(csvData), "\r\n"))

	count, err := testutil.GatherAndCount(m.Registry(), "estoque_conversions_total", "estoque_records_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRunArchives(t *testing.T) {
	cfg := testConfig(t)
	cfg.ArchiveInputs = true

	c, err := New(cfg, nil)
	require.NoError(t, err)

	input := writeInput(t, cfg, "posicao.txt", sample)
	result := c.Run(context.Background(), input)
	require.NoError(t, result.Error)

	assert.Equal(t, filepath.Join(cfg.InputArchiveDir, "posicao.txt"), result.ArchivePath)
	_, err = os.Stat(input)
	assert.True(t, os.IsNotExist(err), "input moved to the archive")
	_, err = os.Stat(filepath.Join(cfg.OutputArchiveDir, "posicao_consolidado.xlsx"))
	assert.NoError(t, err)
	_, err = os.Stat(result.OutputFile)
	assert.NoError(t, err, "workbook stays in the output directory")
}

func TestRunDryRun(t *testing.T) {
	cfg := testConfig(t)
	c, err := New(cfg, nil, WithDryRun(true))
	require.NoError(t, err)

	result := c.Run(context.Background(), writeInput(t, cfg, "posicao.txt", sample))
	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Empty(t, result.OutputFile)
	assert.Equal(t, 3, result.Stats.Records)

	entries, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunFailures(t *testing.T) {
	cfg := testConfig(t)
	c, err := New(cfg, nil)
	require.NoError(t, err)

	t.Run("missing file", func(t *testing.T) {
		result := c.Run(context.Background(), filepath.Join(cfg.InputDir, "nope.txt"))
		assert.False(t, result.Success)
		assert.ErrorContains(t, result.Error, "failed to read input")
	})

	t.Run("invalid utf-8 stays in place", func(t *testing.T) {
		input := writeInput(t, cfg, "latin1.txt", "Almoxarifado:\xa7001")
		result := c.Run(context.Background(), input)

		assert.False(t, result.Success)
		assert.True(t, IsDecodingError(result.Error))
		assert.Empty(t, result.OutputFile)
		_, err := os.Stat(input)
		assert.NoError(t, err)
	})
}

func TestRunEmptyInputStillWritesWorkbook(t *testing.T) {
	cfg := testConfig(t)
	c, err := New(cfg, nil)
	require.NoError(t, err)

	result := c.Run(context.Background(), writeInput(t, cfg, "vazio.txt", "nada aqui\n"))
	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Zero(t, result.Stats.Records)
	assert.Zero(t, result.Stats.Sheets)
	assert.FileExists(t, result.OutputFile)
}
