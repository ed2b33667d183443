// =============================================================================
// Estoque Analítico - Converter Module
// =============================================================================
//
// This module contains the conversion pipeline. It turns one inventory export
// into a workbook, either in memory (Convert, used by the HTTP shell and the
// convert command) or from a file in the input directory (Run, used by batch
// processing).
//
// CONVERSION PIPELINE:
//   1. Read the input file
//   2. Parse the text export into records (txtparser)
//   3. Validate the records (validation, findings never block)
//   4. Generate the workbook (workbook)
//   5. Write the workbook, plus the CSV table when enabled
//   6. Write the validation log when there are findings
//   7. Archive the input and the output when enabled
//
// CONCURRENCY:
//   A Converter holds only immutable configuration and compiled patterns.
//   Run may be called from many goroutines at once; each call owns its
//   records and workbook.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/config"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/csvexport"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/logging"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/metrics"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/txtparser"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/validation"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/workbook"
	"github.com/AlefeBarboza/RELATORIO-AX00007/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURES
// =============================================================================

// Output is the in-memory result of converting one export.
type Output struct {
	// Parse holds the records and line diagnostics.
	Parse *txtparser.Result

	// Validation holds the findings on the records.
	Validation *validation.ValidationResult

	// Workbook is the serialized xlsx document.
	Workbook []byte

	// Sheets and Collisions describe the generated workbook.
	Sheets     []workbook.SheetInfo
	Collisions []workbook.Collision
}

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// OutputFile is the path to the generated workbook.
	// This is empty if processing failed or was a dry run.
	OutputFile string

	// CSVFile is the path to the CSV table, when export_csv is enabled.
	CSVFile string

	// ValidationLog is the path to the validation findings, when there were any.
	ValidationLog string

	// ArchivePath is where the input file was moved, when archiving is enabled.
	ArchivePath string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	Lines          int
	Records        int
	Sheets         int
	SkippedLines   int
	FieldErrors    int
	Warnings       int
	Collisions     int
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs the conversion pipeline.
type Converter struct {
	cfg       *config.MainConfig
	parser    *txtparser.Parser
	generator *workbook.Generator
	validator *validation.Validator
	files     *utils.FileManager
	metrics   *metrics.Metrics
	logger    *slog.Logger
	dryRun    bool
}

// Option customizes a Converter.
type Option func(*Converter)

// WithMetrics records conversions in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Converter) { c.metrics = m }
}

// WithDryRun makes Run convert without writing or archiving anything.
func WithDryRun(dryRun bool) Option {
	return func(c *Converter) { c.dryRun = dryRun }
}

// New creates a Converter for cfg.
func New(cfg *config.MainConfig, logger *slog.Logger, opts ...Option) (*Converter, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	parser, err := txtparser.New(cfg.Parser, txtparser.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}

	c := &Converter{
		cfg:       cfg,
		parser:    parser,
		generator: workbook.New(cfg.Workbook, logger),
		validator: validation.NewValidator(),
		files:     utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir),
		logger:    logger.With("component", "converter"),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// =============================================================================
// IN-MEMORY CONVERSION
// =============================================================================

// Convert parses raw and renders it into a workbook.
//
// The only failures are a decoding error (returned as *txtparser.DecodingError
// inside the chain) and a workbook that cannot be built or serialized. No
// partial output is returned with an error.
func (c *Converter) Convert(ctx context.Context, raw []byte) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsed, err := c.parser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}

	findings := c.validator.ValidateAll(parsed.Records)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wb, err := c.generator.Generate(parsed.Records)
	if err != nil {
		return nil, fmt.Errorf("failed to generate workbook: %w", err)
	}
	defer wb.Close()

	data, err := wb.Bytes()
	if err != nil {
		return nil, err
	}

	return &Output{
		Parse:      parsed,
		Validation: findings,
		Workbook:   data,
		Sheets:     wb.Sheets,
		Collisions: wb.Collisions,
	}, nil
}

// =============================================================================
// FILE PROCESSING
// =============================================================================

// Run executes the conversion pipeline for the file at path.
func (c *Converter) Run(ctx context.Context, path string) (result Result) {
	startTime := time.Now()
	result.FilePath = path
	logger := c.logger.With("file", filepath.Base(path))

	defer func() {
		result.Stats.ProcessingTime = time.Since(startTime)
		outcome := metrics.OutcomeSuccess
		if !result.Success {
			outcome = metrics.OutcomeError
		}
		c.metrics.ObserveConversion(metrics.SourceBatch, outcome, result.Stats.ProcessingTime)
	}()

	// =========================================================================
	// STEP 1: READ INPUT
	// =========================================================================
	logger.Info("processing file")

	raw, err := os.ReadFile(path)
	if err != nil {
		result.Error = fmt.Errorf("failed to read input: %w", err)
		return result
	}

	// =========================================================================
	// STEP 2-4: PARSE, VALIDATE, GENERATE
	// =========================================================================
	out, err := c.Convert(ctx, raw)
	if err != nil {
		result.Error = err
		return result
	}

	diag := out.Parse.Diagnostics
	result.Stats.Lines = diag.Lines
	result.Stats.Records = len(out.Parse.Records)
	result.Stats.Sheets = len(out.Sheets)
	result.Stats.SkippedLines = diag.SkippedLines
	result.Stats.FieldErrors = diag.FieldErrors
	result.Stats.Warnings = out.Validation.WarningCount
	result.Stats.Collisions = len(out.Collisions)

	c.metrics.ObserveOutput(result.Stats.Records, result.Stats.Sheets, result.Stats.SkippedLines, result.Stats.Collisions)

	logger.Debug("converted",
		"records", result.Stats.Records,
		"sheets", result.Stats.Sheets,
		"skipped_lines", result.Stats.SkippedLines,
		"warnings", result.Stats.Warnings,
	)

	if len(out.Parse.Records) == 0 {
		logger.Warn("no inventory records found", "lines", diag.Lines, "orphan_rows", diag.OrphanRows)
	}

	if c.dryRun {
		logger.Info("dry run, nothing written", "records", result.Stats.Records, "sheets", result.Stats.Sheets)
		result.Success = true
		return result
	}

	// =========================================================================
	// STEP 5: WRITE OUTPUT FILES
	// =========================================================================
	outputName := utils.GenerateOutputFileName(c.cfg.OutputNameFormat, ".xlsx", map[string]string{
		"original": utils.OriginalName(path),
	})
	outputPath := filepath.Join(c.cfg.OutputDir, outputName)

	if err := writeFile(outputPath, out.Workbook); err != nil {
		result.Error = fmt.Errorf("failed to write output: %w", err)
		return result
	}
	result.OutputFile = outputPath
	logger.Info("wrote workbook", "output", outputPath, "sheets", result.Stats.Sheets, "records", result.Stats.Records)

	if c.cfg.ExportCSV {
		csvPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".csv"
		if err := c.writeCSV(csvPath, out); err != nil {
			result.Error = err
			return result
		}
		result.CSVFile = csvPath
	}

	// =========================================================================
	// STEP 6: VALIDATION LOG
	// =========================================================================
	if len(out.Validation.Errors) > 0 {
		logPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + "_validation.log"
		if err := validation.WriteErrorLog(out.Validation.Errors, path, logPath); err != nil {
			// The workbook is already written; a missing log is not a failure.
			logger.Warn("failed to write validation log", "error", err)
		} else {
			result.ValidationLog = logPath
		}
	}

	// =========================================================================
	// STEP 7: ARCHIVE FILES
	// =========================================================================
	if c.cfg.ArchiveInputs {
		archived, err := c.archiveFiles(path, outputPath)
		result.ArchivePath = archived
		if err != nil {
			logger.Warn("failed to archive files", "error", err)
		}
	}

	result.Success = true
	return result
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (c *Converter) writeCSV(path string, out *Output) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv: %w", err)
	}

	if err := csvexport.Write(file, out.Parse.Records, csvexport.DefaultOptions()); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// archiveFiles moves the input into the input archive and copies the
// workbook into the output archive. It returns the archived input path.
func (c *Converter) archiveFiles(inputPath, outputPath string) (string, error) {
	archived, err := c.files.ArchiveInputFile(inputPath)
	if err != nil {
		return "", err
	}
	if _, err := c.files.ArchiveOutputFile(outputPath); err != nil {
		return archived, err
	}
	return archived, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IsDecodingError reports whether err was caused by undecodable input.
func IsDecodingError(err error) bool {
	var decErr *txtparser.DecodingError
	return errors.As(err, &decErr)
}
