// =============================================================================
// Estoque Analítico - Process Command
// =============================================================================
//
// This file defines the 'process' command, the batch mode of the converter.
//
// COMMAND USAGE:
//   estoque process [flags]
//
// FLAGS:
//   --dry-run : Parse and render without writing or archiving anything
//   --file    : Process only this file instead of scanning the input directory
//
// PROCESSING PIPELINE:
//   1. Discover exports in the input directory (input_pattern)
//   2. Convert them concurrently, at most max_concurrency at a time
//   3. Print one line per file and a summary
//   4. Write the summary report, plus the error log when a file failed
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/converter"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/metrics"
	"github.com/AlefeBarboza/RELATORIO-AX00007/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun      bool
	processFile string
)

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Convert every inventory export in the input directory",
	Long: `The process command scans the input directory for inventory exports and
converts each of them into an Excel workbook in the output directory.

Files are converted concurrently. A failure in one file does not stop the
others unless continue_on_error is false.

On success:
  - The workbook (and the CSV table, when export_csv is set) is written
  - Validation findings go to <output>_validation.log
  - The export is moved to the input archive when archive_inputs is set

On error:
  - The error is added to error_log_<timestamp>.txt in the output directory
  - The export stays in the input directory`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and render without writing output files")
	processCmd.Flags().StringVar(&processFile, "file", "", "Process only this file")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(ctx context.Context) error {
	summary := utils.ProcessingSummary{StartTime: time.Now()}
	cfg := appConfig

	fmt.Println("=== Estoque Analítico ===")

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	// =========================================================================
	// STEP 1: DISCOVER INPUT FILES
	// =========================================================================
	files := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)

	var inputFiles []string
	if processFile != "" {
		inputFiles = []string{processFile}
	} else {
		found, err := files.DiscoverInputFiles(cfg.InputPattern)
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
		inputFiles = found
	}

	if len(inputFiles) == 0 {
		fmt.Printf("No files matching %q found in %s\n", cfg.InputPattern, cfg.InputDir)
		return nil
	}
	fmt.Printf("Found %d file(s) to process\n", len(inputFiles))
	summary.TotalFiles = len(inputFiles)

	// =========================================================================
	// STEP 2: PROCESS FILES CONCURRENTLY
	// =========================================================================
	conv, err := converter.New(cfg, logger, converter.WithDryRun(dryRun), converter.WithMetrics(metrics.New()))
	if err != nil {
		return err
	}

	results := make([]converter.Result, len(inputFiles))
	var printMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrency)

	for i, path := range inputFiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = converter.Result{FilePath: path, Error: err}
				return nil
			}

			result := conv.Run(gctx, path)
			results[i] = result

			printMu.Lock()
			printResult(result)
			printMu.Unlock()

			if !result.Success && !cfg.ShouldContinueOnError() {
				return fmt.Errorf("%s: %w", filepath.Base(path), result.Error)
			}
			return nil
		})
	}
	stopErr := g.Wait()

	// =========================================================================
	// STEP 3: SUMMARY
	// =========================================================================
	var errorEntries []utils.ErrorLogEntry
	for _, result := range results {
		if result.FilePath == "" {
			continue
		}
		if result.Success {
			summary.SuccessfulFiles++
			summary.TotalRecords += result.Stats.Records
			summary.TotalSheets += result.Stats.Sheets
			summary.SkippedLines += result.Stats.SkippedLines
			summary.Warnings += result.Stats.Warnings
			summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
				InputFile:   result.FilePath,
				OutputFile:  result.OutputFile,
				CSVFile:     result.CSVFile,
				ArchivePath: result.ArchivePath,
				Records:     result.Stats.Records,
				Sheets:      result.Stats.Sheets,
				ProcessTime: result.Stats.ProcessingTime,
			})
			continue
		}

		summary.FailedFiles++
		message := "not processed"
		if result.Error != nil {
			message = result.Error.Error()
		}
		summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
			InputFile:    result.FilePath,
			ErrorMessage: message,
		})
		errorEntries = append(errorEntries, utils.ErrorLogEntry{
			Timestamp: time.Now(),
			FileName:  filepath.Base(result.FilePath),
			ErrorType: errorType(result.Error),
			Message:   message,
		})
	}
	summary.EndTime = time.Now()

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total files:     %d\n", summary.TotalFiles)
	fmt.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Printf("Errors:          %d\n", summary.FailedFiles)
	fmt.Printf("Records:         %d\n", summary.TotalRecords)
	fmt.Printf("Sheets:          %d\n", summary.TotalSheets)
	fmt.Printf("Time elapsed:    %s\n", summary.EndTime.Sub(summary.StartTime).Round(time.Millisecond))

	if !dryRun {
		if path, err := utils.WriteSummaryLog(summary, cfg.OutputDir); err != nil {
			logger.Warn("failed to write summary log", "error", err)
		} else {
			logger.Info("wrote summary log", "path", path)
		}

		if len(errorEntries) > 0 {
			path, err := utils.WriteErrorLog(errorEntries, cfg.OutputDir)
			if err != nil {
				logger.Warn("failed to write error log", "error", err)
			} else {
				fmt.Printf("\nErrors have been logged to %s\n", path)
			}
		}
	}

	if stopErr != nil {
		return fmt.Errorf("processing stopped: %w", stopErr)
	}
	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func printResult(result converter.Result) {
	name := filepath.Base(result.FilePath)
	switch {
	case !result.Success:
		fmt.Printf("  ✗ %s: %v\n", name, result.Error)
	case result.OutputFile == "":
		fmt.Printf("  ✓ %s (dry run: %d records, %d sheets)\n", name, result.Stats.Records, result.Stats.Sheets)
	default:
		fmt.Printf("  ✓ %s -> %s (%d records, %d sheets)\n", name, result.OutputFile, result.Stats.Records, result.Stats.Sheets)
	}
}

func errorType(err error) string {
	switch {
	case err == nil:
		return "unknown"
	case converter.IsDecodingError(err):
		return "decoding"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "processing"
	}
}
