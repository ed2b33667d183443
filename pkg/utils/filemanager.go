// =============================================================================
// Estoque Analítico - File Manager Utility
// =============================================================================
//
// This module provides the file handling of batch processing:
//   - Discovery of inventory exports in the input directory
//   - Output workbook naming
//   - Archival of processed inputs and generated workbooks
//   - Error and summary logs for a processing run
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to input_archive after successful processing
//   - Workbooks are copied to output_archive; the original stays in output
//   - Failed files remain in the input directory for the next run
//   - An existing archive entry is never overwritten; a numeric suffix is added
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for batch processing.
type FileManager struct {
	InputDir         string
	OutputDir        string
	InputArchiveDir  string
	OutputArchiveDir string

	// UseDateSubdirs files archives under YYYY/MM/DD subdirectories.
	UseDateSubdirs bool

	// now is replaced in tests.
	now func() time.Time
}

// NewFileManager creates a FileManager for the given directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir, outputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		InputArchiveDir:  inputArchiveDir,
		OutputArchiveDir: outputArchiveDir,
		now:              time.Now,
	}
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles returns the regular files in InputDir matching pattern,
// sorted by name. An empty pattern means "*.txt".
func (fm *FileManager) DiscoverInputFiles(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*.txt"
	}

	matches, err := filepath.Glob(filepath.Join(fm.InputDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	files := make([]string, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)

	return files, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves filePath into InputArchiveDir and returns its new path.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	target, err := fm.archiveTarget(fm.InputArchiveDir, filePath)
	if err != nil {
		return "", err
	}

	if err := os.Rename(filePath, target); err != nil {
		// Rename fails across devices; fall back to copy and remove.
		if err := copyFile(filePath, target); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return target, nil
}

// ArchiveOutputFile copies filePath into OutputArchiveDir and returns the copy's path.
func (fm *FileManager) ArchiveOutputFile(filePath string) (string, error) {
	target, err := fm.archiveTarget(fm.OutputArchiveDir, filePath)
	if err != nil {
		return "", err
	}

	if err := copyFile(filePath, target); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}

	return target, nil
}

// archiveTarget returns a free path for filePath inside archiveDir and
// creates its directory.
func (fm *FileManager) archiveTarget(archiveDir, filePath string) (string, error) {
	dir := archiveDir
	if fm.UseDateSubdirs {
		now := fm.clock()
		dir = filepath.Join(archiveDir, now.Format("2006"), now.Format("01"), now.Format("02"))
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := filepath.Base(filePath)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	target := filepath.Join(dir, name)
	for n := 1; FileExists(target); n++ {
		target = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
	}

	return target, nil
}

func (fm *FileManager) clock() time.Time {
	if fm.now == nil {
		return time.Now()
	}
	return fm.now()
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName expands the placeholders of format.
//
// Placeholders:
//
//	{uuid}      - A random UUID
//	{timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//	{date}      - Current date (YYYYMMDD)
//	{time}      - Current time (HHMMSS)
//	{original}  - Input file name without extension
//
// Any other key of params is available as {key}. The result always ends
// with ext.
//
// EXAMPLE:
//
//	format: "{original}_{timestamp}.xlsx"
//	params: {"original": "posicao_estoque"}
//	output: "posicao_estoque_20250115_143022.xlsx"
func GenerateOutputFileName(format, ext string, params map[string]string) string {
	return generateOutputFileName(time.Now(), format, ext, params)
}

func generateOutputFileName(now time.Time, format, ext string, params map[string]string) string {
	pairs := []string{
		"{uuid}", uuid.New().String(),
		"{timestamp}", now.Format("20060102_150405"),
		"{date}", now.Format("20060102"),
		"{time}", now.Format("150405"),
	}

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		pairs = append(pairs, "{"+key+"}", safeFileName(params[key]))
	}

	name := strings.NewReplacer(pairs...).Replace(format)
	if !strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
		name += ext
	}

	return name
}

// OriginalName returns the base name of path without its extension.
func OriginalName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var unsafeFileChars = strings.NewReplacer("/", "_", `\`, "_", ":", "_", "*", "_", "?", "_", `"`, "_", "<", "_", ">", "_", "|", "_")

func safeFileName(s string) string {
	return unsafeFileChars.Replace(s)
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry is one line of a run's error log.
type ErrorLogEntry struct {
	Timestamp time.Time
	FileName  string
	ErrorType string
	Message   string
	Line      int
	Group     string
	Field     string
}

// WriteErrorLog writes entries to error_log_<timestamp>.txt in outputDir.
// Nothing is written when entries is empty.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	logPath := filepath.Join(outputDir, fmt.Sprintf("error_log_%s.txt", time.Now().Format("20060102_150405")))

	err := writeReport(logPath, func(w *bufio.Writer) {
		fmt.Fprintf(w, "Estoque Analítico - Error Log\n")
		fmt.Fprintf(w, "Generated: %s\n", time.Now().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "Total Entries: %d\n", len(entries))
		fmt.Fprintf(w, "%s\n\n", rule)

		for i, entry := range entries {
			fmt.Fprintf(w, "Entry #%d\n", i+1)
			fmt.Fprintf(w, "  Timestamp:  %s\n", entry.Timestamp.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(w, "  File:       %s\n", entry.FileName)
			fmt.Fprintf(w, "  Type:       %s\n", entry.ErrorType)
			fmt.Fprintf(w, "  Message:    %s\n", entry.Message)
			if entry.Line > 0 {
				fmt.Fprintf(w, "  Line:       %d\n", entry.Line)
			}
			if entry.Group != "" {
				fmt.Fprintf(w, "  Group:      %s\n", entry.Group)
			}
			if entry.Field != "" {
				fmt.Fprintf(w, "  Field:      %s\n", entry.Field)
			}
			fmt.Fprintln(w)
		}

		fmt.Fprintf(w, "%s\nEnd of Error Log\n", rule)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write error log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary describes one batch run.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	TotalRecords    int
	TotalSheets     int
	SkippedLines    int
	Warnings        int
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo describes a successfully converted file.
type ProcessedFileInfo struct {
	InputFile   string
	OutputFile  string
	CSVFile     string
	ArchivePath string
	Records     int
	Sheets      int
	ProcessTime time.Duration
}

// FailedFileInfo describes a file that could not be converted.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// WriteSummaryLog writes summary to processing_summary_<timestamp>.txt in outputDir.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("processing_summary_%s.txt", time.Now().Format("20060102_150405")))

	err := writeReport(summaryPath, func(w *bufio.Writer) {
		fmt.Fprintf(w, "Estoque Analítico - Processing Summary\n%s\n\n", rule)

		fmt.Fprintf(w, "Run Information:\n")
		fmt.Fprintf(w, "  Start Time:     %s\n", summary.StartTime.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "  End Time:       %s\n", summary.EndTime.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "  Duration:       %s\n\n", summary.EndTime.Sub(summary.StartTime))

		fmt.Fprintf(w, "Statistics:\n")
		fmt.Fprintf(w, "  Total Files:    %d\n", summary.TotalFiles)
		fmt.Fprintf(w, "  Successful:     %d\n", summary.SuccessfulFiles)
		fmt.Fprintf(w, "  Failed:         %d\n", summary.FailedFiles)
		fmt.Fprintf(w, "  Records:        %d\n", summary.TotalRecords)
		fmt.Fprintf(w, "  Sheets:         %d\n", summary.TotalSheets)
		fmt.Fprintf(w, "  Skipped Lines:  %d\n", summary.SkippedLines)
		fmt.Fprintf(w, "  Warnings:       %d\n\n", summary.Warnings)

		if len(summary.ProcessedFiles) > 0 {
			fmt.Fprintf(w, "Successful Files:\n%s\n", thinRule)
			for _, pf := range summary.ProcessedFiles {
				fmt.Fprintf(w, "  Input:        %s\n", pf.InputFile)
				fmt.Fprintf(w, "  Output:       %s\n", pf.OutputFile)
				if pf.CSVFile != "" {
					fmt.Fprintf(w, "  CSV:          %s\n", pf.CSVFile)
				}
				if pf.ArchivePath != "" {
					fmt.Fprintf(w, "  Archived To:  %s\n", pf.ArchivePath)
				}
				fmt.Fprintf(w, "  Records:      %d\n", pf.Records)
				fmt.Fprintf(w, "  Sheets:       %d\n", pf.Sheets)
				fmt.Fprintf(w, "  Process Time: %s\n\n", pf.ProcessTime)
			}
		}

		if len(summary.FailedFilesList) > 0 {
			fmt.Fprintf(w, "Failed Files:\n%s\n", thinRule)
			for _, ff := range summary.FailedFilesList {
				fmt.Fprintf(w, "  File:  %s\n", ff.InputFile)
				fmt.Fprintf(w, "  Error: %s\n\n", ff.ErrorMessage)
			}
		}

		fmt.Fprintf(w, "%s\nEnd of Summary\n", rule)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

var (
	rule     = strings.Repeat("=", 80)
	thinRule = strings.Repeat("-", 80)
)

// writeReport creates path and fills it through a buffered writer.
func writeReport(path string, fill func(w *bufio.Writer)) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	fill(w)
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Sync()
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}

	return out.Sync()
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
