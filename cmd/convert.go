package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/converter"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/csvexport"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/locale"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/types"
	"github.com/AlefeBarboza/RELATORIO-AX00007/pkg/utils"
)

var (
	convertFile    string
	convertOut     string
	convertCSV     bool
	convertPreview bool
)

// convertCmd converts a single export, wherever it lives.
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a single inventory export",
	Long: `Convert one inventory export into a workbook without touching the input
and archive directories.

With --preview nothing is written: the parsed records are printed as a table
followed by the line diagnostics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&convertFile, "file", "f", "", "Inventory export to convert (required)")
	convertCmd.Flags().StringVarP(&convertOut, "out", "o", "", "Workbook path (default: output_name_format in the output directory)")
	convertCmd.Flags().BoolVar(&convertCSV, "csv", false, "Also write the records as a CSV table next to the workbook")
	convertCmd.Flags().BoolVar(&convertPreview, "preview", false, "Print the parsed records instead of writing a workbook")
	convertCmd.MarkFlagRequired("file")
}

func runConvert(cmd *cobra.Command) error {
	raw, err := os.ReadFile(convertFile)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	conv, err := converter.New(appConfig, logger)
	if err != nil {
		return err
	}

	out, err := conv.Convert(cmd.Context(), raw)
	if err != nil {
		return err
	}

	if convertPreview {
		return printPreview(cmd.OutOrStdout(), out)
	}

	outPath := convertOut
	if outPath == "" {
		name := utils.GenerateOutputFileName(appConfig.OutputNameFormat, ".xlsx", map[string]string{
			"original": utils.OriginalName(convertFile),
		})
		outPath = filepath.Join(appConfig.OutputDir, name)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(outPath, out.Workbook, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s -> %s (%d records, %d sheets)\n",
		filepath.Base(convertFile), outPath, len(out.Parse.Records), len(out.Sheets))

	if convertCSV {
		csvPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".csv"
		if err := writeCSVFile(csvPath, out.Parse.Records); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", csvPath)
	}

	for _, c := range out.Collisions {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: sheet %q of %s collides with %s\n", c.Title, c.Group, c.Previous)
	}
	return nil
}

func writeCSVFile(path string, records []types.InventoryRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	err = csvexport.Write(file, records, csvexport.DefaultOptions())
	return errors.Join(err, file.Close())
}

// printPreview renders the records as an aligned table.
func printPreview(w io.Writer, out *converter.Output) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(types.Columns, "\t"))
	for _, rec := range out.Parse.Records {
		fmt.Fprintln(tw, strings.Join(csvexport.Row(rec, locale.PtBR), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	d := out.Parse.Diagnostics
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Lines:          %d\n", d.Lines)
	fmt.Fprintf(w, "Records:        %d\n", len(out.Parse.Records))
	fmt.Fprintf(w, "Groups:         %d\n", len(d.Groups))
	fmt.Fprintf(w, "Skipped lines:  %d\n", d.SkippedLines)
	fmt.Fprintf(w, "Orphan rows:    %d\n", d.OrphanRows)
	fmt.Fprintf(w, "Warnings:       %d\n", out.Validation.WarningCount)
	for _, issue := range d.Issues {
		fmt.Fprintf(w, "  line %d: [%s] %s\n", issue.Line, issue.Kind, issue.Message)
	}
	return nil
}
