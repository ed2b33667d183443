package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/workbook"
)

// inspectCmd summarizes generated workbooks.
var inspectCmd = &cobra.Command{
	Use:   "inspect <workbook.xlsx>...",
	Short: "Summarize the sheets of generated workbooks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		for _, path := range args {
			summary, err := inspectFile(path)
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "%s: %d sheet(s), %d row(s)\n", path, len(summary.Sheets), summary.TotalRows())
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "  Sheet\tRows\tFormulas")
			for _, sh := range summary.Sheets {
				fmt.Fprintf(tw, "  %s\t%d\t%d\n", sh.Name, sh.Rows, sh.Formulas)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func inspectFile(path string) (*workbook.Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	summary, err := workbook.Inspect(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return summary, nil
}
