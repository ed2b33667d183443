package workbook

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/types"
)

// SheetSummary describes one sheet of an existing workbook.
type SheetSummary struct {
	Name     string   `json:"name"`
	Header   []string `json:"header"`
	Rows     int      `json:"rows"`
	Formulas int      `json:"formulas"`
}

// Summary describes an existing workbook.
type Summary struct {
	Sheets []SheetSummary `json:"sheets"`
}

// TotalRows returns the number of data rows across all sheets.
func (s *Summary) TotalRows() int {
	total := 0
	for _, sh := range s.Sheets {
		total += sh.Rows
	}
	return total
}

// Inspect reads a workbook and counts the data rows of every sheet. The
// first row of a sheet is taken as its header. Formulas are counted in the
// adjustment column.
func Inspect(r io.Reader) (*Summary, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	summary := &Summary{Sheets: []SheetSummary{}}

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}

		sheet := SheetSummary{Name: name}
		if len(rows) > 0 {
			sheet.Header = rows[0]
			sheet.Rows = len(rows) - 1
		}

		for row := 2; row <= len(rows); row++ {
			formula, err := f.GetCellFormula(name, cellName(types.ColAdjustment, row))
			if err != nil {
				return nil, fmt.Errorf("failed to read formula in sheet %q: %w", name, err)
			}
			if formula != "" {
				sheet.Formulas++
			}
		}

		summary.Sheets = append(summary.Sheets, sheet)
	}

	return summary, nil
}
