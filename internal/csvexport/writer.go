// =============================================================================
// Estoque Analítico - Normalized Table Export
// =============================================================================
//
// This module writes the normalized inventory table as delimited text. It is
// the flat counterpart of the workbook: one header row and one row per record,
// all groups in a single table, columns in types.Columns order.
//
// DIFFERENCES FROM THE WORKBOOK:
//   - Records keep parser order (no grouping, no sorting)
//   - The adjustment column is empty; there is no formula to carry
//   - Missing numbers are written as empty fields
//
// =============================================================================

package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/locale"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/types"
)

// Options controls the CSV layout.
type Options struct {
	// Delimiter separates fields. Default: ';'
	Delimiter rune

	// Locale formats decimal numbers. Default: locale.PtBR
	Locale locale.Locale

	// UseCRLF ends rows with \r\n.
	UseCRLF bool
}

// DefaultOptions returns the layout spreadsheet tools in pt-BR expect.
func DefaultOptions() Options {
	return Options{Delimiter: ';', Locale: locale.PtBR, UseCRLF: true}
}

// Write writes the header and one row per record to w.
func Write(w io.Writer, records []types.InventoryRecord, opts Options) error {
	if opts.Delimiter == 0 {
		opts.Delimiter = ';'
	}
	if opts.Locale == (locale.Locale{}) {
		opts.Locale = locale.PtBR
	}
	if opts.Locale.Decimal != "" && string(opts.Delimiter) == opts.Locale.Decimal {
		return fmt.Errorf("delimiter %q clashes with the decimal separator", opts.Delimiter)
	}

	writer := csv.NewWriter(w)
	writer.Comma = opts.Delimiter
	writer.UseCRLF = opts.UseCRLF

	if err := writer.Write(types.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, rec := range records {
		if err := writer.Write(Row(rec, opts.Locale)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i+1, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// Row renders one record as table cells.
func Row(rec types.InventoryRecord, l locale.Locale) []string {
	return []string{
		rec.Group,
		strconv.Itoa(rec.ItemSeq),
		rec.Code,
		rec.Material,
		rec.Unit,
		formatNull(rec.QtyTotal, l),
		formatNull(rec.ValueTotal, l),
		formatNull(rec.UnitValue, l),
		"",
		l.Format(rec.SurveyQty),
	}
}

func formatNull(d decimal.NullDecimal, l locale.Locale) string {
	if !d.Valid {
		return ""
	}
	return l.Format(d.Decimal)
}
