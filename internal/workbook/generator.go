// =============================================================================
// Estoque Analítico - Workbook Generator
// =============================================================================
//
// This module renders parsed inventory records into an xlsx workbook with one
// sheet per warehouse group.
//
// SHEET LAYOUT:
//   Row 1      : header (types.Columns), dark fill, bold light font
//   Row 2..n+1 : one record per row, in input order
//
//   Columns A-H : source data, banded by row parity
//   Column I    : adjustment formula (=J{row}-F{row} by default)
//   Column J    : survey quantity, 0 until filled in by hand
//   Columns I-J : grey fill, marking the hand-maintained part
//
// SHEET ORDER:
//   Groups are emitted in lexicographic order of their label, not in the
//   order the parser saw them.
//
// =============================================================================

package workbook

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/config"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/logging"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/types"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// SheetInfo describes one generated sheet.
type SheetInfo struct {
	Name  string `json:"name"`
	Group string `json:"group"`
	Rows  int    `json:"rows"`
}

// Collision records two groups that mapped to the same sheet title.
type Collision struct {
	// Title is the sanitized title both groups produced.
	Title string `json:"title"`

	// Previous is the group that held the title first.
	Previous string `json:"previous"`

	// Group is the later group.
	Group string `json:"group"`

	// AssignedTitle is the title given to Group under the suffix policy.
	// Empty when Group replaced Previous.
	AssignedTitle string `json:"assigned_title,omitempty"`
}

// Workbook is a generated spreadsheet and what went into it.
type Workbook struct {
	File       *excelize.File
	Sheets     []SheetInfo
	Collisions []Collision
}

// Bytes serializes the workbook.
func (w *Workbook) Bytes() ([]byte, error) {
	buf, err := w.File.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteTo serializes the workbook to wr.
func (w *Workbook) WriteTo(wr io.Writer) (int64, error) {
	n, err := w.File.WriteTo(wr)
	if err != nil {
		return n, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return n, nil
}

// Close releases the workbook's resources.
func (w *Workbook) Close() error {
	return w.File.Close()
}

// =============================================================================
// GENERATOR
// =============================================================================

// Generator renders records into workbooks. It keeps no state between calls.
type Generator struct {
	settings config.WorkbookSettings
	logger   *slog.Logger
}

// New creates a Generator. A nil logger discards output.
func New(settings config.WorkbookSettings, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Generator{
		settings: settings,
		logger:   logger.With("component", "workbook"),
	}
}

// Generate renders records with the default workbook settings.
func Generate(records []types.InventoryRecord) (*Workbook, error) {
	return New(config.DefaultWorkbookSettings(), nil).Generate(records)
}

// sheetPlan is one sheet to be written.
type sheetPlan struct {
	title    string
	group    string
	records  []types.InventoryRecord
	replaced bool
}

// Generate builds the workbook for records.
//
// An empty record set is not an error. The xlsx format needs at least one
// sheet, so the result then holds a single blank default sheet and no
// SheetInfo entries.
func (g *Generator) Generate(records []types.InventoryRecord) (*Workbook, error) {
	// =========================================================================
	// STEP 1: Group records and assign sheet titles
	// =========================================================================
	plans, collisions := g.plan(records)

	// =========================================================================
	// STEP 2: Create the file and shared styles
	// =========================================================================
	f := excelize.NewFile()
	st, err := g.newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	wb := &Workbook{File: f, Sheets: []SheetInfo{}, Collisions: collisions}

	// =========================================================================
	// STEP 3: Write one sheet per group
	// =========================================================================
	for _, p := range plans {
		if p.replaced {
			continue
		}

		// The first sheet takes over the default one so no blank sheet is left.
		if len(wb.Sheets) == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), p.title); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to name sheet %q: %w", p.title, err)
			}
		} else if _, err := f.NewSheet(p.title); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %q: %w", p.title, err)
		}

		if err := g.writeSheet(f, st, p); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write sheet %q: %w", p.title, err)
		}

		wb.Sheets = append(wb.Sheets, SheetInfo{Name: p.title, Group: p.group, Rows: len(p.records)})
	}

	if len(wb.Sheets) > 0 {
		f.SetActiveSheet(0)
	}

	g.logger.Debug("workbook generated", "sheets", len(wb.Sheets), "records", len(records), "collisions", len(collisions))

	return wb, nil
}

// plan partitions records by group and resolves sheet titles.
func (g *Generator) plan(records []types.InventoryRecord) ([]sheetPlan, []Collision) {
	byGroup := make(map[string][]types.InventoryRecord)
	for _, r := range records {
		byGroup[r.Group] = append(byGroup[r.Group], r)
	}

	labels := make([]string, 0, len(byGroup))
	for label := range byGroup {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var (
		plans      []sheetPlan
		collisions []Collision
		taken      = make(map[string]int) // lower-cased title -> index in plans
	)

	for _, label := range labels {
		title := SanitizeSheetName(label)
		key := strings.ToLower(title)

		if i, ok := taken[key]; ok {
			c := Collision{Title: title, Previous: plans[i].group, Group: label}

			if g.settings.SheetNameCollision == config.CollisionSuffix {
				for n := 2; ; n++ {
					title = suffixedName(SanitizeSheetName(label), n)
					key = strings.ToLower(title)
					if _, ok := taken[key]; !ok {
						break
					}
				}
				c.AssignedTitle = title
			} else {
				plans[i].replaced = true
			}

			g.logger.Warn("sheet name collision",
				"title", c.Title,
				"previous", c.Previous,
				"group", c.Group,
				"policy", g.settings.SheetNameCollision,
				"assigned_title", c.AssignedTitle,
			)
			collisions = append(collisions, c)
		}

		taken[key] = len(plans)
		plans = append(plans, sheetPlan{title: title, group: label, records: byGroup[label]})
	}

	return plans, collisions
}

// =============================================================================
// SHEET WRITING
// =============================================================================

type styles struct {
	header int
	band   int
	plain  int
	manual int
}

func (g *Generator) newStyles(f *excelize.File) (styles, error) {
	var st styles

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}

	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
	}

	defs := []struct {
		target *int
		style  *excelize.Style
	}{
		{&st.header, &excelize.Style{
			Fill:      fill(g.settings.HeaderFill),
			Font:      &excelize.Font{Bold: true, Color: g.settings.HeaderFont},
			Alignment: center,
			Border:    border,
		}},
		{&st.band, &excelize.Style{Fill: fill(g.settings.BandFill), Alignment: center, Border: border}},
		{&st.plain, &excelize.Style{Fill: fill(g.settings.PlainFill), Alignment: center, Border: border}},
		{&st.manual, &excelize.Style{Fill: fill(g.settings.ManualFill), Alignment: center, Border: border}},
	}

	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return st, fmt.Errorf("failed to create style: %w", err)
		}
		*d.target = id
	}

	return st, nil
}

func (g *Generator) writeSheet(f *excelize.File, st styles, p sheetPlan) error {
	sheet := p.title
	widths := newWidthTracker(len(types.Columns))

	header := make([]interface{}, len(types.Columns))
	for i, name := range types.Columns {
		header[i] = name
		widths.observe(i+1, name)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, cellName(1, 1), cellName(len(types.Columns), 1), st.header); err != nil {
		return err
	}

	for i, rec := range p.records {
		row := i + 2

		values := []interface{}{
			rec.Group,
			rec.ItemSeq,
			rec.Code,
			rec.Material,
			rec.Unit,
			nullableFloat(rec.QtyTotal.Valid, rec.QtyTotal.Decimal.InexactFloat64()),
			nullableFloat(rec.ValueTotal.Valid, rec.ValueTotal.Decimal.InexactFloat64()),
			nullableFloat(rec.UnitValue.Valid, rec.UnitValue.Decimal.InexactFloat64()),
			nil,
			rec.SurveyQty.InexactFloat64(),
		}
		if err := f.SetSheetRow(sheet, cellName(1, row), &values); err != nil {
			return err
		}

		formula := g.adjustmentFormula(row)
		if err := f.SetCellFormula(sheet, cellName(types.ColAdjustment, row), formula); err != nil {
			return err
		}
		values[types.ColAdjustment-1] = "=" + formula

		for col, v := range values {
			widths.observe(col+1, v)
		}

		band := st.plain
		if row%2 == 0 {
			band = st.band
		}
		if err := f.SetCellStyle(sheet, cellName(types.ColGroup, row), cellName(types.ColUnitValue, row), band); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cellName(types.ColAdjustment, row), cellName(types.ColSurveyQty, row), st.manual); err != nil {
			return err
		}
	}

	for col := 1; col <= len(types.Columns); col++ {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return err
		}
		width := widths.width(col, g.settings.ColumnPadding, g.settings.MaxColumnWidth)
		if err := f.SetColWidth(sheet, name, name, float64(width)); err != nil {
			return err
		}
	}

	return nil
}

// adjustmentFormula returns the formula of the adjustment cell in row,
// without the leading "=".
func (g *Generator) adjustmentFormula(row int) string {
	survey := cellName(types.ColSurveyQty, row)
	total := cellName(types.ColQtyTotal, row)
	if g.settings.AdjustmentDirection == config.AdjustTotalMinusSurvey {
		return total + "-" + survey
	}
	return survey + "-" + total
}

func nullableFloat(valid bool, v float64) interface{} {
	if !valid {
		return nil
	}
	return v
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// =============================================================================
// COLUMN WIDTHS
// =============================================================================

// widthTracker keeps the longest text seen per column. Empty and zero
// values do not count.
type widthTracker struct {
	longest []int
}

func newWidthTracker(columns int) *widthTracker {
	return &widthTracker{longest: make([]int, columns+1)}
}

func (w *widthTracker) observe(col int, v interface{}) {
	var s string
	switch val := v.(type) {
	case nil:
		return
	case string:
		s = val
	case int:
		if val == 0 {
			return
		}
		s = strconv.Itoa(val)
	case float64:
		if val == 0 {
			return
		}
		s = strconv.FormatFloat(val, 'f', -1, 64)
	default:
		s = fmt.Sprint(val)
	}
	if n := utf8.RuneCountInString(s); n > w.longest[col] {
		w.longest[col] = n
	}
}

func (w *widthTracker) width(col, padding, limit int) int {
	width := w.longest[col] + padding
	if width > limit {
		return limit
	}
	return width
}
