// =============================================================================
// Estoque Analítico - Shared Types
// =============================================================================
//
// This package contains the record types shared by the parser, the workbook
// generator and every consumer of the normalized table. Keeping them here
// avoids import cycles between:
//   - txtparser  (produces records)
//   - validation (inspects records)
//   - workbook   (renders records)
//   - csvexport  (renders records)
//
// =============================================================================

package types

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// SECTION HEADER
// =============================================================================

// SectionHeader is the parsed form of a warehouse header line.
type SectionHeader struct {
	// GroupID is the numeric warehouse code as printed (leading zeros kept).
	GroupID string

	// GroupName is the canonical display name of the warehouse.
	GroupName string
}

// Label returns the composite group label used as the grouping key.
// Example: "001 - Central"
func (h SectionHeader) Label() string {
	return h.GroupID + " - " + h.GroupName
}

// =============================================================================
// INVENTORY RECORD
// =============================================================================

// InventoryRecord is one data row of the inventory export.
//
// Numeric fields use decimal.NullDecimal: Valid == false is the "missing
// value" of the normalized table (a failed conversion, or a unit value that
// cannot be derived because the quantity is zero).
type InventoryRecord struct {
	// Group is the label of the section the row was read in.
	Group string `json:"group" validate:"required"`

	// ItemSeq is the 1-based sequence number as printed in the source.
	ItemSeq int `json:"item_seq" validate:"min=1"`

	// Code is the material code (SIGBP code).
	Code string `json:"code" validate:"required,numeric"`

	// Material is the free-text material description.
	Material string `json:"material" validate:"required"`

	// Unit is the unit of measure token (e.g. "UN", "CX").
	Unit string `json:"unit" validate:"required"`

	// QtyTotal is the total quantity (available + unavailable).
	QtyTotal decimal.NullDecimal `json:"qty_total"`

	// ValueTotal is the total value.
	ValueTotal decimal.NullDecimal `json:"value_total"`

	// UnitValue is ValueTotal / QtyTotal.
	UnitValue decimal.NullDecimal `json:"unit_value"`

	// Adjustment is never set by the parser. The workbook carries it as a
	// live formula over the survey and total quantity columns.
	Adjustment decimal.NullDecimal `json:"adjustment"`

	// SurveyQty is the manually counted quantity, 0 until someone fills it in.
	SurveyQty decimal.Decimal `json:"survey_qty"`

	// SourceLine is the 1-based line number in the input text.
	SourceLine int `json:"source_line"`
}

// DeriveUnitValue computes UnitValue from ValueTotal and QtyTotal.
// The result is missing when either operand is missing or the quantity is zero.
func (r *InventoryRecord) DeriveUnitValue() {
	r.UnitValue = decimal.NullDecimal{}
	if !r.QtyTotal.Valid || !r.ValueTotal.Valid || r.QtyTotal.Decimal.IsZero() {
		return
	}
	r.UnitValue = decimal.NewNullDecimal(r.ValueTotal.Decimal.Div(r.QtyTotal.Decimal))
}

// =============================================================================
// TABLE LAYOUT
// =============================================================================

// Columns lists the normalized table columns in their fixed output order.
// The workbook header row and the CSV export both follow this order.
var Columns = []string{
	"Almoxarifado",
	"Item",
	"Código",
	"Material",
	"U.M.",
	"Qtd total",
	"Valor total",
	"Valor unitário",
	"Incorporação/Baixa",
	"Quantidade e Levantamento",
}

// Column positions (1-based) within Columns.
const (
	ColGroup = iota + 1
	ColItemSeq
	ColCode
	ColMaterial
	ColUnit
	ColQtyTotal
	ColValueTotal
	ColUnitValue
	ColAdjustment
	ColSurveyQty
)
