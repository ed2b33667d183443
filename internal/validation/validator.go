// =============================================================================
// Estoque Analítico - Record Validation
// =============================================================================
//
// This module checks parsed inventory records for data a reviewer should look
// at before trusting the generated workbook. It never blocks the conversion:
// the parser already degraded bad fields to missing values, and the workbook
// is still produced. Findings are reported so they can be logged, shown in
// the preview, or written to an error log next to the output.
//
// RULES:
//   1. Shape   : group, code, material and unit present, sequence >= 1
//                (struct tags on types.InventoryRecord, go-playground/validator)
//   2. Numbers : total quantity and total value present
//   3. Derived : unit value defined (total quantity present and non-zero)
//   4. Sign    : total quantity and total value not negative
//
// SEVERITY:
//   "warning" = reported, processing continues
//   "error"   = only produced when TreatWarningsAsErrors is set
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/types"
)

// Severity levels.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Rule names.
const (
	RuleShape            = "shape"
	RuleMissingQuantity  = "missing_quantity"
	RuleMissingValue     = "missing_value"
	RuleUndefinedUnit    = "undefined_unit_value"
	RuleNegativeQuantity = "negative_quantity"
	RuleNegativeValue    = "negative_value"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single finding on one record.
type ValidationError struct {
	// Severity is SeverityWarning or SeverityError.
	Severity string `json:"severity"`

	// Group is the warehouse group of the record.
	Group string `json:"group"`

	// ItemSeq is the record's printed sequence number.
	ItemSeq int `json:"item_seq"`

	// Field is the record field the finding is about.
	Field string `json:"field"`

	// Rule is the rule that was violated.
	Rule string `json:"rule"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Line is the source line of the record.
	Line int `json:"line"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] Line %d, %s item %d, Field '%s': %s",
		strings.ToUpper(e.Severity),
		e.Line,
		e.Group,
		e.ItemSeq,
		e.Field,
		e.Message,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is false when any finding has error severity.
	IsValid bool `json:"is_valid"`

	// Errors contains all findings.
	Errors []*ValidationError `json:"errors"`

	ErrorCount       int `json:"error_count"`
	WarningCount     int `json:"warning_count"`
	RecordsValidated int `json:"records_validated"`
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TreatWarningsAsErrors reports every finding with error severity.
	TreatWarningsAsErrors bool

	// AllowNegative disables the sign rules.
	AllowNegative bool
}

// Validator checks inventory records.
type Validator struct {
	options  ValidationOptions
	validate *validator.Validate
}

// NewValidator creates a Validator with default options.
func NewValidator() *Validator {
	return NewValidatorWithOptions(ValidationOptions{})
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{
		options:  options,
		validate: validator.New(),
	}
}

// Validate checks records with default options and returns every finding.
func Validate(records []types.InventoryRecord) []*ValidationError {
	return NewValidator().ValidateAll(records).Errors
}

// ValidateAll checks every record and returns a detailed result.
func (v *Validator) ValidateAll(records []types.InventoryRecord) *ValidationResult {
	result := &ValidationResult{
		IsValid:          true,
		Errors:           make([]*ValidationError, 0),
		RecordsValidated: len(records),
	}

	for i := range records {
		for _, finding := range v.ValidateRecord(&records[i]) {
			result.Errors = append(result.Errors, finding)
			if finding.Severity == SeverityError {
				result.ErrorCount++
				result.IsValid = false
			} else {
				result.WarningCount++
			}
		}
	}

	return result
}

// ValidateRecord checks a single record.
func (v *Validator) ValidateRecord(rec *types.InventoryRecord) []*ValidationError {
	var findings []*ValidationError

	add := func(field, rule, message string) {
		severity := SeverityWarning
		if v.options.TreatWarningsAsErrors {
			severity = SeverityError
		}
		findings = append(findings, &ValidationError{
			Severity: severity,
			Group:    rec.Group,
			ItemSeq:  rec.ItemSeq,
			Field:    field,
			Rule:     rule,
			Message:  message,
			Line:     rec.SourceLine,
		})
	}

	// =========================================================================
	// SHAPE
	// =========================================================================
	if err := v.validate.Struct(rec); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				add(fe.Field(), RuleShape, fmt.Sprintf("failed '%s' check (value: '%v')", fe.Tag(), fe.Value()))
			}
		} else {
			add("", RuleShape, err.Error())
		}
	}

	// =========================================================================
	// NUMBERS
	// =========================================================================
	if !rec.QtyTotal.Valid {
		add("QtyTotal", RuleMissingQuantity, "total quantity is missing")
	}
	if !rec.ValueTotal.Valid {
		add("ValueTotal", RuleMissingValue, "total value is missing")
	}
	if rec.QtyTotal.Valid && rec.QtyTotal.Decimal.IsZero() {
		add("UnitValue", RuleUndefinedUnit, "unit value is undefined for a zero quantity")
	}

	// =========================================================================
	// SIGN
	// =========================================================================
	if !v.options.AllowNegative {
		if rec.QtyTotal.Valid && rec.QtyTotal.Decimal.IsNegative() {
			add("QtyTotal", RuleNegativeQuantity, "total quantity is negative")
		}
		if rec.ValueTotal.Valid && rec.ValueTotal.Decimal.IsNegative() {
			add("ValueTotal", RuleNegativeValue, "total value is negative")
		}
	}

	return findings
}

// =============================================================================
// REPORTING
// =============================================================================

// FormatErrors formats findings as a numbered list.
func FormatErrors(errs []*ValidationError) string {
	if len(errs) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errs)))

	for i, err := range errs {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

// WriteErrorLog writes findings to filePath with a timestamped header.
func WriteErrorLog(errs []*ValidationError, source, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	var builder strings.Builder
	builder.WriteString("Validation Report\n")
	builder.WriteString(fmt.Sprintf("Source: %s\n", source))
	builder.WriteString(fmt.Sprintf("Generated: %s\n", time.Now().Format(time.RFC3339)))
	builder.WriteString(strings.Repeat("=", 60) + "\n\n")
	builder.WriteString(FormatErrors(errs))

	if err := os.WriteFile(filePath, []byte(builder.String()), 0644); err != nil {
		return fmt.Errorf("failed to write error log: %w", err)
	}
	return nil
}
