// Package locale converts locale-formatted numeric strings into decimals.
//
// The inventory export prints quantities and values in the pt-BR convention
// ("1.234,56"). Normalization is kept here, away from the parser's control
// flow, so another convention only needs a new Locale value.
package locale

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Locale describes the separators of a numeric convention.
type Locale struct {
	// Thousands is the grouping separator, removed before parsing.
	Thousands string

	// Decimal is the decimal separator, replaced by "." before parsing.
	Decimal string
}

// PtBR is the convention used by the inventory export: dot groups
// thousands and comma separates decimals.
var PtBR = Locale{Thousands: ".", Decimal: ","}

// Normalize rewrites raw into a "." decimal string.
//
// Order matters: every thousands separator is stripped first, then the
// decimal separator is swapped. Running it twice on a pt-BR string corrupts
// the value ("1.234,56" -> "1234.56" -> "123456"), so it must run exactly
// once per field.
func (l Locale) Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if l.Thousands != "" {
		s = strings.ReplaceAll(s, l.Thousands, "")
	}
	if l.Decimal != "" && l.Decimal != "." {
		s = strings.ReplaceAll(s, l.Decimal, ".")
	}
	return s
}

// Parse normalizes raw and converts it to a decimal. A value that does not
// convert comes back with Valid == false instead of an error.
func (l Locale) Parse(raw string) decimal.NullDecimal {
	s := l.Normalize(raw)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// Format prints d with the locale's decimal separator and no grouping.
func (l Locale) Format(d decimal.Decimal) string {
	s := d.String()
	if l.Decimal == "" || l.Decimal == "." {
		return s
	}
	return strings.Replace(s, ".", l.Decimal, 1)
}
