package workbook

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSheetName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain label", input: "001 - Central", expected: "001 - Central"},
		{name: "forbidden characters", input: `001 - A/B\C:D*E?F[G]H`, expected: "001 - A_B_C_D_E_F_G_H"},
		{name: "truncated to 31", input: "001 - Almoxarifado Central de Materiais", expected: "001 - Almoxarifado Central de M"},
		{name: "substitution before truncation", input: "001 - Depósito/Material de Escritório", expected: "001 - Depósito_Material de Escr"},
		{name: "leading apostrophe", input: "'Central", expected: "_Central"},
		{name: "trailing apostrophe after truncation", input: "001 - Almoxarifado d'Água Cent'ral", expected: "001 - Almoxarifado d'Água Cent_"},
		{name: "empty", input: "", expected: "Sheet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeSheetName(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), MaxSheetNameLength)
		})
	}
}

func TestSanitizeSheetNameCountsCharactersNotBytes(t *testing.T) {
	label := strings.Repeat("ç", 40)
	got := SanitizeSheetName(label)
	assert.Equal(t, strings.Repeat("ç", 31), got)
}

func TestSuffixedName(t *testing.T) {
	base := SanitizeSheetName("001 - Almoxarifado Central de Materiais")

	got := suffixedName(base, 2)
	assert.Equal(t, "001 - Almoxarifado Central de~2", got)
	assert.Equal(t, MaxSheetNameLength, utf8.RuneCountInString(got))

	assert.Equal(t, "Central~12", suffixedName("Central", 12))
}
