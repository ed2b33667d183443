package workbook

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxSheetNameLength is the sheet title limit of the xlsx format.
const MaxSheetNameLength = 31

var sheetNameReplacer = strings.NewReplacer(
	"/", "_",
	`\`, "_",
	":", "_",
	"*", "_",
	"?", "_",
	"[", "_",
	"]", "_",
)

// SanitizeSheetName turns a group label into a valid sheet title.
//
// Forbidden characters are replaced with "_" and the result is truncated to
// MaxSheetNameLength characters, in that order. Distinct labels can map to
// the same title.
func SanitizeSheetName(label string) string {
	name := truncateRunes(sheetNameReplacer.Replace(label), MaxSheetNameLength)

	// The format also rejects an apostrophe at either end of the title.
	if strings.HasPrefix(name, "'") {
		name = "_" + name[1:]
	}
	if strings.HasSuffix(name, "'") {
		name = name[:len(name)-1] + "_"
	}

	if strings.TrimSpace(name) == "" {
		return "Sheet"
	}
	return name
}

// suffixedName returns base with "~n" appended, truncated so the result
// still fits in MaxSheetNameLength characters.
func suffixedName(base string, n int) string {
	suffix := fmt.Sprintf("~%d", n)
	return truncateRunes(base, MaxSheetNameLength-len(suffix)) + suffix
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	i := 0
	for pos := range s {
		if i == limit {
			return s[:pos]
		}
		i++
	}
	return s
}
