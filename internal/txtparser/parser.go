// =============================================================================
// Estoque Analítico - Inventory Text Parser
// =============================================================================
//
// This module reads the inventory position export ("posição de estoque") and
// turns it into flat InventoryRecord values.
//
// INPUT FORMAT:
// The export is organized in warehouse sections. Each section starts with a
// header line and is followed by data rows. Fields are separated by a
// delimiter sentinel (default "§") that never appears inside a value:
//
//   Almoxarifado:§001 - ORGAO - UNIDADE - SETOR - Central§§
//   1§10 - Parafuso§UN§compra§END1§5,00§10,00§5,00§10,00§10,00§20,00§
//   2§11 - Porca§UN§compra§END1§0,00§0,00§3,00§1,50§3,00§1,50§
//
//   (blank line closes the section)
//
// DATA ROW FIELDS (in order):
//   sequence, code - material, unit, purpose, address,
//   unavailable qty, unavailable value, available qty, available value,
//   total qty, total value
//
// Only sequence, code, material, unit, total qty and total value are kept.
// The whole row must still match so a short or shifted row is never
// misread as a valid one.
//
// STATE MACHINE:
//   Outside --header--> Inside(label)
//   Inside  --header--> Inside(new label)
//   Inside  --blank---> Outside (label kept until the next header)
//   Inside  --data----> Inside, record emitted
//   Inside  --other---> Inside, line skipped
//   Outside --anything but a header--> Outside, nothing emitted
//
// =============================================================================

package txtparser

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/config"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/locale"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/logging"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/types"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// Result is the outcome of a successful parse.
type Result struct {
	// Records holds the data rows in input line order.
	Records []types.InventoryRecord `json:"records"`

	// Diagnostics summarizes what happened to every line.
	Diagnostics Diagnostics `json:"diagnostics"`
}

// Diagnostics counts line classifications. None of these are errors.
type Diagnostics struct {
	Lines        int `json:"lines"`
	HeaderLines  int `json:"header_lines"`
	DataLines    int `json:"data_lines"`
	BlankLines   int `json:"blank_lines"`
	SkippedLines int `json:"skipped_lines"`
	OutsideLines int `json:"outside_lines"`
	OrphanRows   int `json:"orphan_rows"`
	FieldErrors  int `json:"field_errors"`

	// Groups lists the group labels in the order their headers were seen.
	Groups []string `json:"groups"`

	// Issues lists every skipped line and field failure.
	Issues []Issue `json:"issues,omitempty"`
}

// Issue kinds.
const (
	IssueSkippedLine     = "skipped_line"
	IssueOrphanRow       = "orphan_row"
	IssueInvalidNumber   = "invalid_number"
	IssueInvalidSequence = "invalid_sequence"
)

// Issue describes one line or field the parser could not use as is.
type Issue struct {
	Line    int    `json:"line"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// =============================================================================
// PARSER
// =============================================================================

// Parser holds the compiled patterns for one input layout. It keeps no state
// between calls and is safe for concurrent use.
type Parser struct {
	settings config.ParserSettings
	locale   locale.Locale
	header   *regexp.Regexp
	data     *regexp.Regexp
	logger   *slog.Logger
}

// Option customizes a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for per-line debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithLocale sets the numeric convention of the quantity and value fields.
func WithLocale(l locale.Locale) Option {
	return func(p *Parser) { p.locale = l }
}

// New compiles the header and data patterns for settings.
func New(settings config.ParserSettings, opts ...Option) (*Parser, error) {
	if settings.Encoding == "" {
		settings.Encoding = "utf-8"
	}
	if settings.Delimiter == "" || settings.HeaderMarker == "" {
		return nil, fmt.Errorf("parser needs a delimiter and a header marker")
	}

	p := &Parser{
		settings: settings,
		locale:   locale.PtBR,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "txtparser")

	var err error
	if p.header, err = regexp.Compile(headerPattern(settings.HeaderMarker, settings.Delimiter)); err != nil {
		return nil, fmt.Errorf("failed to compile header pattern: %w", err)
	}
	if p.data, err = regexp.Compile(dataPattern(settings.Delimiter)); err != nil {
		return nil, fmt.Errorf("failed to compile data pattern: %w", err)
	}

	return p, nil
}

// Parse parses raw with the default layout (UTF-8, "§", "Almoxarifado:").
func Parse(raw []byte) (*Result, error) {
	p, err := New(config.DefaultParserSettings())
	if err != nil {
		return nil, err
	}
	return p.Parse(raw)
}

// Parse decodes raw and walks its lines through the section state machine.
//
// The only error is a decoding failure, in which case no records are returned.
// Malformed lines and fields are reported in Diagnostics instead.
func (p *Parser) Parse(raw []byte) (*Result, error) {
	text, err := decode(raw, p.settings.Encoding)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Records:     []types.InventoryRecord{},
		Diagnostics: Diagnostics{Groups: []string{}},
	}
	diag := &result.Diagnostics
	seen := make(map[string]bool)

	st := state{}
	for i, line := range splitLines(text) {
		lineNo := i + 1
		var out outcome
		st, out = p.step(st, lineNo, line)

		diag.Lines++
		diag.Issues = append(diag.Issues, out.issues...)
		switch out.kind {
		case kindBlank:
			diag.BlankLines++
		case kindHeader:
			diag.HeaderLines++
			if !seen[st.group] {
				seen[st.group] = true
				diag.Groups = append(diag.Groups, st.group)
			}
		case kindData:
			diag.DataLines++
			diag.FieldErrors += len(out.issues)
			result.Records = append(result.Records, *out.record)
		case kindSkipped:
			diag.SkippedLines++
		case kindOutside:
			diag.OutsideLines++
		case kindOrphan:
			diag.OutsideLines++
			diag.OrphanRows++
		}

		for _, issue := range out.issues {
			p.logger.Debug("line not fully used", "line", issue.Line, "kind", issue.Kind, "detail", issue.Message)
		}
	}

	p.logger.Debug("parse finished",
		"lines", diag.Lines,
		"records", len(result.Records),
		"groups", len(diag.Groups),
		"skipped", diag.SkippedLines,
		"field_errors", diag.FieldErrors,
	)

	return result, nil
}

// =============================================================================
// STATE MACHINE
// =============================================================================

// state is the reducer state carried from one line to the next.
type state struct {
	inside bool
	group  string
}

type lineKind int

const (
	kindBlank lineKind = iota
	kindHeader
	kindData
	kindSkipped
	kindOutside
	kindOrphan
)

// outcome is what one line produced.
type outcome struct {
	kind   lineKind
	record *types.InventoryRecord
	issues []Issue
}

// step is the pure transition function of the section state machine.
func (p *Parser) step(st state, lineNo int, raw string) (state, outcome) {
	line := strings.TrimSpace(raw)

	if line == "" {
		return state{inside: false, group: st.group}, outcome{kind: kindBlank}
	}

	if header, ok := p.matchHeader(line); ok {
		return state{inside: true, group: header.Label()}, outcome{kind: kindHeader}
	}

	if !st.inside {
		if p.data.MatchString(line) {
			return st, outcome{kind: kindOrphan, issues: []Issue{{
				Line:    lineNo,
				Kind:    IssueOrphanRow,
				Message: "data row outside any warehouse section",
			}}}
		}
		return st, outcome{kind: kindOutside}
	}

	record, issues, ok := p.matchData(line, lineNo)
	if !ok {
		return st, outcome{kind: kindSkipped, issues: []Issue{{
			Line:    lineNo,
			Kind:    IssueSkippedLine,
			Message: "line matches neither header nor data row",
		}}}
	}

	record.Group = st.group
	return st, outcome{kind: kindData, record: record, issues: issues}
}

// matchHeader extracts the section header from line.
func (p *Parser) matchHeader(line string) (types.SectionHeader, bool) {
	m := p.header.FindStringSubmatch(line)
	if m == nil {
		return types.SectionHeader{}, false
	}
	return types.SectionHeader{
		GroupID:   strings.TrimSpace(m[1]),
		GroupName: strings.TrimSpace(m[5]),
	}, true
}

// Capture positions of the data pattern.
const (
	capSeq        = 1
	capCode       = 2
	capMaterial   = 3
	capUnit       = 4
	capQtyTotal   = 11
	capValueTotal = 12
)

// matchData extracts a record from a data row. Field conversion failures
// are returned as issues and leave the field missing.
func (p *Parser) matchData(line string, lineNo int) (*types.InventoryRecord, []Issue, bool) {
	m := p.data.FindStringSubmatch(line)
	if m == nil {
		return nil, nil, false
	}

	var issues []Issue

	seq, err := strconv.Atoi(m[capSeq])
	if err != nil {
		issues = append(issues, Issue{
			Line:    lineNo,
			Kind:    IssueInvalidSequence,
			Message: fmt.Sprintf("item sequence %q is not a valid integer", m[capSeq]),
		})
		seq = 0
	}

	record := &types.InventoryRecord{
		ItemSeq:    seq,
		Code:       strings.TrimSpace(m[capCode]),
		Material:   strings.TrimSpace(m[capMaterial]),
		Unit:       strings.TrimSpace(m[capUnit]),
		SourceLine: lineNo,
	}

	record.QtyTotal = p.locale.Parse(m[capQtyTotal])
	if !record.QtyTotal.Valid {
		issues = append(issues, invalidNumber(lineNo, "total quantity", m[capQtyTotal]))
	}
	record.ValueTotal = p.locale.Parse(m[capValueTotal])
	if !record.ValueTotal.Valid {
		issues = append(issues, invalidNumber(lineNo, "total value", m[capValueTotal]))
	}
	record.DeriveUnitValue()

	return record, issues, true
}

func invalidNumber(lineNo int, field, raw string) Issue {
	return Issue{
		Line:    lineNo,
		Kind:    IssueInvalidNumber,
		Message: fmt.Sprintf("%s %q is not a valid number", field, raw),
	}
}

// =============================================================================
// PATTERNS
// =============================================================================

// word matches a unit or address token, letters of any script included.
const word = `[\p{L}\p{N}_]+`

const numericFields = 6

func headerPattern(marker, delim string) string {
	d := regexp.QuoteMeta(delim)
	free := `([^-` + classEscape(delim) + `]+)`
	dash := `\s*-\s*`
	return `^` + regexp.QuoteMeta(marker) + d + `*(\d+)` +
		dash + free + dash + free + dash + free + dash + free + d + `+`
}

func dataPattern(delim string) string {
	d := regexp.QuoteMeta(delim)
	notDelim := `([^` + classEscape(delim) + `]+)`

	var b strings.Builder
	b.WriteString(`^(\d+)` + d + `+`)
	b.WriteString(`(\d+)\s*-\s*` + notDelim + d + `+`)
	b.WriteString(`(` + word + `)` + d + `+`)
	b.WriteString(notDelim + d + `+`)
	b.WriteString(`(` + word + `)` + d + `+`)
	for i := 0; i < numericFields; i++ {
		b.WriteString(`([\d,.]+)` + d + `+`)
	}
	return b.String()
}

// classEscape escapes s for use inside a bracketed character class.
func classEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', ']', '[', '^', '-':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// splitLines splits on \r\n, \r and \n. A trailing line break does not
// produce an extra empty line.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
