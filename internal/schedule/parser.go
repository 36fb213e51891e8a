// Package schedule parses the tabular dues breakdown of an order into
// a reconciled financial ledger.
package schedule

import (
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/epfo-tools/case-engine/constants"
	"github.com/epfo-tools/case-engine/internal/entity"
	"github.com/epfo-tools/case-engine/internal/normalize"
)

// column identifies one expected schedule column.
type column int

const (
	colEE column = iota
	colER
	colAdmin
	colDamages
	colTotal
)

// Header vocabulary, matched against a lowercased line. Order matters:
// more specific phrases first so "insurance admin" wins over "admin".
var headerVocab = []struct {
	col      column
	patterns []string
}{
	{colEE, []string{"ee share", "employee share", "employee's share"}},
	{colER, []string{"er share", "employer share", "employer's share", "employer contribution"}},
	{colAdmin, []string{"admin charge", "administration charge", "admin. charge"}},
	{colDamages, []string{"damages", "penal damages", "14b"}},
	{colTotal, []string{"total"}},
}

// Account-head synonyms for the account-code column and the labeled
// fallback, per the EPF account scheme.
var accountHeads = []struct {
	code     string
	patterns []string
}{
	{"A/C 2", []string{"admin charge", "administration charge", "a/c 2", "account 2"}},
	{"A/C 10", []string{"pension fund", "pension", "a/c 10", "account 10"}},
	{"A/C 21", []string{"edli", "insurance fund", "a/c 21", "account 21"}},
	{"A/C 22", []string{"insurance admin", "a/c 22", "account 22"}},
	{"A/C 1", []string{"ee share", "er share", "employee share", "employer share", "a/c 1", "account 1"}},
}

var (
	reNumber      = regexp.MustCompile(`\d+(?:\.\d+)?`)
	reAccountCode = regexp.MustCompile(`(?i)^\s*((?:a/c|account)\s*\.?\s*\d+[a-z]?|\d+[ab]?[.)])`)

	reLabelEE      = regexp.MustCompile(`(?i)\bee(?:\s*share)?\s*[:=]\s*(\d+(?:\.\d+)?)`)
	reLabelER      = regexp.MustCompile(`(?i)\ber(?:\s*share)?\s*[:=]\s*(\d+(?:\.\d+)?)`)
	reLabelAdmin   = regexp.MustCompile(`(?i)\badmin(?:istration)?(?:\s*charges?)?\s*[:=]\s*(\d+(?:\.\d+)?)`)
	reLabelDamages = regexp.MustCompile(`(?i)\b(?:penal\s+)?damages\s*[:=]\s*(\d+(?:\.\d+)?)`)
	reLabelTotal   = regexp.MustCompile(`(?i)\btotal\s*[:=]\s*(\d+(?:\.\d+)?)`)

	reDeclaredTotal = regexp.MustCompile(`(?i)\b(?:grand\s+total|total\s+dues)\b[^0-9]*(\d+(?:\.\d+)?)`)
)

// Parser scans a normalized document for schedule regions and builds
// the financial ledger.
type Parser struct {
	tolerance float64
	logger    *slog.Logger
}

func NewParser(tolerance float64, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{tolerance: tolerance, logger: logger}
}

// Parse builds the ledger for a document. An absent schedule yields an
// empty ledger, not an error. GrandTotal is always recomputed from the
// rows; a declared total from the text is only compared against it.
func (p *Parser) Parse(doc *entity.NormalizedDocument) (entity.FinancialLedger, []constants.QualityFlag) {
	ledger := entity.FinancialLedger{Reconciled: true}
	flags := constants.NewFlagSet()
	if doc.Empty() {
		return ledger, nil
	}

	consumed := make(map[int]bool) // line index -> already parsed as a row

	// Pass 1: header-anchored regions with positional columns.
	for i := 0; i < len(doc.Lines); i++ {
		cols, ok := matchHeader(doc.Lines[i].Text)
		if !ok {
			continue
		}
		misses := 0
		for j := i + 1; j < len(doc.Lines) && misses < 2; j++ {
			if consumed[j] {
				continue
			}
			// A new header ends this region; its rows belong to the
			// next region's column layout.
			if _, isHeader := matchHeader(doc.Lines[j].Text); isHeader {
				break
			}
			row, rowOK := p.parsePositionalRow(doc.Lines[j], cols, flags)
			if !rowOK {
				misses++
				continue
			}
			misses = 0
			consumed[j] = true
			ledger.Rows = append(ledger.Rows, row)
		}
	}

	// Pass 2: labeled rows anywhere else. The common shape under OCR
	// noise, where column alignment did not survive.
	for i, ln := range doc.Lines {
		if consumed[i] {
			continue
		}
		if reDeclaredTotal.MatchString(ln.Text) {
			continue
		}
		row, ok := p.parseLabeledRow(ln)
		if !ok {
			continue
		}
		ledger.Rows = append(ledger.Rows, row)
	}

	// Rows keep source order regardless of which pass found them.
	sortRowsBySource(ledger.Rows)

	for i := range ledger.Rows {
		row := &ledger.Rows[i]
		if row.Mismatch {
			flags.Add(constants.FlagReconciliationMismatch)
			ledger.Reconciled = false
		}
		ledger.GrandTotal += row.Total
	}

	// Declared total: compared, never trusted.
	for _, ln := range doc.Lines {
		m := reDeclaredTotal.FindStringSubmatch(ln.Text)
		if m == nil {
			continue
		}
		if v, ok := normalize.ParseAmount(m[1]); ok {
			ledger.DeclaredTotal = &v
			if !ledger.Empty() && math.Abs(v-ledger.GrandTotal) > p.tolerance {
				flags.Add(constants.FlagDeclaredTotalMismatch)
				ledger.Reconciled = false
				p.logger.Warn("declared total disagrees with computed total",
					"declared", v, "computed", ledger.GrandTotal)
			}
		}
		break
	}

	return ledger, flags.Sorted()
}

// matchHeader reports the columns named on a candidate header line, in
// the order they appear. A header needs at least two known columns and
// no amounts of its own.
func matchHeader(line string) ([]column, bool) {
	lower := strings.ToLower(line)
	if len(reNumber.FindAllString(normalize.MaskDates(lower), -1)) > 1 {
		return nil, false
	}
	type hit struct {
		col column
		pos int
	}
	var hits []hit
	for _, entry := range headerVocab {
		best := -1
		for _, pat := range entry.patterns {
			if idx := strings.Index(lower, pat); idx >= 0 && (best == -1 || idx < best) {
				best = idx
			}
		}
		if best >= 0 {
			hits = append(hits, hit{entry.col, best})
		}
	}
	if len(hits) < 2 {
		return nil, false
	}
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	cols := make([]column, len(hits))
	for i, h := range hits {
		cols[i] = h.col
	}
	return cols, true
}

// parsePositionalRow assigns a row's numeric tokens to the header's
// columns. With more tokens than columns the interpretation that
// minimizes the reconciliation residual wins.
func (p *Parser) parsePositionalRow(ln entity.Line, cols []column, flags constants.FlagSet) (entity.ScheduleLine, bool) {
	text := ln.Text
	account := ""
	if m := reAccountCode.FindString(text); m != "" {
		account = canonicalAccount(m)
		text = text[len(m):]
	} else if code, rest, ok := matchAccountHead(text); ok {
		account = code
		text = rest
	}

	nums := reNumber.FindAllString(normalize.MaskDates(text), -1)
	if len(nums) < 2 {
		return entity.ScheduleLine{}, false
	}
	values := make([]float64, len(nums))
	for i, n := range nums {
		values[i], _ = normalize.ParseAmount(n)
	}

	best := entity.ScheduleLine{}
	bestResidual := math.Inf(1)
	width := len(cols)
	if width > len(values) {
		width = len(values)
	}
	for start := 0; start+width <= len(values); start++ {
		cand := assignColumns(values[start:start+width], cols)
		if cand.Residual < bestResidual {
			bestResidual = cand.Residual
			best = cand
		}
	}
	if len(values) > len(cols) {
		flags.Add(constants.FlagAmbiguousRow)
	}

	best.AccountCode = account
	best.SourceLine = ln.Number
	best.Mismatch = best.Residual > p.tolerance
	return best, true
}

// assignColumns maps values onto columns left to right. A missing
// total column means the total is the component sum.
func assignColumns(values []float64, cols []column) entity.ScheduleLine {
	row := entity.ScheduleLine{}
	hasTotal := false
	for i, v := range values {
		if i >= len(cols) {
			break
		}
		switch cols[i] {
		case colEE:
			row.EEShare = v
		case colER:
			row.ERShare = v
		case colAdmin:
			row.AdminCharge = v
		case colDamages:
			row.Damages = v
		case colTotal:
			row.Total = v
			hasTotal = true
		}
	}
	if !hasTotal {
		row.Total = row.Sum()
	}
	row.Residual = math.Abs(row.Total - row.Sum())
	return row
}

// parseLabeledRow handles "<account> ... EE: X ER: Y ... Total: Z".
// At least two labeled amounts make a row.
func (p *Parser) parseLabeledRow(ln entity.Line) (entity.ScheduleLine, bool) {
	row := entity.ScheduleLine{SourceLine: ln.Number}
	labels := 0
	grab := func(re *regexp.Regexp) (float64, bool) {
		m := re.FindStringSubmatch(ln.Text)
		if m == nil {
			return 0, false
		}
		v, ok := normalize.ParseAmount(m[1])
		return v, ok
	}
	if v, ok := grab(reLabelEE); ok {
		row.EEShare = v
		labels++
	}
	if v, ok := grab(reLabelER); ok {
		row.ERShare = v
		labels++
	}
	if v, ok := grab(reLabelAdmin); ok {
		row.AdminCharge = v
		labels++
	}
	if v, ok := grab(reLabelDamages); ok {
		row.Damages = v
		labels++
	}
	total, hasTotal := grab(reLabelTotal)
	if hasTotal {
		labels++
	}
	if labels < 2 {
		return entity.ScheduleLine{}, false
	}
	if hasTotal {
		row.Total = total
	} else {
		row.Total = row.Sum()
	}
	row.Residual = math.Abs(row.Total - row.Sum())
	row.Mismatch = row.Residual > p.tolerance

	if m := reAccountCode.FindString(ln.Text); m != "" {
		row.AccountCode = canonicalAccount(m)
	} else if code, _, ok := matchAccountHead(ln.Text); ok {
		row.AccountCode = code
	}
	return row, true
}

// matchAccountHead resolves a head name ("Pension Fund", "EDLI") to
// its canonical account code and returns the line with the head text
// removed.
func matchAccountHead(text string) (string, string, bool) {
	lower := strings.ToLower(text)
	for _, head := range accountHeads {
		for _, pat := range head.patterns {
			if idx := strings.Index(lower, pat); idx >= 0 {
				rest := text[:idx] + text[idx+len(pat):]
				return head.code, rest, true
			}
		}
	}
	return "", text, false
}

func canonicalAccount(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimRight(s, ".)")
	s = strings.ReplaceAll(s, "ACCOUNT", "A/C")
	s = strings.ReplaceAll(s, "A/C.", "A/C")
	if strings.HasPrefix(s, "A/C") && !strings.HasPrefix(s, "A/C ") {
		s = "A/C " + strings.TrimSpace(strings.TrimPrefix(s, "A/C"))
	}
	return strings.Join(strings.Fields(s), " ")
}

func sortRowsBySource(rows []entity.ScheduleLine) {
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && rows[j].SourceLine < rows[j-1].SourceLine; j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}
}
