// Package normalize cleans raw OCR text into the line-oriented
// document every extractor consumes. It is deterministic and never
// fails: garbling is the default assumption, not an exception.
package normalize

import (
	"regexp"
	"strings"

	"github.com/epfo-tools/case-engine/internal/entity"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	// wordpiece markers leaked by the upstream NER tokenizer ("sub ##mit")
	reFragmentMark = regexp.MustCompile(`\s*##`)
	// hyphen split within a line ("demonst- ration")
	reHyphenSplit = regexp.MustCompile(`(\w)-\s+(\w)`)
	reBoxNoise    = regexp.MustCompile(`^\s*[_\-|=]{3,}\s*$`)
)

// OCR artifacts observed in the scanned-order corpus.
var artifactTokens = []string{"Jag=", "bE |", "3a DES", "|"}

// Normalize cleans raw OCR text into a NormalizedDocument.
// Line numbers are 1-based positions in the raw input; garbage lines
// are dropped but never renumber their neighbors. Fragment merging
// stays strictly within a line.
func Normalize(raw string) *entity.NormalizedDocument {
	doc := &entity.NormalizedDocument{}
	if raw == "" {
		return doc
	}
	raw = reCRLF.ReplaceAllString(raw, "\n")

	for i, line := range strings.Split(raw, "\n") {
		cleaned := normalizeLine(line)
		if cleaned == "" {
			continue
		}
		doc.Lines = append(doc.Lines, entity.Line{Number: i + 1, Text: cleaned})
	}
	return doc
}

func normalizeLine(line string) string {
	s := strings.TrimSpace(line)
	if s == "" || reBoxNoise.MatchString(s) {
		return ""
	}
	if isGarbage(s) {
		return ""
	}
	for _, tok := range artifactTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = reFragmentMark.ReplaceAllString(s, "")
	s = reHyphenSplit.ReplaceAllString(s, "$1$2")
	s = reTabs.ReplaceAllString(s, " ")
	s = NormalizeAmounts(s)
	s = NormalizeDates(s)
	s = reMultiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// isGarbage flags lines dominated by non-alphanumeric symbols, e.g.
// "||..//". Short lines are spared: headers like "No." and bare dates
// would otherwise be lost.
func isGarbage(s string) bool {
	compact := strings.ReplaceAll(s, " ", "")
	if len(compact) <= 5 {
		return false
	}
	alnum := 0
	for _, r := range compact {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			alnum++
		}
	}
	return float64(alnum)/float64(len(compact)) < 0.5
}
