package pipeline

import (
	"regexp"

	"github.com/epfo-tools/case-engine/internal/entity"
	"github.com/epfo-tools/case-engine/internal/normalize"
)

// Header patterns for the metadata fallback, used when the caller
// supplies no external-parser output.
var (
	reCaseIDHeader    = regexp.MustCompile(`(?i)Case\s+ID\s*[:]\s*([0-9A-Za-z/.-]+)`)
	reOrderDateHeader = regexp.MustCompile(`(?i)Order\s+Date\s*[:]\s*(\d{1,2}[./-]\d{1,2}[./-]\d{2,4})`)
)

// ParseMetadata scans the document head for "Case ID:" and
// "Order Date:" lines. Absent fields stay zero; a garbled order date
// is simply left unset.
func ParseMetadata(doc *entity.NormalizedDocument) entity.Metadata {
	var meta entity.Metadata
	for _, ln := range doc.Lines {
		if meta.CaseID == "" {
			if m := reCaseIDHeader.FindStringSubmatch(ln.Text); m != nil {
				meta.CaseID = m[1]
			}
		}
		if meta.OrderDate == nil {
			if m := reOrderDateHeader.FindStringSubmatch(ln.Text); m != nil {
				if t, ok := normalize.ParseDate(m[1]); ok {
					meta.OrderDate = &t
				}
			}
		}
		if meta.CaseID != "" && meta.OrderDate != nil {
			break
		}
	}
	return meta
}
