// Package timeline reconstructs the chronological hearing sequence of
// a case document.
package timeline

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/epfo-tools/case-engine/constants"
	"github.com/epfo-tools/case-engine/internal/entity"
	"github.com/epfo-tools/case-engine/internal/normalize"
)

// Event-kind keywords, inspected in a fixed window around each date
// token. Adjournment is checked before hearing: "matter adjourned" at
// a hearing date records the adjournment, not the sitting.
var kindKeywords = []struct {
	kind     constants.EventKind
	keywords []string
}{
	{constants.EventAdjournment, []string{"adjourned", "postponed", "next date", "put up"}},
	{constants.EventOrder, []string{"order passed", "order issued", "order was issued", "disposed", "concluded"}},
	{constants.EventHearing, []string{"hearing", "appeared", "present", "personal appearance", "attended"}},
}

var reSentenceEnd = regexp.MustCompile(`[.;]`)

// Extractor scans a normalized document for hearing events.
type Extractor struct {
	window int
	logger *slog.Logger
}

func NewExtractor(window int, logger *slog.Logger) *Extractor {
	if window <= 0 {
		window = 300
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{window: window, logger: logger}
}

// Extract returns the hearing events of a document, ascending by date.
// Events sharing a date keep source order. A date token that fails to
// parse still yields an event, with a nil date, kept at its
// source-relative position: gaps stay visible downstream.
func (e *Extractor) Extract(doc *entity.NormalizedDocument) ([]entity.HearingEvent, []constants.QualityFlag) {
	if doc.Empty() {
		return nil, nil
	}
	flags := constants.NewFlagSet()
	text, starts := doc.Flatten()

	type candidate struct {
		event     entity.HearingEvent
		order     int
		effective time.Time
	}
	var cands []candidate

	for i, ln := range doc.Lines {
		for _, m := range normalize.FindDates(ln.Text) {
			abs := starts[i] + m.Start
			window := contextWindow(text, abs, len(m.Raw), e.window)
			ev := entity.HearingEvent{
				Kind:       classifyKind(window),
				Reason:     reasonClause(text, abs+len(m.Raw)),
				SourceLine: ln.Number,
			}
			if m.Parsed {
				t := m.Time
				ev.Date = &t
			} else {
				flags.Add(constants.FlagMissingDates)
				e.logger.Debug("unparseable date retained", "token", m.Raw, "line", ln.Number)
			}
			cands = append(cands, candidate{event: ev, order: len(cands)})
		}
	}

	// Effective sort key: a null-dated event inherits the last known
	// date before it in source order, so it can never be reordered
	// past a known neighbor.
	last := time.Time{}
	for i := range cands {
		if cands[i].event.Date != nil {
			last = *cands[i].event.Date
		}
		cands[i].effective = last
	}
	sort.SliceStable(cands, func(a, b int) bool {
		return cands[a].effective.Before(cands[b].effective)
	})

	events := make([]entity.HearingEvent, len(cands))
	for i, c := range cands {
		events[i] = c.event
	}
	return events, flags.Sorted()
}

// contextWindow returns the text inspected for kind keywords: a fixed
// span after the date token, truncated at the next date token so one
// hearing's narration never bleeds into the next.
func contextWindow(text string, at, tokenLen, window int) string {
	lo := at + tokenLen
	if lo > len(text) {
		lo = len(text)
	}
	hi := lo + window
	if hi > len(text) {
		hi = len(text)
	}
	span := text[lo:hi]
	if next := normalize.FindDates(span); len(next) > 0 {
		span = span[:next[0].Start]
	}
	return strings.ToLower(span)
}

func classifyKind(window string) constants.EventKind {
	for _, entry := range kindKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(window, kw) {
				return entry.kind
			}
		}
	}
	return constants.EventUnknown
}

// reasonClause captures the clause following the date token, up to the
// sentence end or the next line break.
func reasonClause(text string, from int) string {
	if from >= len(text) {
		return ""
	}
	rest := text[from:]
	end := len(rest)
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 && idx < end {
		end = idx
	}
	if loc := reSentenceEnd.FindStringIndex(rest); loc != nil && loc[0] < end {
		end = loc[0]
	}
	clause := strings.TrimSpace(strings.TrimLeft(rest[:end], " :,-"))
	if len(clause) > 200 {
		clause = clause[:200]
	}
	return clause
}
