// Package relation extracts directive/failure/consequence assertions
// from a case document, binding actors and objects from externally
// supplied entity spans.
package relation

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/epfo-tools/case-engine/constants"
	"github.com/epfo-tools/case-engine/internal/entity"
	"github.com/epfo-tools/case-engine/internal/normalize"
)

// Keywords that mark the start of a new hearing section. Actor binding
// never crosses one of these boundaries.
var sectionKeywords = []string{"hearing", "appeared", "present", "personal appearance"}

// Extractor binds trigger phrases to actor/object slots.
type Extractor struct {
	vocab    Vocabulary
	lowFloor float64
	logger   *slog.Logger
}

func NewExtractor(vocab Vocabulary, lowFloor float64, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{vocab: vocab, lowFloor: lowFloor, logger: logger}
}

// Extract returns the relations asserted by a document. Confidence is
// attached, never thresholded away: filtering is a downstream call.
// Extraction is deterministic for a given (text, entities) pair.
func (e *Extractor) Extract(doc *entity.NormalizedDocument, spans []entity.EntitySpan) ([]entity.Relation, []constants.QualityFlag) {
	if doc.Empty() {
		return nil, nil
	}
	flags := constants.NewFlagSet()
	text, starts := doc.Flatten()
	lower := strings.ToLower(text)
	boundaries := sectionStarts(doc, starts)

	type hit struct {
		pos int
		rel entity.Relation
	}
	var hits []hit
	seen := make(map[int]constants.Predicate)

	for _, trg := range e.vocab.triggers() {
		phrase := strings.ToLower(trg.phrase)
		for from := 0; ; {
			idx := strings.Index(lower[from:], phrase)
			if idx < 0 {
				break
			}
			pos := from + idx
			from = pos + len(phrase)
			if prev, dup := seen[pos]; dup && prev == trg.predicate {
				continue
			}
			seen[pos] = trg.predicate

			section := sectionOf(boundaries, pos)
			actor, actorConf := e.bindActor(spans, pos, section)
			object, objectConf := e.bindObject(text, spans, pos+len(phrase))

			rel := entity.Relation{
				Actor:          actor,
				Predicate:      trg.predicate,
				Object:         object,
				SupportingLine: entity.LineNumberAt(doc.Lines, starts, pos),
				Confidence:     (actorConf + objectConf) / 2,
			}
			if rel.Confidence < e.lowFloor {
				flags.Add(constants.FlagLowConfidenceRelations)
			}
			hits = append(hits, hit{pos: pos, rel: rel})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].pos != hits[b].pos {
			return hits[a].pos < hits[b].pos
		}
		return hits[a].rel.Predicate < hits[b].rel.Predicate
	})
	rels := make([]entity.Relation, len(hits))
	for i, h := range hits {
		rels[i] = h.rel
	}
	return rels, flags.Sorted()
}

// sectionStarts returns the flattened-text offsets at which a new
// hearing section begins: a line carrying both a parsed date and a
// hearing keyword.
func sectionStarts(doc *entity.NormalizedDocument, starts []int) []int {
	bounds := []int{0}
	for i, ln := range doc.Lines {
		lower := strings.ToLower(ln.Text)
		hasKeyword := false
		for _, kw := range sectionKeywords {
			if strings.Contains(lower, kw) {
				hasKeyword = true
				break
			}
		}
		if !hasKeyword {
			continue
		}
		for _, m := range normalize.FindDates(ln.Text) {
			if m.Parsed {
				bounds = append(bounds, starts[i])
				break
			}
		}
	}
	return bounds
}

func sectionOf(bounds []int, pos int) int {
	section := 0
	for _, b := range bounds {
		if b > pos {
			break
		}
		section = b
	}
	return section
}

// bindActor picks the nearest preceding ESTABLISHMENT or JUDGE span
// within the trigger's section. Equal distances resolve to the span
// starting earlier in the text, whatever order the caller supplied.
func (e *Extractor) bindActor(spans []entity.EntitySpan, pos, section int) (string, float64) {
	best := -1
	bestDist := 0
	for i, sp := range spans {
		if sp.Type != entity.EntityEstablishment && sp.Type != entity.EntityJudge {
			continue
		}
		if sp.End > pos || sp.Start < section {
			continue
		}
		dist := pos - sp.End
		if best == -1 || dist < bestDist || (dist == bestDist && sp.Start < spans[best].Start) {
			best = i
			bestDist = dist
		}
	}
	if best == -1 {
		return "", 0.2
	}
	return spans[best].Text, proximityConfidence(bestDist)
}

// bindObject picks the nearest following AMOUNT/DATE/OTHER span, or
// falls back to the trailing clause verbatim.
func (e *Extractor) bindObject(text string, spans []entity.EntitySpan, from int) (string, float64) {
	best := -1
	bestDist := 0
	for i, sp := range spans {
		switch sp.Type {
		case entity.EntityAmount, entity.EntityDate, entity.EntityOther:
		default:
			continue
		}
		if sp.Start < from {
			continue
		}
		dist := sp.Start - from
		if best == -1 || dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	if best >= 0 {
		return spans[best].Text, proximityConfidence(bestDist)
	}
	return trailingClause(text, from), 0.5
}

// proximityConfidence decays with character distance: adjacent spans
// score near 1, spans a paragraph away near 0.
func proximityConfidence(dist int) float64 {
	if dist < 0 {
		dist = 0
	}
	return 1.0 / (1.0 + float64(dist)/64.0)
}

func trailingClause(text string, from int) string {
	if from >= len(text) {
		return ""
	}
	rest := text[from:]
	end := len(rest)
	if idx := strings.IndexAny(rest, ".;\n"); idx >= 0 {
		end = idx
	}
	clause := strings.TrimSpace(rest[:end])
	if len(clause) > 200 {
		clause = clause[:200]
	}
	return clause
}
