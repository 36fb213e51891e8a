package relation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epfo-tools/case-engine/constants"
	"github.com/epfo-tools/case-engine/internal/entity"
	"github.com/epfo-tools/case-engine/internal/normalize"
)

// establishmentSpans builds ESTABLISHMENT spans for every occurrence
// of name in the flattened document text.
func establishmentSpans(doc *entity.NormalizedDocument, name string) []entity.EntitySpan {
	text, _ := doc.Flatten()
	var spans []entity.EntitySpan
	for from := 0; ; {
		idx := strings.Index(text[from:], name)
		if idx < 0 {
			break
		}
		start := from + idx
		spans = append(spans, entity.EntitySpan{
			Type:       entity.EntityEstablishment,
			Text:       name,
			Start:      start,
			End:        start + len(name),
			Confidence: 0.9,
		})
		from = start + len(name)
	}
	return spans
}

func TestExtractDirectiveAndFailure(t *testing.T) {
	doc := normalize.Normalize(
		"Establishment X was directed to submit Form 5A. Establishment X failed to submit the said form.")
	spans := establishmentSpans(doc, "Establishment X")
	require.Len(t, spans, 2)

	rels, _ := NewExtractor(DefaultVocabulary(), 0.3, nil).Extract(doc, spans)

	require.Len(t, rels, 2)
	assert.Equal(t, constants.PredicateDirective, rels[0].Predicate)
	assert.Equal(t, "Establishment X", rels[0].Actor)
	assert.Equal(t, "Form 5A", rels[0].Object)
	assert.Equal(t, constants.PredicateFailure, rels[1].Predicate)
	assert.Equal(t, "Establishment X", rels[1].Actor)
	assert.Equal(t, "the said form", rels[1].Object)
	for _, r := range rels {
		assert.Greater(t, r.Confidence, 0.0)
		assert.LessOrEqual(t, r.Confidence, 1.0)
	}
}

func TestExtractObjectPrefersFollowingSpan(t *testing.T) {
	doc := normalize.Normalize("The establishment is liable to pay 100000 towards dues.")
	text, _ := doc.Flatten()
	amountStart := strings.Index(text, "100000")
	require.GreaterOrEqual(t, amountStart, 0)
	spans := []entity.EntitySpan{{
		Type: entity.EntityAmount, Text: "100000",
		Start: amountStart, End: amountStart + 6, Confidence: 0.8,
	}}

	rels, _ := NewExtractor(DefaultVocabulary(), 0.3, nil).Extract(doc, spans)

	require.Len(t, rels, 1)
	assert.Equal(t, constants.PredicateConsequence, rels[0].Predicate)
	assert.Equal(t, "100000", rels[0].Object)
}

func TestExtractNoActorAcrossHearingBoundary(t *testing.T) {
	doc := normalize.Normalize(
		"15-03-2021 hearing held. Establishment A appeared.\n" +
			"16-04-2021 hearing held. The party failed to comply with the direction.")
	spans := establishmentSpans(doc, "Establishment A")
	require.Len(t, spans, 1)

	rels, _ := NewExtractor(DefaultVocabulary(), 0.3, nil).Extract(doc, spans)

	require.Len(t, rels, 1)
	assert.Equal(t, constants.PredicateFailure, rels[0].Predicate)
	// the only candidate actor sits in the previous hearing section
	assert.Equal(t, "", rels[0].Actor)
}

func TestExtractActorTieBreaksToEarlierSpan(t *testing.T) {
	doc := normalize.Normalize("M/s Alpha and M/s Beta failed to appear before the officer.")
	text, _ := doc.Flatten()
	alpha := strings.Index(text, "M/s Alpha")
	beta := strings.Index(text, "M/s Beta")
	trigger := strings.Index(text, "failed to appear")
	require.GreaterOrEqual(t, trigger, 0)
	// both spans artificially end at the same distance from the trigger;
	// the earlier span in the text wins regardless of slice order
	alphaSpan := entity.EntitySpan{Type: entity.EntityEstablishment, Text: "M/s Alpha", Start: alpha, End: trigger - 1}
	betaSpan := entity.EntitySpan{Type: entity.EntityEstablishment, Text: "M/s Beta", Start: beta, End: trigger - 1}

	for _, spans := range [][]entity.EntitySpan{
		{alphaSpan, betaSpan},
		{betaSpan, alphaSpan},
	} {
		rels, _ := NewExtractor(DefaultVocabulary(), 0.3, nil).Extract(doc, spans)
		require.NotEmpty(t, rels)
		assert.Equal(t, "M/s Alpha", rels[0].Actor)
	}
}

func TestExtractToleratesEmptySpanSet(t *testing.T) {
	doc := normalize.Normalize("The employer failed to comply with the order.")
	rels, _ := NewExtractor(DefaultVocabulary(), 0.3, nil).Extract(doc, nil)

	require.Len(t, rels, 1)
	assert.Equal(t, "", rels[0].Actor)
	assert.Equal(t, "with the order", rels[0].Object)
}

func TestExtractIsIdempotent(t *testing.T) {
	doc := normalize.Normalize(
		"Establishment X was directed to submit Form 5A. Establishment X failed to submit the said form. " +
			"Therefore the officer proceeded to assess dues.")
	spans := establishmentSpans(doc, "Establishment X")

	ex := NewExtractor(DefaultVocabulary(), 0.3, nil)
	first, _ := ex.Extract(doc, spans)
	second, _ := ex.Extract(doc, spans)
	assert.Equal(t, first, second)
}

func TestExtractLowConfidenceFlag(t *testing.T) {
	doc := normalize.Normalize("Some preamble. Consequently the matter was closed.")
	// no spans at all: actor confidence bottoms out
	_, flags := NewExtractor(DefaultVocabulary(), 0.9, nil).Extract(doc, nil)
	assert.Contains(t, flags, constants.FlagLowConfidenceRelations)
}

func TestExtractEmptyDocument(t *testing.T) {
	rels, flags := NewExtractor(DefaultVocabulary(), 0.3, nil).Extract(normalize.Normalize(""), nil)
	assert.Empty(t, rels)
	assert.Empty(t, flags)
}
