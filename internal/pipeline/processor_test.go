package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epfo-tools/case-engine/constants"
	"github.com/epfo-tools/case-engine/internal/common"
	"github.com/epfo-tools/case-engine/internal/entity"
	"github.com/epfo-tools/case-engine/internal/normalize"
	"github.com/epfo-tools/case-engine/internal/relation"
)

func testConfig() common.ExtractionConfig {
	return common.ExtractionConfig{
		ReconciliationTolerance: 1.0,
		FailureConfidenceFloor:  0.4,
		LowConfidenceFloor:      0.3,
		ContextWindow:           300,
	}
}

const sampleOrder = "Case ID: 7A/RO-DEL/2021/0042\n" +
	"Order Date: 15-03-2021\n" +
	"A/C 1 EE: 500 ER: 500 Admin: 20 Total: 1020\n" +
	"15-03-2021 hearing held. Establishment X failed to submit Form 5A."

// spanFor locates text in the flattened normalized document and returns
// a matching entity span.
func spanFor(t *testing.T, raw, needle string, typ entity.EntityType) entity.EntitySpan {
	t.Helper()
	text, _ := normalize.Normalize(raw).Flatten()
	start := strings.Index(text, needle)
	require.GreaterOrEqual(t, start, 0, needle)
	return entity.EntitySpan{Type: typ, Text: needle, Start: start, End: start + len(needle), Confidence: 0.9}
}

func TestProcessEndToEnd(t *testing.T) {
	p := NewProcessor(testConfig(), relation.DefaultVocabulary(), nil)
	req := ProcessRequest{
		DocumentID: "doc-1",
		RawText:    sampleOrder,
		Entities:   []entity.EntitySpan{spanFor(t, sampleOrder, "Establishment X", entity.EntityEstablishment)},
	}

	rec, err := p.Process(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "doc-1", rec.DocumentID)
	assert.Equal(t, constants.DocType7A, rec.DocumentType)
	assert.Equal(t, constants.OutcomeNonCompliant, rec.ComplianceOutcome)

	require.Len(t, rec.Ledger.Rows, 1)
	assert.Equal(t, 1020.0, rec.Ledger.GrandTotal)
	assert.True(t, rec.Ledger.Reconciled)

	require.Len(t, rec.Relations, 1)
	assert.Equal(t, constants.PredicateFailure, rec.Relations[0].Predicate)
	assert.Equal(t, "Establishment X", rec.Relations[0].Actor)
	assert.Equal(t, "Form 5A", rec.Relations[0].Object)

	require.NotEmpty(t, rec.Timeline)
	kinds := make([]constants.EventKind, 0, len(rec.Timeline))
	for _, ev := range rec.Timeline {
		kinds = append(kinds, ev.Kind)
	}
	assert.Contains(t, kinds, constants.EventHearing)

	// case id came from the header scan, not an external parser
	assert.Contains(t, rec.QualityFlags, constants.FlagMetadataInferred)
}

func TestProcessEmptyInputFails(t *testing.T) {
	p := NewProcessor(testConfig(), relation.DefaultVocabulary(), nil)

	for _, text := range []string{"", "   \n\t  "} {
		rec, err := p.Process(context.Background(), ProcessRequest{DocumentID: "doc-1", RawText: text})
		assert.Nil(t, rec)
		assert.True(t, errors.Is(err, common.ErrEmptyInput))
	}
}

func TestProcessCanceledContext(t *testing.T) {
	p := NewProcessor(testConfig(), relation.DefaultVocabulary(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec, err := p.Process(ctx, ProcessRequest{DocumentID: "doc-1", RawText: sampleOrder})
	assert.Nil(t, rec)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestProcessExternalMetadataWins(t *testing.T) {
	p := NewProcessor(testConfig(), relation.DefaultVocabulary(), nil)
	req := ProcessRequest{
		DocumentID: "doc-1",
		RawText:    "The establishment was heard on 15-03-2021.",
		Meta:       &entity.Metadata{CaseID: "14B/RO-MUM/2020/0007"},
	}

	rec, err := p.Process(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, constants.DocType14B, rec.DocumentType)
	assert.NotContains(t, rec.QualityFlags, constants.FlagMetadataInferred)
}

func TestProcessIsDeterministic(t *testing.T) {
	p := NewProcessor(testConfig(), relation.DefaultVocabulary(), nil)
	req := ProcessRequest{
		DocumentID: "doc-1",
		RawText:    sampleOrder,
		Entities:   []entity.EntitySpan{spanFor(t, sampleOrder, "Establishment X", entity.EntityEstablishment)},
	}

	first, err := p.Process(context.Background(), req)
	require.NoError(t, err)
	second, err := p.Process(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseMetadataFromHeader(t *testing.T) {
	doc := normalize.Normalize("Case ID: 7A/RO-DEL/2021/0042\nOrder Date: 15-03-2021\nbody text")
	meta := ParseMetadata(doc)

	assert.Equal(t, "7A/RO-DEL/2021/0042", meta.CaseID)
	require.NotNil(t, meta.OrderDate)
	assert.Equal(t, time.Date(2021, time.March, 15, 0, 0, 0, 0, time.UTC), *meta.OrderDate)
}

func TestParseMetadataGarbledDateLeftUnset(t *testing.T) {
	doc := normalize.Normalize("Case ID: 14B/RO-MUM/2020/0007\nOrder Date: 31-02-2021")
	meta := ParseMetadata(doc)

	assert.Equal(t, "14B/RO-MUM/2020/0007", meta.CaseID)
	assert.Nil(t, meta.OrderDate)
}

func TestParseMetadataAbsentHeader(t *testing.T) {
	meta := ParseMetadata(normalize.Normalize("no headers anywhere"))
	assert.Equal(t, "", meta.CaseID)
	assert.Nil(t, meta.OrderDate)
}
