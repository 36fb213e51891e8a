// Package pipeline coordinates one document's extraction run:
// normalize, then the three extractors over the shared immutable
// document, then classification.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/epfo-tools/case-engine/constants"
	"github.com/epfo-tools/case-engine/internal/classify"
	"github.com/epfo-tools/case-engine/internal/common"
	"github.com/epfo-tools/case-engine/internal/entity"
	"github.com/epfo-tools/case-engine/internal/normalize"
	"github.com/epfo-tools/case-engine/internal/relation"
	"github.com/epfo-tools/case-engine/internal/schedule"
	"github.com/epfo-tools/case-engine/internal/timeline"
)

// ProcessRequest carries everything one extraction run needs. Raw text
// and entity spans come from upstream OCR/NER; Meta is optional
// external-parser output.
type ProcessRequest struct {
	DocumentID string
	RawText    string
	Entities   []entity.EntitySpan
	Meta       *entity.Metadata
}

// Processor runs the extraction core for single documents. It holds no
// per-document state: one instance serves all workers.
type Processor struct {
	logger     *slog.Logger
	schedule   *schedule.Parser
	timeline   *timeline.Extractor
	relation   *relation.Extractor
	classifier *classify.Classifier
}

func NewProcessor(cfg common.ExtractionConfig, vocab relation.Vocabulary, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:     logger,
		schedule:   schedule.NewParser(cfg.ReconciliationTolerance, logger),
		timeline:   timeline.NewExtractor(cfg.ContextWindow, logger),
		relation:   relation.NewExtractor(vocab, cfg.LowConfidenceFloor, logger),
		classifier: classify.NewClassifier(cfg.FailureConfidenceFloor),
	}
}

// Process builds the case record for one document. Empty input is the
// only fatal condition; every text-quality problem degrades to a
// quality flag on the returned record. A canceled context aborts this
// document only, committing nothing.
func (p *Processor) Process(ctx context.Context, req ProcessRequest) (*entity.CaseRecord, error) {
	if strings.TrimSpace(req.RawText) == "" {
		return nil, common.NewAppError("EMPTY_INPUT", "document has no text", common.ErrEmptyInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := normalize.Normalize(req.RawText)
	p.logger.Debug("normalized document", "document_id", req.DocumentID, "lines", len(doc.Lines))

	flags := constants.NewFlagSet()
	meta := entity.Metadata{}
	if req.Meta != nil {
		meta = *req.Meta
	} else {
		meta = ParseMetadata(doc)
		if meta.CaseID != "" || meta.OrderDate != nil {
			flags.Add(constants.FlagMetadataInferred)
		}
	}

	// The three extractors only read the shared immutable document and
	// span set, so they run concurrently.
	var (
		wg            sync.WaitGroup
		ledger        entity.FinancialLedger
		ledgerFlags   []constants.QualityFlag
		events        []entity.HearingEvent
		eventFlags    []constants.QualityFlag
		relations     []entity.Relation
		relationFlags []constants.QualityFlag
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		ledger, ledgerFlags = p.schedule.Parse(doc)
	}()
	go func() {
		defer wg.Done()
		events, eventFlags = p.timeline.Extract(doc)
	}()
	go func() {
		defer wg.Done()
		relations, relationFlags = p.relation.Extract(doc, req.Entities)
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	flags.Merge(ledgerFlags)
	flags.Merge(eventFlags)
	flags.Merge(relationFlags)

	docType, outcome := p.classifier.Classify(meta, ledger, relations)

	rec := &entity.CaseRecord{
		DocumentID:        req.DocumentID,
		DocumentType:      docType,
		Ledger:            ledger,
		Timeline:          events,
		Relations:         relations,
		ComplianceOutcome: outcome,
		QualityFlags:      flags.Sorted(),
	}
	p.logger.Info("processed document",
		"document_id", req.DocumentID,
		"document_type", docType,
		"outcome", outcome,
		"rows", len(ledger.Rows),
		"events", len(events),
		"relations", len(relations),
		"flags", len(rec.QualityFlags),
	)
	return rec, nil
}
