package entity

import (
	"time"

	"github.com/epfo-tools/case-engine/constants"
)

// Metadata is the optional external-parser output for a document.
type Metadata struct {
	CaseID    string
	OrderDate *time.Time
}

// CaseRecord is the aggregate result of one extraction run. It is
// created once by the pipeline and immutable afterwards; persistence
// and serialization are the caller's concern.
type CaseRecord struct {
	DocumentID        string
	DocumentType      constants.DocumentType
	Ledger            FinancialLedger
	Timeline          []HearingEvent
	Relations         []Relation
	ComplianceOutcome constants.ComplianceOutcome
	QualityFlags      []constants.QualityFlag
}
