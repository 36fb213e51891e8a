// Package classify turns extraction outputs into a document type and
// compliance verdict. Pure rule evaluation; no text scanning.
package classify

import (
	"github.com/epfo-tools/case-engine/constants"
	"github.com/epfo-tools/case-engine/internal/entity"
)

// Classifier evaluates the classification rules. Same inputs always
// yield the same outputs.
type Classifier struct {
	failureFloor float64
}

func NewClassifier(failureFloor float64) *Classifier {
	return &Classifier{failureFloor: failureFloor}
}

// Classify determines document type and compliance outcome.
//
// Document type comes from the case-ID pattern when metadata carries
// one. Otherwise a non-empty ledger indicates a 7A assessment order
// and CONSEQUENCE relations without a ledger indicate a 14B damages
// order; anything else stays UNKNOWN rather than guessing.
//
// Compliance checks failure first: one documented failure above the
// confidence floor dominates regardless of later directives.
func (c *Classifier) Classify(meta entity.Metadata, ledger entity.FinancialLedger, relations []entity.Relation) (constants.DocumentType, constants.ComplianceOutcome) {
	docType := constants.DocTypeFromCaseID(meta.CaseID)
	if docType == constants.DocTypeUnknown {
		docType = inferType(ledger, relations)
	}
	return docType, c.outcome(relations)
}

func inferType(ledger entity.FinancialLedger, relations []entity.Relation) constants.DocumentType {
	if !ledger.Empty() {
		return constants.DocType7A
	}
	for _, r := range relations {
		if r.Predicate == constants.PredicateConsequence {
			return constants.DocType14B
		}
	}
	return constants.DocTypeUnknown
}

func (c *Classifier) outcome(relations []entity.Relation) constants.ComplianceOutcome {
	anyFailure := false
	anyDirective := false
	for _, r := range relations {
		switch r.Predicate {
		case constants.PredicateFailure:
			anyFailure = true
			if r.Confidence >= c.failureFloor {
				return constants.OutcomeNonCompliant
			}
		case constants.PredicateDirective:
			anyDirective = true
		}
	}
	if anyDirective && !anyFailure {
		return constants.OutcomeCompliant
	}
	return constants.OutcomeUndetermined
}
