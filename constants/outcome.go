package constants

// ComplianceOutcome is the classifier's verdict for a case document.
type ComplianceOutcome string

const (
	OutcomeCompliant    ComplianceOutcome = "COMPLIANT"
	OutcomeNonCompliant ComplianceOutcome = "NON_COMPLIANT"
	OutcomeUndetermined ComplianceOutcome = "UNDETERMINED"
)

// EventKind classifies a hearing timeline entry.
type EventKind string

const (
	EventHearing     EventKind = "HEARING"
	EventAdjournment EventKind = "ADJOURNMENT"
	EventOrder       EventKind = "ORDER"
	EventUnknown     EventKind = "UNKNOWN"
)

// Predicate is the relation class between an actor and an object.
type Predicate string

const (
	PredicateDirective   Predicate = "DIRECTIVE"   // officer instructs the establishment
	PredicateFailure     Predicate = "FAILURE"     // establishment fails to comply
	PredicateConsequence Predicate = "CONSEQUENCE" // resulting action (penalty, default assessment)
)
