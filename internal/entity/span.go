package entity

// EntityType tags an externally supplied NER span.
type EntityType string

const (
	EntityJudge         EntityType = "JUDGE"
	EntityEstablishment EntityType = "ESTABLISHMENT"
	EntityAmount        EntityType = "AMOUNT"
	EntityDate          EntityType = "DATE"
	EntityOther         EntityType = "OTHER"
)

// EntitySpan is one span produced by the upstream NER step. Offsets are
// character positions into the flattened normalized text. Spans are
// read-only input; the core never edits or re-scores them.
type EntitySpan struct {
	Type       EntityType `json:"type"`
	Text       string     `json:"text"`
	Start      int        `json:"start"`
	End        int        `json:"end"`
	Confidence float64    `json:"confidence"`
}
