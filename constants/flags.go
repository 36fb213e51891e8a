package constants

import "sort"

// QualityFlag marks a recovered text-quality problem on a case record.
// Flags degrade, they never abort: a flagged record is still a full record.
type QualityFlag string

// Stable values (serialized on the wire and stored in DB).
const (
	FlagReconciliationMismatch QualityFlag = "reconciliation_mismatch"
	FlagDeclaredTotalMismatch  QualityFlag = "declared_total_mismatch"
	FlagAmbiguousRow           QualityFlag = "ambiguous_row"
	FlagMissingDates           QualityFlag = "missing_dates"
	FlagLowConfidenceRelations QualityFlag = "low_confidence_relations"
	FlagMetadataInferred       QualityFlag = "metadata_inferred"
)

// FlagSet is an order-insensitive collection of quality flags.
type FlagSet map[QualityFlag]struct{}

func NewFlagSet(flags ...QualityFlag) FlagSet {
	s := make(FlagSet, len(flags))
	for _, f := range flags {
		s[f] = struct{}{}
	}
	return s
}

func (s FlagSet) Add(f QualityFlag) {
	s[f] = struct{}{}
}

func (s FlagSet) Merge(other []QualityFlag) {
	for _, f := range other {
		s[f] = struct{}{}
	}
}

func (s FlagSet) Has(f QualityFlag) bool {
	_, ok := s[f]
	return ok
}

// Sorted returns the flags as a deterministic slice for serialization.
func (s FlagSet) Sorted() []QualityFlag {
	out := make([]QualityFlag, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
