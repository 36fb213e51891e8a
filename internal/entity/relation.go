package entity

import "github.com/epfo-tools/case-engine/constants"

// Relation is one extracted cause-effect assertion: an actor, a
// predicate class, and the object it acts on. Relations are
// independent assertions, not a dependency graph.
type Relation struct {
	Actor          string
	Predicate      constants.Predicate
	Object         string
	SupportingLine int
	// Confidence is derived from span distance at extraction time.
	// Filtering by confidence is a downstream decision.
	Confidence float64
}
