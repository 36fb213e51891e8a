package relation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/epfo-tools/case-engine/constants"
)

// Vocabulary holds the trigger phrases per predicate. It is data, not
// code: deployments tune it with a YAML override file instead of
// patching pattern branches.
type Vocabulary struct {
	Directive   []string `yaml:"directive"`
	Failure     []string `yaml:"failure"`
	Consequence []string `yaml:"consequence"`
}

// DefaultVocabulary is the built-in trigger set for EPF orders.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Directive: []string{
			"directed to submit",
			"directed to appear",
			"directed to produce",
			"instructed to",
			"ordered to produce",
			"requested to submit",
		},
		Failure: []string{
			"failed to comply",
			"failed to submit",
			"failed to appear",
			"failed to produce",
			"did not submit",
			"did not appear",
			"non-submission of",
			"non-production of",
		},
		Consequence: []string{
			"therefore",
			"hence",
			"consequently",
			"proceeded to",
			"penalty imposed",
			"penalty levied",
			"penalty was imposed",
			"default assessment was applied",
			"liable to pay",
		},
	}
}

// LoadVocabulary reads a YAML override file. Predicates left empty in
// the file keep their built-in triggers.
func LoadVocabulary(path string) (Vocabulary, error) {
	v := DefaultVocabulary()
	data, err := os.ReadFile(path)
	if err != nil {
		return v, fmt.Errorf("load vocabulary %q: %w", path, err)
	}
	var override Vocabulary
	if err := yaml.Unmarshal(data, &override); err != nil {
		return v, fmt.Errorf("parse vocabulary %q: %w", path, err)
	}
	if len(override.Directive) > 0 {
		v.Directive = override.Directive
	}
	if len(override.Failure) > 0 {
		v.Failure = override.Failure
	}
	if len(override.Consequence) > 0 {
		v.Consequence = override.Consequence
	}
	return v, nil
}

type trigger struct {
	phrase    string
	predicate constants.Predicate
}

// triggers flattens the vocabulary in a fixed predicate order so
// extraction output is deterministic.
func (v Vocabulary) triggers() []trigger {
	var out []trigger
	for _, p := range v.Directive {
		out = append(out, trigger{p, constants.PredicateDirective})
	}
	for _, p := range v.Failure {
		out = append(out, trigger{p, constants.PredicateFailure})
	}
	for _, p := range v.Consequence {
		out = append(out, trigger{p, constants.PredicateConsequence})
	}
	return out
}
