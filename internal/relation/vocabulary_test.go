package relation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultVocabularyCoversAllPredicates(t *testing.T) {
	v := DefaultVocabulary()
	assert.NotEmpty(t, v.Directive)
	assert.NotEmpty(t, v.Failure)
	assert.NotEmpty(t, v.Consequence)
}

func TestLoadVocabularyOverridesListedPredicates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	content := "failure:\n  - neglected to remit\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v, err := LoadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"neglected to remit"}, v.Failure)
	// untouched predicates keep their defaults
	assert.Equal(t, DefaultVocabulary().Directive, v.Directive)
	assert.Equal(t, DefaultVocabulary().Consequence, v.Consequence)
}

func TestLoadVocabularyMissingFileFallsBack(t *testing.T) {
	v, err := LoadVocabulary(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	// defaults still usable despite the error
	assert.Equal(t, DefaultVocabulary(), v)
}
