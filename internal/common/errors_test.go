package common

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorUnwrapsToSentinel(t *testing.T) {
	err := NewAppError("EMPTY_INPUT", "document has no text", ErrEmptyInput)
	assert.True(t, errors.Is(err, ErrEmptyInput))
	assert.Contains(t, err.Error(), "EMPTY_INPUT")
	assert.Contains(t, err.Error(), "document has no text")
}

func TestWrapErrorPreservesChain(t *testing.T) {
	assert.Nil(t, WrapError(nil, "no-op"))

	wrapped := WrapError(ErrDatabase, "insert case")
	assert.True(t, errors.Is(wrapped, ErrDatabase))
	assert.Contains(t, wrapped.Error(), "insert case")
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrEmptyInput, http.StatusBadRequest},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrNotFound, http.StatusNotFound},
		{ErrInternal, http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
		{NewAppError("CASE_NOT_FOUND", "no case", ErrNotFound), http.StatusNotFound},
		{WrapError(NewAppError("X", "y", ErrEmptyInput), "outer"), http.StatusBadRequest},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err))
	}
}
