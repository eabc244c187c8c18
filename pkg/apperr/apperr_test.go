package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ha1tch/ecotour/pkg/apperr"
)

func TestKindOfWrappedChain(t *testing.T) {
	base := apperr.New(apperr.NotFound, "entity %q not found", "Paul")
	wrapped := fmt.Errorf("resolve subject: %w", base)

	assert.Equal(t, apperr.NotFound, apperr.KindOf(wrapped))
	assert.True(t, apperr.Is(wrapped, apperr.NotFound))
	assert.False(t, apperr.Is(wrapped, apperr.Conflict))
	assert.Equal(t, apperr.Internal, apperr.KindOf(errors.New("plain")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := apperr.Wrap(apperr.PersistenceFailure, cause, "")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "disk full", err.Error())
	assert.Nil(t, apperr.Wrap(apperr.Internal, nil, "ignored"))
}

func TestSuggestion(t *testing.T) {
	err := apperr.New(apperr.BadRequest, "bad").WithSuggestion("try again")
	assert.Equal(t, "try again", apperr.SuggestionOf(fmt.Errorf("x: %w", err)))
	assert.Empty(t, apperr.SuggestionOf(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.BadRequest:         http.StatusBadRequest,
		apperr.Unrecognized:       http.StatusBadRequest,
		apperr.NotFound:           http.StatusNotFound,
		apperr.Conflict:           http.StatusConflict,
		apperr.OracleUnavailable:  http.StatusServiceUnavailable,
		apperr.PersistenceFailure: http.StatusInternalServerError,
		apperr.Internal:           http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, apperr.HTTPStatus(kind), kind.String())
	}
}
