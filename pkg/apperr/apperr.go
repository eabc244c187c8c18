// Package apperr classifies request failures so the HTTP layer can render
// them uniformly. Lower layers return plain wrapped errors; the components
// that own a decision (resolver, applier, extractor, store) wrap them in an
// *Error carrying a Kind.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for rendering.
type Kind int

const (
	// Internal is any unclassified failure
	Internal Kind = iota
	// BadRequest covers missing fields, malformed extraction output and malformed queries
	BadRequest
	// NotFound covers entity resolution misses and unknown URIs
	NotFound
	// Conflict is returned when a create targets an existing entity
	Conflict
	// OracleUnavailable means no text-generation service is configured or reachable
	OracleUnavailable
	// PersistenceFailure means the serialize/reload round trip failed
	PersistenceFailure
	// Unrecognized means neither the classifier nor the fallback table matched
	Unrecognized
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case BadRequest:
		return "bad_request"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case OracleUnavailable:
		return "oracle_unavailable"
	case PersistenceFailure:
		return "persistence_failure"
	case Unrecognized:
		return "unrecognized"
	default:
		return "internal"
	}
}

// Error is a classified failure with a human readable message and an
// optional suggested correction.
type Error struct {
	Kind       Kind
	Message    string
	Suggestion string
	Err        error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// WithSuggestion returns a copy of e carrying a suggestion string.
func (e *Error) WithSuggestion(s string) *Error {
	c := *e
	c.Suggestion = s
	return &c
}

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. The message defaults to err's message.
func Wrap(kind Kind, err error, message string) *Error {
	if err == nil {
		return nil
	}
	if message == "" {
		message = err.Error()
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// SuggestionOf returns the suggestion attached to err, if any.
func SuggestionOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Suggestion
	}
	return ""
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus maps a Kind to the response status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case BadRequest, Unrecognized:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case OracleUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
