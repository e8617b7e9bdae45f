package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so the request boundary can pick a status code
// and a stable machine-readable code for the response body.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindConflict
	KindUpstream
	KindUpstreamTimeout
	KindPersistence
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Validation(msg string) *Error   { return New(KindValidation, msg) }
func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }

// KindOf extracts the kind from an error chain, defaulting to internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Code is the stable identifier exposed in error response bodies.
func Code(err error) string {
	switch KindOf(err) {
	case KindValidation:
		return "VALIDATION"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindUpstream:
		return "UPSTREAM"
	case KindUpstreamTimeout:
		return "UPSTREAM_TIMEOUT"
	case KindPersistence:
		return "PERSISTENCE"
	default:
		return "INTERNAL"
	}
}

func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message. Non-client errors stay opaque so
// internals never leak into responses.
func Message(err error) string {
	switch KindOf(err) {
	case KindValidation, KindUnauthorized, KindNotFound, KindConflict:
		var e *Error
		if errors.As(err, &e) {
			return e.Msg
		}
	case KindUpstream:
		return "payment provider unavailable"
	case KindUpstreamTimeout:
		return "payment provider timed out"
	}
	return "Internal server error."
}
