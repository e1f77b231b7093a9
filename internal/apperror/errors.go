// Package apperror defines the failure taxonomy shared by the camera registry,
// the snapshot pipeline and their HTTP surface.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can choose between "fix your input",
// "already exists", "not found" and "try again later".
type Kind string

const (
	KindValidation  Kind = "validation"
	KindConflict    Kind = "conflict"
	KindNotFound    Kind = "not_found"
	KindStorage     Kind = "storage"
	KindPersistence Kind = "persistence"
	KindUnknown     Kind = "unknown"
)

// Error is a classified failure. Op names the step that failed.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports malformed or missing input.
func Validation(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a uniqueness violation.
func Conflict(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a reference to a nonexistent identifier.
func NotFound(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Storage reports a failure of the external blob store.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Op: op, Message: "object store failure", Err: err}
}

// Persistence reports a failure of the external metadata store.
func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Op: op, Message: "metadata store failure", Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsValidation(err error) bool  { return KindOf(err) == KindValidation }
func IsConflict(err error) bool    { return KindOf(err) == KindConflict }
func IsNotFound(err error) bool    { return KindOf(err) == KindNotFound }
func IsStorage(err error) bool     { return KindOf(err) == KindStorage }
func IsPersistence(err error) bool { return KindOf(err) == KindPersistence }

// HTTPStatus maps a kind onto the status code returned by the API.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindStorage:
		return http.StatusBadGateway
	case KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ParseKind converts the wire form of a kind back into a Kind.
// Unrecognised values map to KindUnknown.
func ParseKind(s string) Kind {
	switch k := Kind(s); k {
	case KindValidation, KindConflict, KindNotFound, KindStorage, KindPersistence:
		return k
	default:
		return KindUnknown
	}
}
