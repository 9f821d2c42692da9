// Package apperror defines the error kinds shared by the domain services.
// Handlers translate kinds to HTTP status codes; services never inspect
// error text, only kinds.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain error.
type Kind int

const (
	// KindNotFound means a referenced entity does not exist.
	KindNotFound Kind = iota
	// KindPreconditionFailed means a business rule was violated
	// (duplicate relationship or request, wrong role, caller not the
	// addressed party).
	KindPreconditionFailed
	// KindUnauthorized means the caller does not own the addressed resource.
	KindUnauthorized
	// KindBadRequest means the input is malformed (bad date format etc.).
	KindBadRequest
	// KindConflict means a concurrent update won; the operation may be retried.
	KindConflict
)

// Error is a domain error with a kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so errors.Is(err, NotFound("")) style checks work
// against the package-level sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrPreconditionFailed = &Error{Kind: KindPreconditionFailed, Message: "precondition failed"}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrBadRequest         = &Error{Kind: KindBadRequest, Message: "bad request"}
	ErrConflict           = &Error{Kind: KindConflict, Message: "conflict"}
)

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func PreconditionFailed(format string, args ...interface{}) *Error {
	return &Error{Kind: KindPreconditionFailed, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...interface{}) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...interface{}) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a kinded error.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsNotFound reports whether err carries the NotFound kind.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsUnauthorized reports whether err carries the Unauthorized kind.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// HTTPStatus maps an error to the status code the API reports. Unrecognized
// errors map to 500.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindPreconditionFailed:
		return http.StatusPreconditionFailed
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
