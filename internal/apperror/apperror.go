// Package apperror is the error taxonomy shared by services, repositories and
// the HTTP layer.
package apperror

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindInvalidArgument   Kind = "invalid_argument"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInsufficientStock Kind = "insufficient_stock"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindInfrastructure    Kind = "infrastructure"
)

type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. The message is what callers see; err is
// kept for logs.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithDetail returns e with key set in its details.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

func Validation(message string) *Error { return New(KindValidation, message) }

func InvalidArgument(message string) *Error { return New(KindInvalidArgument, message) }

func NotFound(message string) *Error { return New(KindNotFound, message) }

func Conflict(message string) *Error { return New(KindConflict, message) }

func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }

func Forbidden(message string) *Error { return New(KindForbidden, message) }

func Infrastructure(err error, message string) *Error {
	return Wrap(KindInfrastructure, err, message)
}

// KindOf classifies err. Errors outside the taxonomy are infrastructure
// failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInfrastructure
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindInsufficientStock:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusServiceUnavailable
	}
}
