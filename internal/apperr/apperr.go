// Package apperr classifies failures into the categories surfaced to users:
// auth, profile, validation and backend, plus the not-found, conflict and
// forbidden refinements used by the HTTP layers.
package apperr

import (
	"net/http"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindAuth       Kind = "auth"
	KindProfile    Kind = "profile"
	KindValidation Kind = "validation"
	KindBackend    Kind = "backend"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindForbidden  Kind = "forbidden"
)

type Error struct {
	Kind    Kind
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Auth(message string, err error) *Error {
	return &Error{Kind: KindAuth, Message: message, Err: err}
}

func Profile(message string, err error) *Error {
	return &Error{Kind: KindProfile, Message: message, Err: err}
}

func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// Backend wraps err with a stack trace and the failing operation name.
func Backend(op string, err error) *Error {
	return &Error{Kind: KindBackend, Message: op, Err: errors.WithStack(err)}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(field, message string) *Error {
	return &Error{Kind: KindConflict, Field: field, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// KindOf reports the kind of the first *Error in err's chain. Unclassified
// errors are backend failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindBackend
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FieldOf returns the form field an error refers to, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// Message is the user-facing text for err. Backend details stay in the logs.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindBackend {
		return "Something went wrong, please try again"
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error()
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuth:
		return http.StatusUnauthorized
	case KindProfile, KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
