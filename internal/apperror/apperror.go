// Package apperror defines the error taxonomy shared by the workflow engine
// and its HTTP surface.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error
type Kind string

const (
	KindValidation       Kind = "validation"
	KindNotFound         Kind = "not_found"
	KindPermissionDenied Kind = "permission_denied"
	KindConflict         Kind = "conflict"
	KindTransport        Kind = "transport"
)

// Sentinels usable with errors.Is
var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrTransport        = &Error{Kind: KindTransport}
)

// FieldError describes a single offending input field
type FieldError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error is the concrete error returned by services
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Details []FieldError
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Validation reports malformed or missing input on field
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// ValidationFields builds a validation error from a list of field errors.
// The first field becomes the headline field.
func ValidationFields(fields []FieldError) *Error {
	if len(fields) == 0 {
		return Validation("", "invalid input")
	}
	return &Error{
		Kind:    KindValidation,
		Field:   fields[0].Field,
		Message: fields[0].Message,
		Details: fields,
	}
}

func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %q not found", resource, id)}
}

func PermissionDenied(message string) *Error {
	return &Error{Kind: KindPermissionDenied, Message: message}
}

// Conflict reports an invariant violation
func Conflict(field, message string) *Error {
	return &Error{Kind: KindConflict, Field: field, Message: message}
}

// Transport wraps a collaborator failure (database, blob store)
func Transport(collaborator string, err error) *Error {
	return &Error{Kind: KindTransport, Message: collaborator + " unavailable", Err: err}
}

// KindOf returns the kind of err, or "" when err is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKnown reports whether err already belongs to the taxonomy
func IsKnown(err error) bool {
	return KindOf(err) != ""
}
