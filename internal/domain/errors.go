package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies business-rule failures so the HTTP boundary can map
// them to a status code without inspecting messages.
type ErrorKind int

const (
	ErrUnauthorized ErrorKind = iota
	ErrNotFound
	ErrInvalidState
	ErrInvalidOperation
	ErrInvalidInput
	ErrInternal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnauthorized:
		return "unauthorized"
	case ErrNotFound:
		return "not_found"
	case ErrInvalidState:
		return "invalid_state"
	case ErrInvalidOperation:
		return "invalid_operation"
	case ErrInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// Error is a business-rule violation carrying its kind and, for input
// validation failures, field-level detail.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewValidationError builds an InvalidInput error with per-field detail.
func NewValidationError(message string, fields map[string]string) *Error {
	return &Error{Kind: ErrInvalidInput, Message: message, Fields: fields}
}

// KindOf extracts the kind from err, treating anything that is not a
// *domain.Error as internal.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrInternal
}
