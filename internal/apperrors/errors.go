// Package apperrors defines the error taxonomy shared by the services and the
// HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/emilythestrangee/forum/backend/internal/repository"
)

// Type represents the category of error.
type Type string

const (
	// TypeValidation indicates invalid input (HTTP 400)
	TypeValidation Type = "validation"
	// TypeNotFound indicates a missing target, user or forum (HTTP 404)
	TypeNotFound Type = "not_found"
	// TypeConflict indicates a duplicate forum name, subscription or vote (HTTP 409)
	TypeConflict Type = "conflict"
	// TypeUnauthorized indicates the actor does not own the resource (HTTP 403)
	TypeUnauthorized Type = "unauthorized"
	// TypeStorage indicates an opaque storage failure (HTTP 500)
	TypeStorage Type = "storage"
)

// Error is a categorized error with a message safe to show to clients.
type Error struct {
	Type    Type
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the status code the request layer should respond with.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConflict:
		return http.StatusConflict
	case TypeUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Response is the JSON body sent to clients.
type Response struct {
	Error string `json:"error"`
	Type  Type   `json:"type"`
}

func (e *Error) ToResponse() Response {
	return Response{Error: e.Message, Type: e.Type}
}

func Validation(message string) *Error {
	return &Error{Type: TypeValidation, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Type: TypeNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Type: TypeConflict, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Type: TypeUnauthorized, Message: message}
}

func Storage(cause error) *Error {
	return &Error{Type: TypeStorage, Message: "internal server error", Cause: cause}
}

// FromRepository classifies an error returned by a repository. Missing rows
// become NotFound with the given message, duplicates become Conflict, and
// anything else is an opaque storage failure. A nil err yields a nil error
// interface.
func FromRepository(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return &Error{Type: TypeNotFound, Message: notFound, Cause: err}
	case errors.Is(err, repository.ErrDuplicate):
		return &Error{Type: TypeConflict, Message: "resource already exists", Cause: err}
	default:
		return Storage(err)
	}
}

// As converts any error into an *Error, wrapping unknown errors as storage failures.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Storage(err)
}

// Is reports whether err carries the given type.
func Is(err error, t Type) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Type == t
}
