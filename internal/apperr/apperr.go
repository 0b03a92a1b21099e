package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kinds. Handlers map these onto HTTP status codes at the boundary.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Unwrap() error { return e.kind }

func Unauthorized(msg string) error { return &Error{kind: ErrUnauthorized, msg: msg} }
func Forbidden(msg string) error    { return &Error{kind: ErrForbidden, msg: msg} }
func BadRequest(msg string) error   { return &Error{kind: ErrBadRequest, msg: msg} }
func NotFound(msg string) error     { return &Error{kind: ErrNotFound, msg: msg} }
func Conflict(msg string) error     { return &Error{kind: ErrConflict, msg: msg} }

func BadRequestf(format string, args ...any) error {
	return &Error{kind: ErrBadRequest, msg: fmt.Sprintf(format, args...)}
}

// StatusCode maps an error to its HTTP status. Anything unrecognized is a 500.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// FieldError carries field-level validation detail for form correction.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
}
