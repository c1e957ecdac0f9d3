package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// Sentinel errors for the common failure classes.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
)

// AppError is a structured application error with an HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource string, id int64) *AppError {
	return &AppError{
		Code:    "not_found",
		Message: fmt.Sprintf("%s with id %d not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "invalid_input",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Internal creates a 500 error. The wrapped cause is kept for logging but is
// never rendered to the client.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "internal_error",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// ValidationError carries per-field validation failures together with the
// original input, so the client can re-render the submitted form.
type ValidationError struct {
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
	Data    any               `json:"data,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation_error: %s (%d field(s))", e.Message, len(e.Details))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Validation builds a ValidationError from a field error map. The top-level
// message is the first failing field's message in field-name order, so the
// same input always produces the same error.
func Validation(details map[string]string, data any) *ValidationError {
	msg := "validation failed"
	if len(details) > 0 {
		fields := make([]string, 0, len(details))
		for f := range details {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		msg = details[fields[0]]
	}
	return &ValidationError{
		Message: msg,
		Details: details,
		Data:    data,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
