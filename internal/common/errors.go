package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors. Extraction and render failures are surfaced to
// the calling channel and never retried inside the core.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrDocumentFormat = errors.New("document is not parseable")
	ErrInvalidURL     = errors.New("invalid url")
	ErrRenderTimeout  = errors.New("page render timed out")
	ErrAuthRequired   = errors.New("page requires authentication")
	ErrEmptyRender    = errors.New("rendered page produced an empty document")
	ErrCacheExpired   = errors.New("cached document expired or missing")
	ErrDuplicateClick = errors.New("document is already being processed")
	ErrInternal       = errors.New("internal error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ErrorCategory maps an error to the machine-checkable category carried in
// API error responses.
func ErrorCategory(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidURL):
		return "bad_input"
	case errors.Is(err, ErrDocumentFormat):
		return "extraction_failure"
	case errors.Is(err, ErrRenderTimeout), errors.Is(err, ErrAuthRequired), errors.Is(err, ErrEmptyRender):
		return "render_failure"
	default:
		return "validation_failure"
	}
}

// HTTPStatus maps an error to the HTTP status the API channel responds with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, ErrDocumentFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrRenderTimeout), errors.Is(err, ErrAuthRequired), errors.Is(err, ErrEmptyRender):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
