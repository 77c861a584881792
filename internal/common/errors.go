package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors with a machine-readable code.
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

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")

	// ErrQuotaExceeded marks extraction-model quota/rate-limit exhaustion.
	// Orchestrators stop issuing further model calls for the batch when they
	// see it, but still return the statistics accumulated so far.
	ErrQuotaExceeded = errors.New("extraction quota exceeded")

	// ErrInvalidAPIKey marks rejected model credentials. Fatal to the whole
	// batch: retrying other files cannot succeed.
	ErrInvalidAPIKey = errors.New("invalid api key")

	// ErrNoText marks a document with no extractable text (scanned PDF,
	// empty attachment). Callers classify the file as skipped.
	ErrNoText = errors.New("no extractable text")

	// ErrMissingRequired marks an extraction missing load_id, broker_name or
	// rate_total.
	ErrMissingRequired = errors.New("missing required fields")
)

// Machine-readable codes surfaced to API callers.
const (
	CodeQuotaExceeded   = "quota_exceeded"
	CodeInvalidAPIKey   = "invalid_api_key"
	CodeNoText          = "no_text"
	CodeMissingRequired = "missing_required"
	CodeStoreFailure    = "store_failure"
)

// NewAppError constructs an AppError.
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

// ErrorCode maps an error to its machine-readable code for API responses.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		return CodeQuotaExceeded
	case errors.Is(err, ErrInvalidAPIKey):
		return CodeInvalidAPIKey
	case errors.Is(err, ErrNoText):
		return CodeNoText
	case errors.Is(err, ErrMissingRequired):
		return CodeMissingRequired
	case errors.Is(err, ErrDatabase):
		return CodeStoreFailure
	default:
		var app *AppError
		if errors.As(err, &app) {
			return app.Code
		}
		return "internal"
	}
}
