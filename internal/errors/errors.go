package errors

import (
	"errors"
	"fmt"
)

// Domain-specific error types
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateEntry indicates a unique constraint violation.
	// For articles this is the "already exists" outcome, not a failure.
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrArticleNotFound indicates the article was not found
	ErrArticleNotFound = errors.New("article not found")

	// ErrNewsletterNotFound indicates the newsletter was not found
	ErrNewsletterNotFound = errors.New("newsletter not found")

	// ErrArchiveNotFound indicates the archived email was not found
	ErrArchiveNotFound = errors.New("archived email not found")

	// ErrExtractionFailed indicates both content extraction stages yielded no body
	ErrExtractionFailed = errors.New("content extraction failed")

	// ErrSummarizationFailed indicates the summarization provider failed after retries
	ErrSummarizationFailed = errors.New("summarization failed")

	// ErrTransport indicates a mail send or fetch failure
	ErrTransport = errors.New("mail transport failure")

	// ErrPersistence indicates a storage write failure
	ErrPersistence = errors.New("persistence failure")

	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal server error")
)

// Error codes for API responses
const (
	CodeNotFound            = "NOT_FOUND"
	CodeDuplicateEntry      = "DUPLICATE_ENTRY"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeExtractionFailed    = "EXTRACTION_FAILED"
	CodeSummarizationFailed = "SUMMARIZATION_FAILED"
	CodeTransportFailure    = "TRANSPORT_FAILURE"
	CodePersistenceFailure  = "PERSISTENCE_FAILURE"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodePayloadTooLarge     = "PAYLOAD_TOO_LARGE"
	CodeInternalError       = "INTERNAL_ERROR"
)

// AppError represents an application error with context
type AppError struct {
	Err     error
	Message string
	Code    string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(err error, message string, code string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// StageError records which pipeline stage failed for which resource, so a
// failed background unit can be located and replayed by hand.
type StageError struct {
	Stage      string
	Identifier string
	Err        error
}

// Error implements the error interface
func (e *StageError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Stage, e.Identifier, e.Err)
}

// Unwrap returns the underlying error
func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError creates a StageError
func NewStageError(stage, identifier string, err error) *StageError {
	return &StageError{Stage: stage, Identifier: identifier, Err: err}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrArticleNotFound) ||
		errors.Is(err, ErrNewsletterNotFound) ||
		errors.Is(err, ErrArchiveNotFound)
}

// IsDuplicateEntry checks if the error is a duplicate entry error
func IsDuplicateEntry(err error) bool {
	return errors.Is(err, ErrDuplicateEntry)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// GetErrorCode returns the appropriate error code for an error
func GetErrorCode(err error) string {
	switch {
	case IsNotFound(err):
		return CodeNotFound
	case IsDuplicateEntry(err):
		return CodeDuplicateEntry
	case IsInvalidInput(err):
		return CodeInvalidInput
	case errors.Is(err, ErrExtractionFailed):
		return CodeExtractionFailed
	case errors.Is(err, ErrSummarizationFailed):
		return CodeSummarizationFailed
	case errors.Is(err, ErrTransport):
		return CodeTransportFailure
	case errors.Is(err, ErrPersistence):
		return CodePersistenceFailure
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	default:
		return CodeInternalError
	}
}
