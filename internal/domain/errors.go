package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnavailable      = "UNAVAILABLE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrEmptyDocument        = NewDomainError(ErrCodeValidation, "document text is empty or whitespace-only")
	ErrInvalidChunkParams   = NewDomainError(ErrCodeValidation, "overlap must be >= 0 and < chunk size")
	ErrUnsupportedFileType  = NewDomainError(ErrCodeValidation, "unsupported file type")
	ErrFileTooLarge         = NewDomainError(ErrCodeValidation, "file exceeds maximum allowed size")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrQueryNotFound    = NewDomainError(ErrCodeNotFound, "query not found")
)

// Index errors
var (
	ErrDimensionMismatch        = NewDomainError(ErrCodeValidation, "embedding dimension does not match index dimension")
	ErrEmbeddingVersionMismatch = NewDomainError(ErrCodeInvalidOperation, "embedding model version does not match index, rebuild required")
	ErrIndexCorrupted           = NewDomainError(ErrCodeInternalError, "index snapshot is corrupt, rebuild from source documents required")
	ErrIngestionInFlight        = NewDomainError(ErrCodeInvalidOperation, "ingestion already in flight for this document")
	ErrBatchClosed              = NewDomainError(ErrCodeInvalidOperation, "batch already committed or discarded")
)

// External service errors (transient)
var (
	ErrEmbeddingService  = NewDomainError(ErrCodeUnavailable, "embedding service request failed")
	ErrGenerationService = NewDomainError(ErrCodeUnavailable, "generation service request failed")
)
