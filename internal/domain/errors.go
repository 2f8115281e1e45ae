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
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeProvider      = "PROVIDER_ERROR"
	ErrCodeStore         = "STORE_ERROR"
	ErrCodeRerank        = "RERANK_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrMissingQuery       = NewDomainError(ErrCodeValidation, "query is required")
	ErrMissingPersonaSlug = NewDomainError(ErrCodeValidation, "persona_slug is required")
	ErrMissingSlug        = NewDomainError(ErrCodeValidation, "slug is required")
	ErrMissingName        = NewDomainError(ErrCodeValidation, "name is required")
	ErrInvalidSlug        = NewDomainError(ErrCodeValidation, "slug must be lowercase letters, digits, and hyphens")
)

// Not found errors
var (
	ErrPersonaNotFound  = NewDomainError(ErrCodeNotFound, "persona not found")
	ErrChunkNotFound    = NewDomainError(ErrCodeNotFound, "chunk not found")
	ErrChunkNoSourceDoc = NewDomainError(ErrCodeNotFound, "chunk has no source document")
)

// NewProviderError wraps an embedding provider failure. Retrieval for the
// call aborts; callers degrade to an ungrounded response.
func NewProviderError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeProvider, "embedding provider call failed", err)
}

// NewStoreError wraps a search backend failure. This is the one failure class
// the search endpoint surfaces as a hard error.
func NewStoreError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeStore, "search backend call failed", err)
}

// NewRerankError wraps a rerank provider failure. Never propagated past the
// reranker; the fallback path logs it and returns input order.
func NewRerankError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeRerank, "rerank provider call failed", err)
}
