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

// Domain error codes. Parse and loop errors are fatal for their request;
// embedding and retrieval errors degrade gracefully at the call site.
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeParse           = "PARSE_ERROR"
	ErrCodeEmbedding       = "EMBEDDING_ERROR"
	ErrCodeSchemaViolation = "SCHEMA_VIOLATION"
	ErrCodeToolLoop        = "TOOL_LOOP_EXCEEDED"
	ErrCodeRetrievalEmpty  = "RETRIEVAL_EMPTY"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// Not found errors
var (
	ErrPatientNotFound = NewDomainError(ErrCodeNotFound, "patient not found")
	ErrSessionNotFound = NewDomainError(ErrCodeNotFound, "chat session not found")
)

// Ingestion errors
var (
	ErrDocumentParse   = NewDomainError(ErrCodeParse, "guideline document could not be parsed")
	ErrEmbeddingFailed = NewDomainError(ErrCodeEmbedding, "embedding generation failed after retries")
)

// Orchestration errors
var (
	ErrSchemaViolation  = NewDomainError(ErrCodeSchemaViolation, "model output failed schema validation after retry")
	ErrToolLoopExceeded = NewDomainError(ErrCodeToolLoop, "assessment exceeded its tool invocation budget")
)

// Validation errors
var (
	ErrInvalidRiskCategory = NewDomainError(ErrCodeValidation, "invalid risk category")
	ErrInvalidChatRole     = NewDomainError(ErrCodeValidation, "invalid chat turn role")
)
