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
	ErrCodeRetrievalFailure = "RETRIEVAL_FAILURE"
	ErrCodeGeneration       = "GENERATION_FAILURE"
	ErrCodeJudgeParse       = "JUDGE_PARSE_FAILURE"
	ErrCodeDispatch         = "DISPATCH_FAILURE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query must not be empty")
	ErrIncompleteInteraction = NewDomainError(ErrCodeValidation, "interaction is missing an answer or id")
	ErrScoreOutOfRange      = NewDomainError(ErrCodeValidation, "evaluation score must be between 1 and 5")
	ErrUnknownIssueTag      = NewDomainError(ErrCodeValidation, "identified_issue is not in the configured vocabulary")
)

// Synchronous path errors, surfaced to the caller
var (
	ErrRetrievalFailed  = NewDomainError(ErrCodeRetrievalFailure, "document retrieval failed")
	ErrGenerationFailed = NewDomainError(ErrCodeGeneration, "text generation failed")
)

// Asynchronous path errors, retried then dead-lettered
var (
	ErrJudgeParseFailed = NewDomainError(ErrCodeJudgeParse, "judge output did not match the evaluation schema")
	ErrDispatchFailed   = NewDomainError(ErrCodeDispatch, "failed to enqueue evaluation task")
)

// Not found errors
var (
	ErrEvaluationNotFound = NewDomainError(ErrCodeNotFound, "no evaluation recorded for interaction")
)
