package types

import "fmt"

// ErrorCode represents a unified error code across the pipeline.
type ErrorCode string

// Engine error codes
const (
	ErrStageFailed         ErrorCode = "STAGE_FAILED"
	ErrLoopBudgetExhausted ErrorCode = "LOOP_BUDGET_EXHAUSTED"
	ErrInvalidState        ErrorCode = "INVALID_STATE"
	ErrInvalidGraph        ErrorCode = "INVALID_GRAPH"
	ErrRunNotFound         ErrorCode = "RUN_NOT_FOUND"
)

// Worker / capability error codes
const (
	ErrWorkerFailed          ErrorCode = "WORKER_FAILED"
	ErrCapabilityTimeout     ErrorCode = "CAPABILITY_TIMEOUT"
	ErrCapabilityUnavailable ErrorCode = "CAPABILITY_UNAVAILABLE"
)

// Storage error codes
const (
	ErrCheckpointFailed    ErrorCode = "CHECKPOINT_FAILED"
	ErrProjectNotFound     ErrorCode = "PROJECT_NOT_FOUND"
	ErrUnsupportedLanguage ErrorCode = "UNSUPPORTED_LANGUAGE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Stage     string    `json:"stage,omitempty"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithStage records the stage the error originated from.
func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
