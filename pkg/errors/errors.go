// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed error handling with rich context for the
// information-seeking agent. Soft failures are converted to sentinel results
// by their callers; only CodeFatal is meant to escape a session.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies agent errors for logging and recovery decisions.
type ErrorCode string

const (
	// CodeInternal indicates an unexpected internal error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the caller supplied invalid input.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeToolFailure indicates a tool execution failed.
	CodeToolFailure ErrorCode = "TOOL_FAILURE"

	// CodeToolNotFound indicates a command named a tool that is not registered.
	CodeToolNotFound ErrorCode = "TOOL_NOT_FOUND"

	// CodeMissingName indicates a command carried no tool name.
	CodeMissingName ErrorCode = "MISSING_NAME"

	// CodeEmptyQueue indicates a pop from an empty task queue.
	CodeEmptyQueue ErrorCode = "EMPTY_QUEUE"

	// CodeMalformedOutput indicates oracle output could not be parsed even after repair.
	CodeMalformedOutput ErrorCode = "MALFORMED_OUTPUT"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeRateLimit indicates rate limiting was triggered.
	CodeRateLimit ErrorCode = "RATE_LIMITED"

	// CodeContextLost indicates the context was canceled mid-operation.
	CodeContextLost ErrorCode = "CONTEXT_LOST"

	// CodeLLMError indicates an oracle provider error.
	CodeLLMError ErrorCode = "LLM_ERROR"

	// CodeStorage indicates a result persistence error.
	CodeStorage ErrorCode = "STORAGE_ERROR"

	// CodeFatal indicates an unrecoverable upstream condition. The whole
	// process must stop and no partial result is salvaged.
	CodeFatal ErrorCode = "FATAL"
)

// AgentError is a typed error with context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type AgentError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Recoverable bool
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *AgentError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AgentError with the same code and message.
func (e *AgentError) Is(target error) bool {
	t, ok := target.(*AgentError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *AgentError) MarshalJSON() ([]byte, error) {
	cause := ""
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return json.Marshal(&struct {
		Message     string                 `json:"message"`
		Code        string                 `json:"code"`
		Err         string                 `json:"error,omitempty"`
		Recoverable bool                   `json:"recoverable"`
		Context     map[string]interface{} `json:"context,omitempty"`
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Err:         cause,
		Recoverable: e.Recoverable,
		Context:     e.Context,
	})
}

// New creates a new AgentError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *AgentError {
	return &AgentError{
		Code:    code,
		Message: msg,
		Err:     cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *AgentError) WithContext(key string, value interface{}) *AgentError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *AgentError) WithRecoverable(recoverable bool) *AgentError {
	e.Recoverable = recoverable
	return e
}

// As attempts to convert an error to an AgentError.
// Unknown errors are wrapped as internal errors.
func As(err error) *AgentError {
	if err == nil {
		return nil
	}
	var ae *AgentError
	if stderrors.As(err, &ae) {
		return ae
	}
	return New(CodeInternal, "wrapped error", err)
}

// CodeOf returns the code of the first AgentError in the chain, or CodeInternal.
func CodeOf(err error) ErrorCode {
	var ae *AgentError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// IsFatal reports whether err carries CodeFatal anywhere in its chain.
func IsFatal(err error) bool {
	for err != nil {
		var ae *AgentError
		if !stderrors.As(err, &ae) {
			return false
		}
		if ae.Code == CodeFatal {
			return true
		}
		err = ae.Err
	}
	return false
}

// Fatal builds an unrecoverable upstream error.
func Fatal(msg string, cause error) *AgentError {
	return New(CodeFatal, msg, cause).WithRecoverable(false)
}
