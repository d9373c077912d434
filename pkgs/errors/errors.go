package errors

import (
	stderrors "errors"
	"fmt"
)

// Error types for different categories of failures
const (
	// Input errors
	ErrNoInputType  = "NO_INPUT"
	ErrInputRead    = "INPUT_READ_ERROR"
	ErrConfig       = "CONFIG_ERROR"
	ErrSelectPath   = "SELECT_ERROR"
	ErrCommandQuery = "COMMAND_QUERY_ERROR"

	// Command errors
	ErrCommandExecution = "COMMAND_EXECUTION_ERROR"
	ErrTimeout          = "TIMEOUT_ERROR"

	// Output errors
	ErrSerialize        = "SERIALIZE_ERROR"
	ErrSchemaValidation = "SCHEMA_VALIDATION_ERROR"
	ErrOutputWrite      = "OUTPUT_WRITE_ERROR"
)

// ErrNoInput marks a parse that had nothing to work on: the command produced
// no output, no raw text was supplied, or no root line was found.
// It is a benign condition, not a crash.
var ErrNoInput = New(ErrNoInputType, "nothing to parse")

// Do2JSONError represents a structured error with type and context
type Do2JSONError struct {
	Type    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *Do2JSONError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows error unwrapping
func (e *Do2JSONError) Unwrap() error {
	return e.Cause
}

// Is matches errors of the same type, so errors.Is(err, ErrNoInput) holds for
// every NO_INPUT error regardless of message or context.
func (e *Do2JSONError) Is(target error) bool {
	t, ok := target.(*Do2JSONError)
	return ok && t.Type == e.Type
}

// New creates a new Do2JSONError
func New(errorType, message string) *Do2JSONError {
	return &Do2JSONError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// Wrap creates a new Do2JSONError wrapping an existing error
func Wrap(errorType, message string, cause error) *Do2JSONError {
	return &Do2JSONError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *Do2JSONError) WithContext(key string, value interface{}) *Do2JSONError {
	e.Context[key] = value
	return e
}

// GetType returns the error type
func (e *Do2JSONError) GetType() string {
	return e.Type
}

// GetContext returns context value by key
func (e *Do2JSONError) GetContext(key string) (interface{}, bool) {
	value, exists := e.Context[key]
	return value, exists
}

// Helper functions for common error scenarios

// NewNoInputError creates a no-input error explaining where input was expected
func NewNoInputError(source string) *Do2JSONError {
	return New(ErrNoInputType, fmt.Sprintf("no input from %s", source)).
		WithContext("source", source)
}

// NewInputError creates an input-related error
func NewInputError(message string, cause error) *Do2JSONError {
	return Wrap(ErrInputRead, message, cause)
}

// NewCommandExecutionError creates a command execution error
func NewCommandExecutionError(command string, cause error) *Do2JSONError {
	return Wrap(ErrCommandExecution, fmt.Sprintf("failed to execute command '%s'", command), cause).
		WithContext("command", command)
}

// NewOutputWriteError creates an output write error
func NewOutputWriteError(path string, cause error) *Do2JSONError {
	return Wrap(ErrOutputWrite, fmt.Sprintf("failed to write '%s'", path), cause).
		WithContext("path", path)
}

// NewSerializeError creates a serialization error
func NewSerializeError(format string, cause error) *Do2JSONError {
	return Wrap(ErrSerialize, fmt.Sprintf("failed to encode tree as %s", format), cause).
		WithContext("format", format)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *Do2JSONError {
	return Wrap(ErrConfig, message, cause)
}

// IsErrorType checks if an error, or any error it wraps, is of a specific type
func IsErrorType(err error, errorType string) bool {
	var devErr *Do2JSONError
	if stderrors.As(err, &devErr) {
		return devErr.Type == errorType
	}
	return false
}

// IsNoInput reports whether err means there was nothing to parse
func IsNoInput(err error) bool {
	return IsErrorType(err, ErrNoInputType)
}
