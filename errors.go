package proxykit

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	CodeNotFound          ErrorCode = "not_found"
	CodeInvalidDescriptor ErrorCode = "invalid_descriptor"
	CodeDirectoryCreation ErrorCode = "directory_creation"
	CodeLoad              ErrorCode = "load"
	CodeMethodNotFound    ErrorCode = "method_not_found"
	CodeArgumentCount     ErrorCode = "argument_count"
	CodeInvalidArgument   ErrorCode = "invalid_argument"
	CodeInvalidConfig     ErrorCode = "invalid_config"
)

// Sentinels for errors.Is. Any *Error with the same code matches.
var (
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "type not found"}
	ErrInvalidDescriptor = &Error{Code: CodeInvalidDescriptor, Message: "invalid class descriptor"}
	ErrDirectoryCreation = &Error{Code: CodeDirectoryCreation, Message: "directory was not created"}
	ErrLoad              = &Error{Code: CodeLoad, Message: "generated source could not be loaded"}
	ErrMethodNotFound    = &Error{Code: CodeMethodNotFound, Message: "method not found"}
	ErrArgumentCount     = &Error{Code: CodeArgumentCount, Message: "incorrect number of arguments"}
	ErrInvalidArgument   = &Error{Code: CodeInvalidArgument, Message: "invalid argument value"}
	ErrInvalidConfig     = &Error{Code: CodeInvalidConfig, Message: "invalid configuration"}
)

// Error is the error envelope for failures of the proxy generation pipeline.
// Errors returned by proxied targets are never wrapped in it.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new error with the given code.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new error with a formatted message.
// A %w verb in format is kept as the underlying cause.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	wrapped := fmt.Errorf(format, args...)
	return &Error{
		Code:    code,
		Message: wrapped.Error(),
		Err:     errors.Unwrap(wrapped),
	}
}

// WithDetail returns a new Error with the key-value pair added to details.
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Err:     e.Err,
	}
}

// PanicError records a target panic whose value is not an error.
type PanicError struct {
	Method string
	Value  any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Method, e.Value)
}
