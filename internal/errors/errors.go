// Package errors provides structured error handling for nmapx operations.
// It defines error codes for every failure the scan pipeline distinguishes
// and helpers for classifying errors as fatal or recoverable per scan phase.
package errors

import (
	goerrors "errors"
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCanceled      ErrorCode = "CANCELED"

	// Process and scanning errors.
	CodeMissingDependency ErrorCode = "MISSING_DEPENDENCY"
	CodeExecutionFailed   ErrorCode = "EXECUTION_FAILED"
	CodeTargetInvalid     ErrorCode = "TARGET_INVALID"

	// Output artifact errors.
	CodeMissingOutput ErrorCode = "MISSING_OUTPUT"
	CodeCorruptOutput ErrorCode = "CORRUPT_OUTPUT"

	// File system errors.
	CodeFileNotFound    ErrorCode = "FILE_NOT_FOUND"
	CodeDirectoryCreate ErrorCode = "DIRECTORY_CREATE"
)

// ScanError represents an error that occurred while running or parsing a scan phase.
type ScanError struct {
	Code    ErrorCode
	Message string
	Target  string
	Phase   string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	switch {
	case e.Target != "" && e.Phase != "":
		msg = fmt.Sprintf("%s (target: %s, phase: %s)", msg, e.Target, e.Phase)
	case e.Target != "":
		msg = fmt.Sprintf("%s (target: %s)", msg, e.Target)
	case e.Phase != "":
		msg = fmt.Sprintf("%s (phase: %s)", msg, e.Phase)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *ScanError) WithContext(key string, value interface{}) *ScanError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithTarget sets the target the error belongs to.
func (e *ScanError) WithTarget(target string) *ScanError {
	e.Target = target
	return e
}

// WithPhase sets the scan phase the error belongs to.
func (e *ScanError) WithPhase(phase string) *ScanError {
	e.Phase = phase
	return e
}

// NewScanError creates a new scan error with the specified code and message.
func NewScanError(code ErrorCode, message string) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// NewScanErrorWithTarget creates a scan error for a specific target.
func NewScanErrorWithTarget(code ErrorCode, message, target string) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Target:  target,
		Context: make(map[string]interface{}),
	}
}

// WrapScanError wraps an existing error as a scan error.
func WrapScanError(code ErrorCode, message string, err error) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// WrapScanErrorWithTarget wraps an error with target information.
func WrapScanErrorWithTarget(code ErrorCode, message, target string, err error) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Target:  target,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field: %s)", msg, e.Field)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new configuration error.
func NewConfigError(code ErrorCode, message string) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
	}
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Field:   field,
		Value:   value,
	}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Utility functions for common error operations

// IsCode checks if an error, or any error it wraps, has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from the first coded error in the chain.
func GetCode(err error) ErrorCode {
	var scanErr *ScanError
	if goerrors.As(err, &scanErr) {
		return scanErr.Code
	}
	var cfgErr *ConfigError
	if goerrors.As(err, &cfgErr) {
		return cfgErr.Code
	}
	return CodeUnknown
}

// IsFatal determines if an error must stop the whole run rather than a single phase.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case CodeMissingDependency, CodeConfiguration, CodeValidation, CodeTargetInvalid:
		return true
	default:
		return false
	}
}

// IsCanceled reports whether the error represents an operator-initiated stop.
func IsCanceled(err error) bool {
	return IsCode(err, CodeCanceled)
}

// Common error creation functions

// ErrMissingDependency creates an error for an executable that cannot be located.
func ErrMissingDependency(name string, err error) *ScanError {
	return WrapScanError(CodeMissingDependency, fmt.Sprintf("required executable %q not found", name), err)
}

// ErrInvalidTarget creates an error for invalid scan targets.
func ErrInvalidTarget(target string) *ScanError {
	return NewScanErrorWithTarget(CodeTargetInvalid, "Invalid target specification", target)
}

// ErrScanTimeout creates an error for a phase that exceeded its deadline.
func ErrScanTimeout(target, phase string) *ScanError {
	return NewScanErrorWithTarget(CodeTimeout, "Scan operation timed out", target).WithPhase(phase)
}

// ErrScanCanceled creates an error for a run stopped by the operator.
func ErrScanCanceled(err error) *ScanError {
	return WrapScanError(CodeCanceled, "Scan run canceled", err)
}

// ErrMissingOutput creates an error for a scan that exited cleanly without writing its XML artifact.
func ErrMissingOutput(path string) *ScanError {
	return NewScanError(CodeMissingOutput, "Scan output artifact not found").WithContext("path", path)
}

// ErrCorruptOutput creates an error for an artifact that is empty or not well-formed.
func ErrCorruptOutput(err error) *ScanError {
	return WrapScanError(CodeCorruptOutput, "Scan output is empty or malformed", err)
}

// ErrConfigInvalid creates an error for invalid configuration.
func ErrConfigInvalid(field string, value interface{}) *ConfigError {
	return NewConfigFieldError(CodeValidation, "Invalid configuration value", field, value)
}

// ErrConfigMissing creates an error for missing required configuration.
func ErrConfigMissing(field string) *ConfigError {
	return NewConfigFieldError(CodeConfiguration, "Required configuration field missing", field, nil)
}
