package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

func fieldErrorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// Predefined errors
var (
	// Per-symbol recoverable errors: the symbol is skipped and recorded,
	// never fatal to a multi-symbol scan or backtest.
	ErrInsufficientData = &Error{Code: "INSUFFICIENT_DATA", Message: "too few bars to warm up indicators"}
	ErrDataIntegrity    = &Error{Code: "DATA_INTEGRITY", Message: "bar series is not strictly ordered"}
	ErrNoData           = &Error{Code: "NO_DATA", Message: "no data available"}

	// Fatal for the whole run, checked before any symbol is processed.
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}

	// Storage errors
	ErrStorageFailed = &Error{Code: "STORAGE_FAILED", Message: "storage operation failed"}
)
