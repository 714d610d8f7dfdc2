package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Format(t *testing.T) {
	err := &Error{Code: "TEST", Message: "something broke"}
	if err.Error() != "[TEST] something broke" {
		t.Errorf("unexpected format: %s", err.Error())
	}
}

func TestError_FormatWithCause(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := WrapError(ErrDataIntegrity, cause)

	if !errors.Is(err, ErrDataIntegrity) {
		t.Error("wrapped error should match its base via errors.Is")
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error should unwrap to its cause")
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	a := &Error{Code: "SAME", Message: "first"}
	b := &Error{Code: "SAME", Message: "second"}

	if !errors.Is(a, b) {
		t.Error("errors with the same code should match")
	}
	if errors.Is(a, ErrNoData) {
		t.Error("errors with different codes should not match")
	}
}

func TestPredefinedErrors_Distinct(t *testing.T) {
	if errors.Is(ErrInsufficientData, ErrDataIntegrity) {
		t.Error("per-symbol error codes must be distinct")
	}
	if errors.Is(ErrConfigInvalid, ErrInsufficientData) {
		t.Error("config errors must not match data errors")
	}
}
