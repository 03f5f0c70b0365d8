// Package errs holds the error taxonomy shared by every domain package.
// Callers compare with errors.Is; packages wrap these with context.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrNotFound             = errors.New("not found")
	ErrAlreadyExists        = errors.New("already exists")
	ErrAmountMismatch       = errors.New("amount mismatch")
	ErrAlreadyFunded        = errors.New("escrow already funded")
	ErrInsufficientFunds    = errors.New("insufficient funds in escrow")
	ErrGateway              = errors.New("payment gateway error")
	ErrUnsupportedFrequency = errors.New("unsupported repayment frequency")
)

// ValidationError reports a single malformed or out-of-range input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
