package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Domain validation errors
const (
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeInvalidAmount        = "INVALID_AMOUNT"
	ErrCodeInvalidCurrency      = "INVALID_CURRENCY"
	ErrCodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	ErrCodeInvalidState         = "INVALID_STATE"
	ErrCodeAmountExceeded       = "AMOUNT_EXCEEDED"
	ErrCodePaymentNotFound      = "PAYMENT_NOT_FOUND"
)

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewInvalidStateError(current, expected string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidState,
		Message: fmt.Sprintf("invalid state: payment is %s, expected %s", current, expected),
	}
}

func NewAmountExceededError(requested, limit string) *DomainError {
	return &DomainError{
		Code:    ErrCodeAmountExceeded,
		Message: fmt.Sprintf("amount %s exceeds available %s", requested, limit),
	}
}

func NewInvalidAmountError(amount string, reason string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %s: %s", amount, reason),
	}
}

func NewInvalidCurrencyError(currency string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidCurrency,
		Message: fmt.Sprintf("invalid currency %q", currency),
	}
}

func NewInvalidTransitionError(from, to TransactionStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

func NewPaymentNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodePaymentNotFound,
		Message: fmt.Sprintf("payment %s not found", id),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// IsValidationError reports errors caused by malformed caller input.
func IsValidationError(err error) bool {
	return IsErrorCode(err, ErrCodeInvalidAmount) ||
		IsErrorCode(err, ErrCodeInvalidCurrency) ||
		IsErrorCode(err, ErrCodeMissingRequiredField)
}

// IsStateError reports operations that are illegal for the current lifecycle.
func IsStateError(err error) bool {
	return IsErrorCode(err, ErrCodeInvalidState) ||
		IsErrorCode(err, ErrCodeInvalidTransition) ||
		IsErrorCode(err, ErrCodeAmountExceeded)
}
