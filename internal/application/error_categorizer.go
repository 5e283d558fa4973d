package application

import (
	"context"
	"errors"
	"net/http"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
)

// ErrorCategory represents the nature of an error for retry logic
type ErrorCategory string

const (
	CategoryTransient      ErrorCategory = "TRANSIENT"
	CategoryPermanent      ErrorCategory = "PERMANENT"
	CategoryBusinessRule   ErrorCategory = "BUSINESS_RULE"
	CategoryClientError    ErrorCategory = "CLIENT_ERROR"
	CategoryInfrastructure ErrorCategory = "INFRASTRUCTURE"
)

// CategorizeError determines error category for retry and logging purposes
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}

	if _, ok := IsRetryExhausted(err); ok {
		return CategoryInfrastructure
	}

	if errors.Is(err, ErrCacheUnavailable) {
		return CategoryInfrastructure
	}

	if errors.Is(err, ErrDuplicateReference) {
		return CategoryClientError
	}

	if domain.IsValidationError(err) {
		return CategoryClientError
	}
	if domain.IsStateError(err) {
		return CategoryBusinessRule
	}

	if svcErr, ok := IsServiceError(err); ok {
		switch svcErr.Code {
		case ErrCodeValidation, ErrCodeNotFound:
			return CategoryClientError
		case ErrCodeInvalidState, ErrCodeGatewayDeclined:
			return CategoryBusinessRule
		case ErrCodeDuplicateInProgress:
			return CategoryTransient
		case ErrCodeRetryExhausted, ErrCodeInternal:
			return CategoryInfrastructure
		case ErrCodeGatewayError:
			if classified, ok := AsClassified(svcErr.Err); ok {
				return categorizeGateway(classified)
			}
			return CategoryPermanent
		}
	}

	if classified, ok := AsClassified(err); ok {
		return categorizeGateway(classified)
	}

	// Default: Transient (safe fallback)
	return CategoryTransient
}

func categorizeGateway(err *ClassifiedError) ErrorCategory {
	switch err.Class {
	case GatewayNetwork:
		return CategoryTransient
	case GatewayDeclined:
		return CategoryBusinessRule
	case GatewayMalformed:
		return CategoryPermanent
	default:
		return CategoryInfrastructure
	}
}

// IsRetryable returns true if the error category suggests retry
func IsRetryable(err error) bool {
	category := CategorizeError(err)
	return category == CategoryTransient || category == CategoryInfrastructure
}

// ToHTTPStatus maps error to appropriate HTTP status code
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	switch {
	case domain.IsValidationError(err):
		return http.StatusBadRequest
	case domain.IsStateError(err), errors.Is(err, ErrDuplicateReference):
		return http.StatusConflict
	case domain.IsErrorCode(err, domain.ErrCodePaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	}

	if _, ok := IsRetryExhausted(err); ok {
		return http.StatusServiceUnavailable
	}
	if classified, ok := AsClassified(err); ok {
		if classified.Class == GatewayDeclined {
			return http.StatusPaymentRequired
		}
		return http.StatusBadGateway
	}

	// Default to 500
	return http.StatusInternalServerError
}

// ToErrorCode clear error code for API responses
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	switch {
	case domain.IsValidationError(err):
		return ErrCodeValidation
	case domain.IsStateError(err), errors.Is(err, ErrDuplicateReference):
		return ErrCodeInvalidState
	case domain.IsErrorCode(err, domain.ErrCodePaymentNotFound):
		return ErrCodeNotFound
	}

	if _, ok := IsRetryExhausted(err); ok {
		return ErrCodeRetryExhausted
	}
	if classified, ok := AsClassified(err); ok {
		if classified.Class == GatewayDeclined {
			return ErrCodeGatewayDeclined
		}
		return ErrCodeGatewayError
	}

	return ErrCodeInternal
}
