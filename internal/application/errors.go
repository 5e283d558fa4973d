package application

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

// ServiceError is the only error shape processors return. The caller-visible
// payload is Code, Message, Cause and Timestamp.
type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Cause      string
	Timestamp  time.Time
	Details    map[string]any
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeGatewayDeclined     = "GATEWAY_DECLINED"
	ErrCodeGatewayError        = "GATEWAY_ERROR"
	ErrCodeRetryExhausted      = "RETRY_EXHAUSTED"
	ErrCodeDuplicateInProgress = "DUPLICATE_IN_PROGRESS"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

func newServiceError(code, message string, status int, err error) *ServiceError {
	e := &ServiceError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
		Timestamp:  time.Now().UTC(),
		Err:        err,
	}
	if err != nil {
		e.Cause = err.Error()
	}
	return e
}

func NewValidationError(err error) *ServiceError {
	return newServiceError(ErrCodeValidation, "Invalid request", http.StatusBadRequest, err)
}

func NewNotFoundError(id string) *ServiceError {
	e := newServiceError(ErrCodeNotFound, fmt.Sprintf("Payment %s not found", id), http.StatusNotFound, nil)
	e.Details = map[string]any{"paymentId": id}
	return e
}

func NewInvalidStateError(err error) *ServiceError {
	return newServiceError(ErrCodeInvalidState, "Operation not allowed in the current payment state", http.StatusConflict, err)
}

// NewGatewayDeclinedError is only used where a decline must be surfaced as an
// error; processors return declines as a normal response.
func NewGatewayDeclinedError(responseCode, message string) *ServiceError {
	e := newServiceError(ErrCodeGatewayDeclined, "Payment declined", http.StatusPaymentRequired, nil)
	e.Cause = message
	e.Details = map[string]any{"responseCode": responseCode}
	return e
}

func NewGatewayError(err error) *ServiceError {
	return newServiceError(ErrCodeGatewayError, "Payment gateway failure", http.StatusBadGateway, err)
}

// NewRetryExhaustedError surfaces a ledger write that failed after every
// attempt. The original cause and the exhaustion timestamp are preserved.
func NewRetryExhaustedError(err *RetryExhaustedError) *ServiceError {
	e := newServiceError(ErrCodeRetryExhausted, "Payment could not be recorded", http.StatusServiceUnavailable, err)
	e.Cause = err.Cause()
	e.Timestamp = err.Timestamp
	e.Details = map[string]any{"attempts": err.Attempts}
	return e
}

func NewDuplicateInProgressError(key string) *ServiceError {
	e := newServiceError(ErrCodeDuplicateInProgress, "Request is being processed. Please retry in a moment.", http.StatusConflict, nil)
	e.Details = map[string]any{"idempotencyKey": key}
	return e
}

func NewInternalError(err error) *ServiceError {
	return newServiceError(ErrCodeInternal, "An internal error occurred", http.StatusInternalServerError, err)
}

// NewReplayedFailure rebuilds a cached failure without the original error.
func NewReplayedFailure(code, message string) *ServiceError {
	switch code {
	case ErrCodeGatewayError:
		e := newServiceError(code, "Payment gateway failure", http.StatusBadGateway, nil)
		e.Cause = message
		return e
	case ErrCodeRetryExhausted:
		e := newServiceError(code, "Payment could not be recorded", http.StatusServiceUnavailable, nil)
		e.Cause = message
		return e
	default:
		e := newServiceError(ErrCodeInternal, "An internal error occurred", http.StatusInternalServerError, nil)
		e.Cause = message
		return e
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// RetryExhaustedError is returned by the retrying ledger once every attempt
// has failed.
type RetryExhaustedError struct {
	Code      string
	Attempts  int
	Timestamp time.Time
	Err       error
}

func NewRetryExhausted(attempts int, err error) *RetryExhaustedError {
	return &RetryExhaustedError{
		Code:      ErrCodeRetryExhausted,
		Attempts:  attempts,
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("maximum retries exceeded after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// Cause is the message of the last underlying failure.
func (e *RetryExhaustedError) Cause() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func IsRetryExhausted(err error) (*RetryExhaustedError, bool) {
	var exhausted *RetryExhaustedError
	ok := errors.As(err, &exhausted)
	return exhausted, ok
}

// GatewayErrorClass is the taxonomy every routing failure is mapped onto.
type GatewayErrorClass string

const (
	GatewayNetwork   GatewayErrorClass = "NETWORK"
	GatewayDeclined  GatewayErrorClass = "DECLINED"
	GatewayMalformed GatewayErrorClass = "MALFORMED"
	GatewayInternal  GatewayErrorClass = "INTERNAL"
)

// ClassifiedError is a routing failure with its class attached.
type ClassifiedError struct {
	Class        GatewayErrorClass
	StatusCode   int
	ResponseCode string
	Message      string
	Err          error
}

func (e *ClassifiedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s error [%s]: %s (status: %d): %v", e.Class, e.ResponseCode, e.Message, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("gateway %s error [%s]: %s (status: %d)", e.Class, e.ResponseCode, e.Message, e.StatusCode)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// IsRetryable reports transport-level failures. Processors never retry
// authorize or capture on their own; the flag is informational.
func (e *ClassifiedError) IsRetryable() bool {
	return e.Class == GatewayNetwork
}

func AsClassified(err error) (*ClassifiedError, bool) {
	var classified *ClassifiedError
	ok := errors.As(err, &classified)
	return classified, ok
}
