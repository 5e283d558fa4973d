// Package domain encodes payment records, their lifecycle and the
// identifiers threaded through every operation.
package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the operation a ledger record was written for.
type TransactionType string

const (
	TypeAuthorize TransactionType = "AUTHORIZE"
	TypeCapture   TransactionType = "CAPTURE"
	TypeRefund    TransactionType = "REFUND"
	TypeVoid      TransactionType = "VOID"
)

// TransactionStatus represents the state of a single ledger record
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "PENDING"
	StatusApproved TransactionStatus = "APPROVED"
	StatusDeclined TransactionStatus = "DECLINED"
	StatusFailed   TransactionStatus = "FAILED"
	StatusReversed TransactionStatus = "REVERSED"
)

// RefundKind discriminates the two refund shapes.
type RefundKind string

const (
	// RefundCaptured returns funds from an approved capture.
	RefundCaptured RefundKind = "CAPTURED"
	// RefundAdhoc returns funds against the authorization without a capture.
	RefundAdhoc RefundKind = "ADHOC"
)

func (k RefundKind) Valid() bool {
	return k == RefundCaptured || k == RefundAdhoc
}

// GatewayDetails are the identifiers the routing network returns.
type GatewayDetails struct {
	TransactionID     string
	AuthorizationCode string
	ResponseCode      string
	ResponseMessage   string
}

// PaymentRecord is one ledger row: one per payment attempt. Records are
// written once they reach a terminal status and never updated afterwards.
type PaymentRecord struct {
	PaymentID             string
	ClientReferenceNumber string
	GroupID               string
	ParentReferenceID     string
	Type                  TransactionType
	Status                TransactionStatus
	RefundKind            RefundKind

	RequestedAmount  decimal.Decimal
	AuthorizedAmount decimal.Decimal
	Currency         string
	MaskedCard       string

	Gateway   GatewayDetails
	ErrorCode string

	Trace Trace

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewPaymentRecord(
	id string,
	txType TransactionType,
	reference string,
	amount Money,
	trace Trace,
	now time.Time,
) (*PaymentRecord, error) {
	if id == "" {
		return nil, NewMissingRequiredFieldError("payment id")
	}
	if reference == "" {
		return nil, NewMissingRequiredFieldError("client reference number")
	}

	return &PaymentRecord{
		PaymentID:             id,
		ClientReferenceNumber: reference,
		Type:                  txType,
		Status:                StatusPending,
		RequestedAmount:       amount.Amount,
		AuthorizedAmount:      decimal.Zero,
		Currency:              amount.Currency,
		Trace:                 trace,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// Money returns the requested amount with its currency.
func (r *PaymentRecord) Money() Money {
	return Money{Amount: r.RequestedAmount, Currency: r.Currency}
}

// Approve records an approval. A void approval reverses the authorization,
// so the void record itself moves to REVERSED.
func (r *PaymentRecord) Approve(details GatewayDetails, authorized decimal.Decimal, at time.Time) error {
	target := StatusApproved
	if r.Type == TypeVoid {
		target = StatusReversed
	}
	if err := r.transition(target); err != nil {
		return err
	}
	r.Gateway = details
	r.AuthorizedAmount = authorized
	r.UpdatedAt = at
	return nil
}

func (r *PaymentRecord) Decline(details GatewayDetails, at time.Time) error {
	if err := r.transition(StatusDeclined); err != nil {
		return err
	}
	r.Gateway = details
	r.UpdatedAt = at
	return nil
}

// Fail marks the record as failed with the classified error code.
func (r *PaymentRecord) Fail(errorCode, message string, at time.Time) error {
	if err := r.transition(StatusFailed); err != nil {
		return err
	}
	r.ErrorCode = errorCode
	r.Gateway.ResponseMessage = message
	r.UpdatedAt = at
	return nil
}

func (r *PaymentRecord) transition(target TransactionStatus) error {
	if err := r.canTransitionTo(target); err != nil {
		return err
	}
	r.Status = target
	return nil
}

func (r *PaymentRecord) canTransitionTo(target TransactionStatus) error {
	if r.Status != StatusPending {
		return NewInvalidTransitionError(r.Status, target)
	}
	if r.Type == TypeVoid {
		return r.allow(target, StatusReversed, StatusDeclined, StatusFailed)
	}
	return r.allow(target, StatusApproved, StatusDeclined, StatusFailed)
}

func (r *PaymentRecord) allow(target TransactionStatus, allowed ...TransactionStatus) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return NewInvalidTransitionError(r.Status, target)
}

func (r *PaymentRecord) IsTerminal() bool {
	return r.Status != StatusPending
}

// IsApproved reports a successful outcome, including an approved void.
func (r *PaymentRecord) IsApproved() bool {
	return r.Status == StatusApproved || r.Status == StatusReversed
}

// Validate checks the record before it is handed to the ledger.
func (r *PaymentRecord) Validate() error {
	if r.PaymentID == "" {
		return NewMissingRequiredFieldError("payment id")
	}
	if r.ClientReferenceNumber == "" {
		return NewMissingRequiredFieldError("client reference number")
	}
	if r.Type != TypeAuthorize && r.ParentReferenceID == "" {
		return NewMissingRequiredFieldError("parent reference id")
	}
	if r.Type == TypeRefund && !r.RefundKind.Valid() {
		return NewMissingRequiredFieldError("refund kind")
	}
	if !r.IsTerminal() {
		return NewInvalidStateError(string(r.Status), "a terminal status")
	}
	return nil
}
