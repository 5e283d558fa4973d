package services

import (
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"github.com/shopspring/decimal"
)

type AuthorizeRequest struct {
	ReferenceNumber string          `json:"referenceNumber" validate:"required,max=64"`
	GroupID         string          `json:"groupId,omitempty" validate:"max=64"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency" validate:"required,len=3"`
	Card            domain.CardData `json:"card"`
}

func (r AuthorizeRequest) auditPayload() map[string]any {
	return map[string]any{
		"referenceNumber": r.ReferenceNumber,
		"groupId":         r.GroupID,
		"amount":          r.Amount.StringFixed(2),
		"currency":        r.Currency,
		"maskedCard":      r.Card.Masked(),
	}
}

// CaptureRequest settles an authorization. PaymentID may name the
// authorization or any record linked to it.
type CaptureRequest struct {
	PaymentID       string          `json:"paymentId" validate:"required"`
	ReferenceNumber string          `json:"referenceNumber" validate:"required,max=64"`
	GroupID         string          `json:"groupId,omitempty" validate:"max=64"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency" validate:"required,len=3"`
}

func (r CaptureRequest) auditPayload() map[string]any {
	return map[string]any{
		"paymentId":       r.PaymentID,
		"referenceNumber": r.ReferenceNumber,
		"groupId":         r.GroupID,
		"amount":          r.Amount.StringFixed(2),
		"currency":        r.Currency,
	}
}

// RefundRequest is tagged by Kind. A CAPTURED refund names a payment id. An
// ADHOC refund names either the payment id or the original authorization's
// client reference number.
type RefundRequest struct {
	Kind              domain.RefundKind `json:"kind" validate:"required,oneof=CAPTURED ADHOC"`
	PaymentID         string            `json:"paymentId,omitempty"`
	OriginalReference string            `json:"originalReference,omitempty"`
	ReferenceNumber   string            `json:"referenceNumber" validate:"required,max=64"`
	GroupID           string            `json:"groupId,omitempty" validate:"max=64"`
	Amount            decimal.Decimal   `json:"amount"`
	Currency          string            `json:"currency" validate:"required,len=3"`
}

func (r RefundRequest) auditPayload() map[string]any {
	return map[string]any{
		"kind":              string(r.Kind),
		"paymentId":         r.PaymentID,
		"originalReference": r.OriginalReference,
		"referenceNumber":   r.ReferenceNumber,
		"groupId":           r.GroupID,
		"amount":            r.Amount.StringFixed(2),
		"currency":          r.Currency,
	}
}

// VoidRequest reverses an authorization. The void is keyed by the payment
// id; ReferenceNumber defaults to the authorization's reference.
type VoidRequest struct {
	PaymentID       string `json:"paymentId" validate:"required"`
	ReferenceNumber string `json:"referenceNumber,omitempty" validate:"max=64"`
}

func (r VoidRequest) auditPayload() map[string]any {
	return map[string]any{
		"paymentId":       r.PaymentID,
		"referenceNumber": r.ReferenceNumber,
	}
}

// Response is the outcome of one operation. Declines are responses, not
// errors.
type Response struct {
	PaymentID            string                   `json:"paymentId"`
	ParentReferenceID    string                   `json:"parentReferenceId,omitempty"`
	ReferenceNumber      string                   `json:"referenceNumber"`
	Type                 domain.TransactionType   `json:"type"`
	Status               domain.TransactionStatus `json:"status"`
	RefundKind           domain.RefundKind        `json:"refundKind,omitempty"`
	Amount               decimal.Decimal          `json:"amount"`
	AuthorizedAmount     decimal.Decimal          `json:"authorizedAmount"`
	Currency             string                   `json:"currency"`
	MaskedCard           string                   `json:"maskedCard,omitempty"`
	ResponseCode         string                   `json:"responseCode,omitempty"`
	ResponseMessage      string                   `json:"responseMessage,omitempty"`
	AuthorizationCode    string                   `json:"authorizationCode,omitempty"`
	GatewayTransactionID string                   `json:"gatewayTransactionId,omitempty"`
	Replayed             bool                     `json:"replayed"`
}

func ResponseFromRecord(rec *domain.PaymentRecord) *Response {
	return &Response{
		PaymentID:            rec.PaymentID,
		ParentReferenceID:    rec.ParentReferenceID,
		ReferenceNumber:      rec.ClientReferenceNumber,
		Type:                 rec.Type,
		Status:               rec.Status,
		RefundKind:           rec.RefundKind,
		Amount:               rec.RequestedAmount,
		AuthorizedAmount:     rec.AuthorizedAmount,
		Currency:             rec.Currency,
		MaskedCard:           rec.MaskedCard,
		ResponseCode:         rec.Gateway.ResponseCode,
		ResponseMessage:      rec.Gateway.ResponseMessage,
		AuthorizationCode:    rec.Gateway.AuthorizationCode,
		GatewayTransactionID: rec.Gateway.TransactionID,
	}
}

// responseFromEntry rebuilds a response from a cached outcome.
func responseFromEntry(e *domain.IdempotencyEntry) *Response {
	return &Response{
		PaymentID:         e.PaymentID,
		ParentReferenceID: e.ParentReferenceID,
		ReferenceNumber:   e.ReferenceNumber,
		Type:              e.Type,
		Status:            e.Status,
		Amount:            e.Amount,
		AuthorizedAmount:  e.AuthorizedAmount,
		Currency:          e.Currency,
		ResponseCode:      e.ResponseCode,
		AuthorizationCode: e.AuthorizationCode,
		Replayed:          true,
	}
}

func (r *Response) auditPayload() map[string]any {
	if r == nil {
		return nil
	}
	return map[string]any{
		"paymentId":         r.PaymentID,
		"parentReferenceId": r.ParentReferenceID,
		"type":              string(r.Type),
		"status":            string(r.Status),
		"authorizedAmount":  r.AuthorizedAmount.StringFixed(2),
		"currency":          r.Currency,
		"responseCode":      r.ResponseCode,
		"replayed":          r.Replayed,
	}
}
