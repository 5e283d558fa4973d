package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OperationFamily namespaces idempotency keys.
type OperationFamily string

const (
	FamilyAuthorize OperationFamily = "authorize"
	FamilyCapture   OperationFamily = "capture"
	FamilyRefund    OperationFamily = "refund"
	FamilyVoid      OperationFamily = "void"
)

// DefaultIdempotencyTTL is how long an entry stays authoritative.
const DefaultIdempotencyTTL = 30 * time.Minute

// IdempotencyEntry is the cached outcome of one keyed operation. Status is
// PENDING while the operation is in flight.
type IdempotencyEntry struct {
	Key               string            `json:"key"`
	Family            OperationFamily   `json:"family"`
	Type              TransactionType   `json:"type"`
	Status            TransactionStatus `json:"status"`
	Amount            decimal.Decimal   `json:"amount"`
	AuthorizedAmount  decimal.Decimal   `json:"authorizedAmount"`
	Currency          string            `json:"currency"`
	PaymentID         string            `json:"paymentId,omitempty"`
	ParentReferenceID string            `json:"parentReferenceId,omitempty"`
	ReferenceNumber   string            `json:"referenceNumber,omitempty"`
	ResponseCode      string            `json:"responseCode,omitempty"`
	AuthorizationCode string            `json:"authorizationCode,omitempty"`
	ErrorCode         string            `json:"errorCode,omitempty"`
	ErrorMessage      string            `json:"errorMessage,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	ExpiresAt         time.Time         `json:"expiresAt"`
}

// NewPendingEntry builds the in-flight marker written before the gateway call.
func NewPendingEntry(key string, family OperationFamily, txType TransactionType, amount Money, now time.Time, ttl time.Duration) *IdempotencyEntry {
	return &IdempotencyEntry{
		Key:       key,
		Family:    family,
		Type:      txType,
		Status:    StatusPending,
		Amount:    amount.Amount,
		Currency:  amount.Currency,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// EntryFromRecord builds the terminal entry for a persisted record.
func EntryFromRecord(key string, family OperationFamily, rec *PaymentRecord, now time.Time, ttl time.Duration) *IdempotencyEntry {
	return &IdempotencyEntry{
		Key:               key,
		Family:            family,
		Type:              rec.Type,
		Status:            rec.Status,
		Amount:            rec.RequestedAmount,
		AuthorizedAmount:  rec.AuthorizedAmount,
		Currency:          rec.Currency,
		PaymentID:         rec.PaymentID,
		ParentReferenceID: rec.ParentReferenceID,
		ReferenceNumber:   rec.ClientReferenceNumber,
		ResponseCode:      rec.Gateway.ResponseCode,
		AuthorizationCode: rec.Gateway.AuthorizationCode,
		ErrorCode:         rec.ErrorCode,
		ErrorMessage:      failureMessage(rec),
		CreatedAt:         now,
		ExpiresAt:         now.Add(ttl),
	}
}

func failureMessage(rec *PaymentRecord) string {
	if rec.Status == StatusFailed {
		return rec.Gateway.ResponseMessage
	}
	return ""
}

func (e *IdempotencyEntry) IsTerminal() bool {
	return e.Status != StatusPending
}

// Expired is evaluated at read time; nothing sweeps entries.
func (e *IdempotencyEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// IdempotencyKey derives <family>:<client>:<reference>[:<group>].
func IdempotencyKey(family OperationFamily, clientID, reference, groupID string) string {
	parts := []string{string(family), clientID, reference}
	if groupID != "" {
		parts = append(parts, groupID)
	}
	return strings.Join(parts, ":")
}

// VoidKey derives the void key from the payment being voided.
func VoidKey(clientID, paymentID string) string {
	return IdempotencyKey(FamilyVoid, clientID, paymentID, "")
}

// ParentLockKey serialises capture, refund and void attempts that target the
// same authorization.
func ParentLockKey(authorizationID string) string {
	return "lock:" + string(FamilyAuthorize) + ":" + authorizationID
}

// ReferenceLockKey serialises authorizations of one client reference across
// group ids.
func ReferenceLockKey(clientID, reference string) string {
	return "lock:reference:" + clientID + ":" + reference
}
