package application

import (
	"context"
	"errors"
	"time"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// ErrCacheMiss is returned when a key is absent or has expired.
	ErrCacheMiss = errors.New("idempotency cache: miss")
	// ErrCacheUnavailable wraps every backend failure. It is never fatal.
	ErrCacheUnavailable = errors.New("idempotency cache: unavailable")
	// ErrDuplicateReference is returned when an authorization for the same
	// client reference number already exists.
	ErrDuplicateReference = errors.New("ledger: duplicate client reference number")
)

// IdempotencyCache is the TTL-bound store of operation outcomes.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) (*domain.IdempotencyEntry, error)
	// Put overwrites the entry.
	Put(ctx context.Context, key string, entry *domain.IdempotencyEntry, ttl time.Duration) error
	// Reserve writes the entry only if the key is absent and reports whether
	// it did.
	Reserve(ctx context.Context, key string, entry *domain.IdempotencyEntry, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Ledger is the durable, append-only store of payment records.
type Ledger interface {
	Save(ctx context.Context, record *domain.PaymentRecord) (*domain.PaymentRecord, error)
	FindByReference(ctx context.Context, clientReferenceNumber string) ([]*domain.PaymentRecord, error)
	// FindByPaymentOrParent returns the record with the id and every record
	// whose parent reference is the id.
	FindByPaymentOrParent(ctx context.Context, id string) ([]*domain.PaymentRecord, error)
}

// GatewayRouter is the port for the external routing network.
type GatewayRouter interface {
	Route(ctx context.Context, req RouteRequest) (*RouteResult, error)
}

// AuditPublisher emits audit events off the request path.
type AuditPublisher interface {
	Publish(record domain.AuditRecord)
}

type RouteRequest struct {
	Operation             domain.TransactionType
	IdempotencyKey        string
	CorrelationID         string
	ClientID              string
	ReferenceNumber       string
	Amount                decimal.Decimal
	Currency              string
	Card                  *domain.CardData
	OriginalTransactionID string
	SourceChannel         string
}

type RouteResult struct {
	TransactionID     string
	AuthorizationCode string
	ResponseCode      string
	ResponseMessage   string
	ApprovedAmount    decimal.Decimal
}

// approvalCodes are the response codes treated as an approval.
var approvalCodes = map[string]bool{
	"00": true,
	"08": true,
	"10": true,
	"11": true,
}

// Approved maps the gateway response code onto approve or decline.
func (r *RouteResult) Approved() bool {
	return approvalCodes[r.ResponseCode]
}

func (r *RouteResult) Details() domain.GatewayDetails {
	return domain.GatewayDetails{
		TransactionID:     r.TransactionID,
		AuthorizationCode: r.AuthorizationCode,
		ResponseCode:      r.ResponseCode,
		ResponseMessage:   r.ResponseMessage,
	}
}
