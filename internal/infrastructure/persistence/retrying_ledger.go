package persistence

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/config"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/observability"
)

// RetryingLedger wraps writes in a bounded retry loop. Reads pass through.
type RetryingLedger struct {
	inner       application.Ledger
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	logger      *slog.Logger
	metrics     *observability.Metrics
	sleep       func(ctx context.Context, d time.Duration) error
}

var _ application.Ledger = (*RetryingLedger)(nil)

func NewRetryingLedger(inner application.Ledger, cfg config.RetryConfig, logger *slog.Logger, metrics *observability.Metrics) *RetryingLedger {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &RetryingLedger{
		inner:       inner,
		maxAttempts: attempts,
		baseDelay:   cfg.BaseDelay,
		maxDelay:    cfg.MaxDelay,
		logger:      logger,
		metrics:     metrics,
		sleep:       sleepContext,
	}
}

// Save retries transient failures. After the last attempt it returns a
// *application.RetryExhaustedError carrying the final cause.
func (r *RetryingLedger) Save(ctx context.Context, record *domain.PaymentRecord) (*domain.PaymentRecord, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				return nil, err
			}
			break
		}

		attempts++
		saved, err := r.inner.Save(ctx, record)
		if err == nil {
			return saved, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		r.metrics.LedgerRetry()
		r.logger.Warn("ledger write failed",
			"payment_id", record.PaymentID,
			"attempt", attempt+1,
			"max_attempts", r.maxAttempts,
			"error", err,
		)

		if attempt < r.maxAttempts-1 {
			if err := r.sleep(ctx, r.backoff(attempt)); err != nil {
				break
			}
		}
	}

	exhausted := application.NewRetryExhausted(attempts, lastErr)
	r.metrics.LedgerExhausted()
	r.logger.Error("ledger write retries exhausted",
		"payment_id", record.PaymentID,
		"client_reference_number", record.ClientReferenceNumber,
		"attempts", exhausted.Attempts,
		"error", lastErr,
	)
	return nil, exhausted
}

func (r *RetryingLedger) FindByReference(ctx context.Context, clientReferenceNumber string) ([]*domain.PaymentRecord, error) {
	return r.inner.FindByReference(ctx, clientReferenceNumber)
}

func (r *RetryingLedger) FindByPaymentOrParent(ctx context.Context, id string) ([]*domain.PaymentRecord, error) {
	return r.inner.FindByPaymentOrParent(ctx, id)
}

// Helper: to check retryable errors
func isRetryable(err error) bool {
	if errors.Is(err, application.ErrDuplicateReference) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return false
	}
	return IsTransient(err)
}

// Backoff calculation with exponential delay and jitter
func (r *RetryingLedger) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)
	if r.maxDelay > 0 && base > r.maxDelay {
		base = r.maxDelay
	}

	jitter := time.Duration(0)
	if half := int64(base / 2); half > 0 {
		jitter = time.Duration(rand.Int63n(half))
	}

	return base + jitter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
