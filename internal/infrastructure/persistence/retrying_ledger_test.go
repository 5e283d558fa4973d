package persistence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/config"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLedger struct {
	calls  int
	saveFn func(attempt int) error
}

func (s *stubLedger) Save(_ context.Context, r *domain.PaymentRecord) (*domain.PaymentRecord, error) {
	s.calls++
	if err := s.saveFn(s.calls); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *stubLedger) FindByReference(context.Context, string) ([]*domain.PaymentRecord, error) {
	return nil, nil
}

func (s *stubLedger) FindByPaymentOrParent(context.Context, string) ([]*domain.PaymentRecord, error) {
	return nil, nil
}

func newTestRetryingLedger(inner application.Ledger, attempts int) (*RetryingLedger, *[]time.Duration) {
	l := NewRetryingLedger(inner, config.RetryConfig{
		MaxAttempts: attempts,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    25 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	var slept []time.Duration
	l.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return l, &slept
}

func testRecord() *domain.PaymentRecord {
	return &domain.PaymentRecord{PaymentID: "pay-1", ClientReferenceNumber: "A1"}
}

func TestRetryingLedger_SucceedsAfterTransientFailures(t *testing.T) {
	inner := &stubLedger{saveFn: func(attempt int) error {
		if attempt < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	}}
	l, slept := newTestRetryingLedger(inner, 3)

	saved, err := l.Save(context.Background(), testRecord())

	require.NoError(t, err)
	assert.Equal(t, "pay-1", saved.PaymentID)
	assert.Equal(t, 3, inner.calls)
	assert.Len(t, *slept, 2)
}

func TestRetryingLedger_Exhausted(t *testing.T) {
	inner := &stubLedger{saveFn: func(attempt int) error {
		return fmt.Errorf("write failed on attempt %d", attempt)
	}}
	l, slept := newTestRetryingLedger(inner, 3)

	_, err := l.Save(context.Background(), testRecord())

	exhausted, ok := application.IsRetryExhausted(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeRetryExhausted, exhausted.Code)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.False(t, exhausted.Timestamp.IsZero())
	assert.Equal(t, "write failed on attempt 3", exhausted.Cause())
	assert.Equal(t, 3, inner.calls)
	assert.Len(t, *slept, 2)
}

func TestRetryingLedger_NonRetryableErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"duplicate reference", fmt.Errorf("%w: A1", application.ErrDuplicateReference)},
		{"invalid record", domain.NewMissingRequiredFieldError("payment id")},
		{"check violation", &pgconn.PgError{Code: "23514"}},
		{"context cancelled", context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &stubLedger{saveFn: func(int) error { return tt.err }}
			l, _ := newTestRetryingLedger(inner, 3)

			_, err := l.Save(context.Background(), testRecord())

			assert.ErrorIs(t, err, tt.err)
			_, exhausted := application.IsRetryExhausted(err)
			assert.False(t, exhausted)
			assert.Equal(t, 1, inner.calls)
		})
	}
}

func TestRetryingLedger_SerializationFailureIsRetried(t *testing.T) {
	inner := &stubLedger{saveFn: func(attempt int) error {
		if attempt == 1 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	}}
	l, _ := newTestRetryingLedger(inner, 3)

	_, err := l.Save(context.Background(), testRecord())

	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestRetryingLedger_BackoffIsCapped(t *testing.T) {
	l, _ := newTestRetryingLedger(&stubLedger{}, 5)

	for attempt := 0; attempt < 5; attempt++ {
		d := l.backoff(attempt)
		assert.LessOrEqual(t, d, 25*time.Millisecond+25*time.Millisecond/2)
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
	}
}
