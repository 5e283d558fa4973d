package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture_FullAmount(t *testing.T) {
	h := newHarness()
	auth := h.mustAuthorize(t, "A1", "100.00")

	resp, err := h.capture.Process(context.Background(), captureRequest(auth.PaymentID, "C1", "100.00"), testIdentity, testContext)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, resp.Status)
	assert.Equal(t, domain.TypeCapture, resp.Type)
	assert.Equal(t, auth.PaymentID, resp.ParentReferenceID)
	assert.NotEqual(t, auth.PaymentID, resp.PaymentID)

	last := h.gateway.Last()
	assert.Equal(t, "capture:client-1:C1", last.IdempotencyKey)
	assert.Equal(t, auth.GatewayTransactionID, last.OriginalTransactionID)
	assert.Nil(t, last.Card)

	_, err = h.cache.Get(context.Background(), domain.ParentLockKey(auth.PaymentID))
	assert.ErrorIs(t, err, application.ErrCacheMiss, "parent lock must be released")
}

func TestCapture_PartialAmount(t *testing.T) {
	h := newHarness()
	auth := h.mustAuthorize(t, "A1", "100.00")

	resp := h.mustCapture(t, auth.PaymentID, "C1", "40.00")

	assert.True(t, resp.AuthorizedAmount.Equal(amount("40")))
}

func TestCapture_ExceedingAuthorizedAmount(t *testing.T) {
	h := newHarness()
	auth := h.mustAuthorize(t, "A1", "100.00")

	_, err := h.capture.Process(context.Background(), captureRequest(auth.PaymentID, "C1", "100.01"), testIdentity, testContext)

	svcErr := requireServiceError(t, err, application.ErrCodeInvalidState)
	assert.Equal(t, 409, svcErr.HTTPStatus)
	assert.Equal(t, 0, h.gateway.Calls(domain.TypeCapture))
	assert.Equal(t, 1, h.ledger.Saves())

	_, err = h.cache.Get(context.Background(), "capture:client-1:C1")
	assert.ErrorIs(t, err, application.ErrCacheMiss, "rejected attempts must not hold the key")
}

func TestCapture_UnknownPayment(t *testing.T) {
	h := newHarness()

	_, err := h.capture.Process(context.Background(), captureRequest("missing", "C1", "10.00"), testIdentity, testContext)

	requireServiceError(t, err, application.ErrCodeNotFound)
	assert.Equal(t, 0, h.gateway.Calls(domain.TypeCapture))
}

func TestCapture_OtherClientsPaymentIsNotVisible(t *testing.T) {
	h := newHarness()
	auth := h.mustAuthorize(t, "A1", "100.00")

	rc := testContext
	rc.ClientID = "client-2"
	_, err := h.capture.Process(context.Background(), captureRequest(auth.PaymentID, "C1", "10.00"), testIdentity, rc)

	requireServiceError(t, err, application.ErrCodeNotFound)
}

func TestCapture_DeclinedAuthorization(t *testing.T) {
	h := newHarness()
	h.gateway.ResponseCode = "51"
	auth, err := h.authorize.Process(context.Background(), authorizeRequest("A1", "100.00"), testIdentity, testContext)
	require.NoError(t, err)
	h.gateway.ResponseCode = "00"

	_, err = h.capture.Process(context.Background(), captureRequest(auth.PaymentID, "C1", "100.00"), testIdentity, testContext)

	requireServiceError(t, err, application.ErrCodeInvalidState)
	assert.Equal(t, 0, h.gateway.Calls(domain.TypeCapture))
}

func TestCapture_SecondCaptureRejected(t *testing.T) {
	h := newHarness()
	auth := h.mustAuthorize(t, "A1", "100.00")
	h.mustCapture(t, auth.PaymentID, "C1", "50.00")

	_, err := h.capture.Process(context.Background(), captureRequest(auth.PaymentID, "C2", "50.00"), testIdentity, testContext)

	requireServiceError(t, err, application.ErrCodeInvalidState)
	assert.Equal(t, 1, h.gateway.Calls(domain.TypeCapture))
}

func TestCapture_DeclinedCaptureCanBeRetriedWithNewReference(t *testing.T) {
	h := newHarness()
	auth := h.mustAuthorize(t, "A1", "100.00")

	h.gateway.ResponseCode = "91"
	declined, err := h.capture.Process(context.Background(), captureRequest(auth.PaymentID, "C1", "100.00"), testIdentity, testContext)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeclined, declined.Status)

	h.gateway.ResponseCode = "00"
	h.mustCapture(t, auth.PaymentID, "C2", "100.00")
}

func TestCapture_CurrencyMismatch(t *testing.T) {
	h := newHarness()
	auth := h.mustAuthorize(t, "A1", "100.00")

	req := captureRequest(auth.PaymentID, "C1", "100.00")
	req.Currency = "EUR"
	_, err := h.capture.Process(context.Background(), req, testIdentity, testContext)

	requireServiceError(t, err, application.ErrCodeValidation)
}

func TestCapture_Replay(t *testing.T) {
	h := newHarness()
	auth := h.mustAuthorize(t, "A1", "100.00")
	first := h.mustCapture(t, auth.PaymentID, "C1", "100.00")

	second, err := h.capture.Process(context.Background(), captureRequest(auth.PaymentID, "C1", "100.00"), testIdentity, testContext)

	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.PaymentID, second.PaymentID)
	assert.Equal(t, 1, h.gateway.Calls(domain.TypeCapture))
}

func TestCapture_ConcurrentDifferentReferences(t *testing.T) {
	h := newHarness()
	auth := h.mustAuthorize(t, "A1", "100.00")
	h.gateway.Delay = 20 * time.Millisecond

	const callers = 5
	var wg sync.WaitGroup
	var mu sync.Mutex
	approved, rejected := 0, 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref := "C" + string(rune('1'+i))
			resp, err := h.capture.Process(context.Background(), captureRequest(auth.PaymentID, ref, "100.00"), testIdentity, testContext)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				svcErr, ok := application.IsServiceError(err)
				if assert.True(t, ok) {
					assert.Equal(t, application.ErrCodeInvalidState, svcErr.Code)
				}
				rejected++
				return
			}
			if resp.Status == domain.StatusApproved {
				approved++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, approved)
	assert.Equal(t, callers-1, rejected)
	assert.Equal(t, 1, h.gateway.Calls(domain.TypeCapture))
}

func TestCapture_WithoutCacheIsRefused(t *testing.T) {
	h := newHarness()
	auth := h.mustAuthorize(t, "A1", "100.00")
	degraded := newHarness(withLedger(h.ledger), withCache(&FailingCache{}))

	_, err := degraded.capture.Process(context.Background(), captureRequest(auth.PaymentID, "C1", "100.00"), testIdentity, testContext)

	svcErr := requireServiceError(t, err, application.ErrCodeDuplicateInProgress)
	assert.Equal(t, 409, svcErr.HTTPStatus)
	assert.Equal(t, 0, degraded.gateway.Calls(domain.TypeCapture))
	assert.Equal(t, []domain.AuditOutcome{domain.OutcomeRejected}, degraded.audit.Outcomes())
}
