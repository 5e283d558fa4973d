package services

import (
	"context"
	"testing"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	testIdentity = domain.Identity{MgmID: "mgm-1", Role: "merchant", SessionID: "sess-1"}
	testContext  = domain.RequestContext{
		CorrelationID: "corr-1",
		JourneyID:     "journey-1",
		TransactionID: "txn-1",
		SourceChannel: "WEB",
		ClientID:      "client-1",
	}
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func authorizeRequest(ref, amt string) AuthorizeRequest {
	return AuthorizeRequest{
		ReferenceNumber: ref,
		Amount:          amount(amt),
		Currency:        "USD",
		Card: domain.CardData{
			PAN:         "4111111111111111",
			ExpiryMonth: 12,
			ExpiryYear:  2030,
			CVV:         "123",
			Holder:      "Ada Lovelace",
		},
	}
}

func captureRequest(paymentID, ref, amt string) CaptureRequest {
	return CaptureRequest{PaymentID: paymentID, ReferenceNumber: ref, Amount: amount(amt), Currency: "USD"}
}

func refundRequest(kind domain.RefundKind, paymentID, ref, amt string) RefundRequest {
	return RefundRequest{Kind: kind, PaymentID: paymentID, ReferenceNumber: ref, Amount: amount(amt), Currency: "USD"}
}

func (h *harness) mustAuthorize(t *testing.T, ref, amt string) *Response {
	t.Helper()
	resp, err := h.authorize.Process(context.Background(), authorizeRequest(ref, amt), testIdentity, testContext)
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, resp.Status)
	return resp
}

func (h *harness) mustCapture(t *testing.T, paymentID, ref, amt string) *Response {
	t.Helper()
	resp, err := h.capture.Process(context.Background(), captureRequest(paymentID, ref, amt), testIdentity, testContext)
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, resp.Status)
	return resp
}

func requireServiceError(t *testing.T, err error, code string) *application.ServiceError {
	t.Helper()
	require.Error(t, err)
	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok, "expected *application.ServiceError, got %T: %v", err, err)
	require.Equal(t, code, svcErr.Code, "unexpected error: %v", err)
	return svcErr
}
