package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_GetLifecycle(t *testing.T) {
	h := newHarness()
	auth := h.mustAuthorize(t, "A1", "100.00")
	capture := h.mustCapture(t, auth.PaymentID, "C1", "100.00")

	byAuth, err := h.query.GetLifecycle(context.Background(), auth.PaymentID, testContext)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCaptured, byAuth.State)
	assert.Equal(t, "A1", byAuth.ReferenceNumber)
	assert.Equal(t, "************1111", byAuth.MaskedCard)
	assert.True(t, byAuth.CapturedAmount.Equal(amount("100")))
	require.Len(t, byAuth.Records, 2)
	assert.Equal(t, domain.TypeAuthorize, byAuth.Records[0].Type)
	assert.Equal(t, domain.TypeCapture, byAuth.Records[1].Type)

	byChild, err := h.query.GetLifecycle(context.Background(), capture.PaymentID, testContext)
	require.NoError(t, err)
	assert.Equal(t, auth.PaymentID, byChild.PaymentID)
}

func TestQuery_GetLifecycleErrors(t *testing.T) {
	h := newHarness()
	auth := h.mustAuthorize(t, "A1", "100.00")

	_, err := h.query.GetLifecycle(context.Background(), "missing", testContext)
	requireServiceError(t, err, application.ErrCodeNotFound)

	other := testContext
	other.ClientID = "client-2"
	_, err = h.query.GetLifecycle(context.Background(), auth.PaymentID, other)
	requireServiceError(t, err, application.ErrCodeNotFound)

	_, err = h.query.GetLifecycle(context.Background(), "", testContext)
	requireServiceError(t, err, application.ErrCodeValidation)
}

func TestQuery_LedgerFailure(t *testing.T) {
	h := newHarness()
	h.ledger.FindByPaymentOrParentFn = func(context.Context, string) ([]*domain.PaymentRecord, error) {
		return nil, errors.New("connection refused")
	}

	_, err := h.query.GetLifecycle(context.Background(), "p-1", testContext)

	requireServiceError(t, err, application.ErrCodeInternal)
}

func TestQuery_FindByReferenceFiltersByClient(t *testing.T) {
	h := newHarness()
	h.mustAuthorize(t, "A1", "100.00")

	other := testContext
	other.ClientID = "client-2"
	_, err := h.authorize.Process(context.Background(), authorizeRequest("A1", "5.00"), testIdentity, other)
	require.NoError(t, err)

	mine, err := h.query.FindByReference(context.Background(), "A1", testContext)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, mine[0].Amount.Equal(amount("100")))

	none, err := h.query.FindByReference(context.Background(), "B9", testContext)
	require.NoError(t, err)
	assert.Empty(t, none)
}
