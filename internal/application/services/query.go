package services

import (
	"context"
	"log/slog"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"github.com/shopspring/decimal"
)

// PaymentView is the effective state of one authorization and every record
// linked to it.
type PaymentView struct {
	PaymentID        string              `json:"paymentId"`
	ReferenceNumber  string              `json:"referenceNumber"`
	State            domain.PaymentState `json:"state"`
	Currency         string              `json:"currency"`
	AuthorizedAmount decimal.Decimal     `json:"authorizedAmount"`
	CapturedAmount   decimal.Decimal     `json:"capturedAmount"`
	RefundedAmount   decimal.Decimal     `json:"refundedAmount"`
	MaskedCard       string              `json:"maskedCard,omitempty"`
	Records          []*Response         `json:"records"`
}

type QueryService struct {
	p *pipeline
}

func NewQueryService(ledger application.Ledger, logger *slog.Logger) *QueryService {
	return &QueryService{p: newPipeline(Dependencies{Ledger: ledger, Logger: logger})}
}

// GetLifecycle accepts the authorization id or the id of any linked record.
func (s *QueryService) GetLifecycle(ctx context.Context, id string, rc domain.RequestContext) (*PaymentView, error) {
	if id == "" {
		return nil, application.NewValidationError(domain.NewMissingRequiredFieldError("payment id"))
	}
	if rc.ClientID == "" {
		return nil, application.NewValidationError(domain.NewMissingRequiredFieldError("client id"))
	}

	lc, err := s.p.loadLifecycle(ctx, id, rc.ClientID)
	if err != nil {
		return nil, err
	}
	return newPaymentView(lc), nil
}

// FindByReference lists the client's records carrying a reference number.
func (s *QueryService) FindByReference(ctx context.Context, reference string, rc domain.RequestContext) ([]*Response, error) {
	if reference == "" {
		return nil, application.NewValidationError(domain.NewMissingRequiredFieldError("reference"))
	}
	if rc.ClientID == "" {
		return nil, application.NewValidationError(domain.NewMissingRequiredFieldError("client id"))
	}

	records, err := s.p.ledger.FindByReference(ctx, reference)
	if err != nil {
		return nil, application.NewInternalError(err)
	}

	out := make([]*Response, 0, len(records))
	for _, r := range records {
		if r.Trace.ClientID == rc.ClientID {
			out = append(out, ResponseFromRecord(r))
		}
	}
	return out, nil
}

func newPaymentView(lc *domain.Lifecycle) *PaymentView {
	auth := lc.Authorization
	view := &PaymentView{
		PaymentID:        auth.PaymentID,
		ReferenceNumber:  auth.ClientReferenceNumber,
		State:            lc.State(),
		Currency:         auth.Currency,
		AuthorizedAmount: lc.AuthorizedAmount(),
		CapturedAmount:   lc.CapturedTotal(),
		RefundedAmount:   lc.RefundedTotal(),
		MaskedCard:       auth.MaskedCard,
		Records:          []*Response{ResponseFromRecord(auth)},
	}
	for _, group := range [][]*domain.PaymentRecord{lc.Captures, lc.Refunds, lc.Voids} {
		for _, r := range group {
			view.Records = append(view.Records, ResponseFromRecord(r))
		}
	}
	return view
}
