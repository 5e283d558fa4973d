package services

import (
	"context"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
)

type CaptureProcessor struct {
	p *pipeline
}

var _ Processor[CaptureRequest] = (*CaptureProcessor)(nil)

func NewCaptureProcessor(deps Dependencies) *CaptureProcessor {
	return &CaptureProcessor{p: newPipeline(deps)}
}

// Process settles an approved authorization. Only one capture per
// authorization can be approved and it may not exceed the authorized amount.
func (s *CaptureProcessor) Process(ctx context.Context, req CaptureRequest, identity domain.Identity, rc domain.RequestContext) (*Response, error) {
	a := s.p.begin(domain.FamilyCapture, identity, rc, req.auditPayload())
	a.reference = req.ReferenceNumber
	a.paymentID = req.PaymentID

	if err := s.p.checkRequest(req, a.rc); err != nil {
		return s.p.reject(ctx, a, err)
	}
	money, err := parseMoney(req.Amount, req.Currency)
	if err != nil {
		return s.p.reject(ctx, a, err)
	}
	a.key = domain.IdempotencyKey(domain.FamilyCapture, a.rc.ClientID, req.ReferenceNumber, req.GroupID)

	return s.p.run(ctx, a, func(ctx context.Context) (*Response, error) {
		return s.capture(ctx, a, req, money)
	})
}

func (s *CaptureProcessor) capture(ctx context.Context, a *attempt, req CaptureRequest, money domain.Money) (*Response, error) {
	pending := domain.NewPendingEntry(a.key, a.family, domain.TypeCapture, money, s.p.clock(), s.p.policy.IdempotencyTTL)
	pending.ReferenceNumber = req.ReferenceNumber

	if resp, handled, err := s.p.acquire(ctx, a, pending); handled {
		return resp, err
	}

	lc, err := s.p.evaluate(ctx, a,
		func(ctx context.Context) (*domain.Lifecycle, error) {
			return s.p.loadLifecycle(ctx, req.PaymentID, a.rc.ClientID)
		},
		func(lc *domain.Lifecycle) error {
			return lc.CanCapture(money)
		},
	)
	if err != nil {
		return s.p.reject(ctx, a, err)
	}

	rec, err := domain.NewPaymentRecord(s.p.newID(), domain.TypeCapture, req.ReferenceNumber, money, a.trace(), s.p.clock())
	if err != nil {
		return s.p.reject(ctx, a, err)
	}
	rec.GroupID = req.GroupID
	rec.ParentReferenceID = lc.AuthorizationID()
	rec.MaskedCard = lc.Authorization.MaskedCard

	result, routeErr := s.p.route(ctx, a, application.RouteRequest{
		Operation:             domain.TypeCapture,
		ReferenceNumber:       req.ReferenceNumber,
		Amount:                money.Amount,
		Currency:              money.Currency,
		OriginalTransactionID: lc.Authorization.Gateway.TransactionID,
	})
	return s.p.settle(ctx, a, rec, result, routeErr)
}
