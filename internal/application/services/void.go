package services

import (
	"context"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
)

type VoidProcessor struct {
	p *pipeline
}

var _ Processor[VoidRequest] = (*VoidProcessor)(nil)

func NewVoidProcessor(deps Dependencies) *VoidProcessor {
	return &VoidProcessor{p: newPipeline(deps)}
}

// Process reverses an approved authorization by writing a linked VOID record.
// The authorization record itself is never updated.
func (s *VoidProcessor) Process(ctx context.Context, req VoidRequest, identity domain.Identity, rc domain.RequestContext) (*Response, error) {
	a := s.p.begin(domain.FamilyVoid, identity, rc, req.auditPayload())
	a.reference = req.ReferenceNumber
	a.paymentID = req.PaymentID

	if err := s.p.checkRequest(req, a.rc); err != nil {
		return s.p.reject(ctx, a, err)
	}
	a.key = domain.VoidKey(a.rc.ClientID, req.PaymentID)

	return s.p.run(ctx, a, func(ctx context.Context) (*Response, error) {
		return s.void(ctx, a, req)
	})
}

func (s *VoidProcessor) void(ctx context.Context, a *attempt, req VoidRequest) (*Response, error) {
	pending := domain.NewPendingEntry(a.key, a.family, domain.TypeVoid, domain.Money{}, s.p.clock(), s.p.policy.IdempotencyTTL)
	pending.PaymentID = req.PaymentID

	if resp, handled, err := s.p.acquire(ctx, a, pending); handled {
		return resp, err
	}

	lc, err := s.p.evaluate(ctx, a,
		func(ctx context.Context) (*domain.Lifecycle, error) {
			return s.p.loadLifecycle(ctx, req.PaymentID, a.rc.ClientID)
		},
		func(lc *domain.Lifecycle) error {
			return lc.CanVoid(s.p.policy.AllowVoidAfterCapture)
		},
	)
	if err != nil {
		return s.p.reject(ctx, a, err)
	}

	auth := lc.Authorization
	reference := req.ReferenceNumber
	if reference == "" {
		reference = auth.ClientReferenceNumber
	}
	amount := domain.Money{Amount: lc.AuthorizedAmount(), Currency: auth.Currency}

	rec, err := domain.NewPaymentRecord(s.p.newID(), domain.TypeVoid, reference, amount, a.trace(), s.p.clock())
	if err != nil {
		return s.p.reject(ctx, a, err)
	}
	rec.ParentReferenceID = lc.AuthorizationID()
	rec.GroupID = auth.GroupID
	rec.MaskedCard = auth.MaskedCard

	result, routeErr := s.p.route(ctx, a, application.RouteRequest{
		Operation:             domain.TypeVoid,
		ReferenceNumber:       reference,
		Amount:                amount.Amount,
		Currency:              amount.Currency,
		OriginalTransactionID: auth.Gateway.TransactionID,
	})
	return s.p.settle(ctx, a, rec, result, routeErr)
}
