package services

import (
	"context"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
)

type RefundProcessor struct {
	p *pipeline
}

var _ Processor[RefundRequest] = (*RefundProcessor)(nil)

func NewRefundProcessor(deps Dependencies) *RefundProcessor {
	return &RefundProcessor{p: newPipeline(deps)}
}

// Process returns funds. Approved refunds never exceed the captured amount
// (CAPTURED) or the authorized amount (ADHOC).
func (s *RefundProcessor) Process(ctx context.Context, req RefundRequest, identity domain.Identity, rc domain.RequestContext) (*Response, error) {
	a := s.p.begin(domain.FamilyRefund, identity, rc, req.auditPayload())
	a.reference = req.ReferenceNumber
	a.paymentID = req.PaymentID

	if err := s.p.checkRequest(req, a.rc); err != nil {
		return s.p.reject(ctx, a, err)
	}
	if err := checkRefundTarget(req); err != nil {
		return s.p.reject(ctx, a, err)
	}
	money, err := parseMoney(req.Amount, req.Currency)
	if err != nil {
		return s.p.reject(ctx, a, err)
	}
	a.key = domain.IdempotencyKey(domain.FamilyRefund, a.rc.ClientID, req.ReferenceNumber, req.GroupID)

	return s.p.run(ctx, a, func(ctx context.Context) (*Response, error) {
		return s.refund(ctx, a, req, money)
	})
}

func checkRefundTarget(req RefundRequest) error {
	switch req.Kind {
	case domain.RefundCaptured:
		if req.PaymentID == "" {
			return domain.NewMissingRequiredFieldError("paymentId")
		}
	case domain.RefundAdhoc:
		if req.PaymentID == "" && req.OriginalReference == "" {
			return domain.NewMissingRequiredFieldError("paymentId or originalReference")
		}
	}
	return nil
}

func (s *RefundProcessor) refund(ctx context.Context, a *attempt, req RefundRequest, money domain.Money) (*Response, error) {
	pending := domain.NewPendingEntry(a.key, a.family, domain.TypeRefund, money, s.p.clock(), s.p.policy.IdempotencyTTL)
	pending.ReferenceNumber = req.ReferenceNumber

	if resp, handled, err := s.p.acquire(ctx, a, pending); handled {
		return resp, err
	}

	lc, err := s.p.evaluate(ctx, a,
		func(ctx context.Context) (*domain.Lifecycle, error) {
			return s.locate(ctx, a, req)
		},
		func(lc *domain.Lifecycle) error {
			return lc.CanRefund(req.Kind, money)
		},
	)
	if err != nil {
		return s.p.reject(ctx, a, err)
	}

	rec, err := domain.NewPaymentRecord(s.p.newID(), domain.TypeRefund, req.ReferenceNumber, money, a.trace(), s.p.clock())
	if err != nil {
		return s.p.reject(ctx, a, err)
	}
	rec.GroupID = req.GroupID
	rec.ParentReferenceID = lc.AuthorizationID()
	rec.RefundKind = req.Kind
	rec.MaskedCard = lc.Authorization.MaskedCard

	original := lc.Authorization.Gateway.TransactionID
	if capture := lc.ApprovedCapture(); req.Kind == domain.RefundCaptured && capture != nil {
		original = capture.Gateway.TransactionID
	}

	result, routeErr := s.p.route(ctx, a, application.RouteRequest{
		Operation:             domain.TypeRefund,
		ReferenceNumber:       req.ReferenceNumber,
		Amount:                money.Amount,
		Currency:              money.Currency,
		OriginalTransactionID: original,
	})
	return s.p.settle(ctx, a, rec, result, routeErr)
}

// locate resolves the authorization a refund targets.
func (s *RefundProcessor) locate(ctx context.Context, a *attempt, req RefundRequest) (*domain.Lifecycle, error) {
	if req.PaymentID != "" {
		return s.p.loadLifecycle(ctx, req.PaymentID, a.rc.ClientID)
	}

	auth, err := s.p.findAuthorization(ctx, req.OriginalReference, a.rc.ClientID)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	if auth == nil {
		return nil, application.NewNotFoundError(req.OriginalReference)
	}
	return s.p.loadLifecycle(ctx, auth.PaymentID, a.rc.ClientID)
}
