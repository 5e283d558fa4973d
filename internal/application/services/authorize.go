package services

import (
	"context"
	"fmt"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
)

type AuthorizeProcessor struct {
	p *pipeline
}

var _ Processor[AuthorizeRequest] = (*AuthorizeProcessor)(nil)

func NewAuthorizeProcessor(deps Dependencies) *AuthorizeProcessor {
	return &AuthorizeProcessor{p: newPipeline(deps)}
}

// Process reserves funds on the card. The idempotency key is the client
// reference number (plus group id when present).
func (s *AuthorizeProcessor) Process(ctx context.Context, req AuthorizeRequest, identity domain.Identity, rc domain.RequestContext) (*Response, error) {
	a := s.p.begin(domain.FamilyAuthorize, identity, rc, req.auditPayload())
	a.reference = req.ReferenceNumber

	if err := s.p.checkRequest(req, a.rc); err != nil {
		return s.p.reject(ctx, a, err)
	}
	money, err := parseMoney(req.Amount, req.Currency)
	if err != nil {
		return s.p.reject(ctx, a, err)
	}
	a.key = domain.IdempotencyKey(domain.FamilyAuthorize, a.rc.ClientID, req.ReferenceNumber, req.GroupID)

	return s.p.run(ctx, a, func(ctx context.Context) (*Response, error) {
		return s.authorize(ctx, a, req, money)
	})
}

func (s *AuthorizeProcessor) authorize(ctx context.Context, a *attempt, req AuthorizeRequest, money domain.Money) (*Response, error) {
	pending := domain.NewPendingEntry(a.key, a.family, domain.TypeAuthorize, money, s.p.clock(), s.p.policy.IdempotencyTTL)
	pending.ReferenceNumber = req.ReferenceNumber

	if resp, handled, err := s.p.acquire(ctx, a, pending); handled {
		return resp, err
	}

	if err := s.p.lockReference(ctx, a, req.ReferenceNumber); err != nil {
		return s.p.reject(ctx, a, err)
	}

	existing, err := s.p.findAuthorization(ctx, req.ReferenceNumber, a.rc.ClientID)
	if err != nil {
		return s.p.reject(ctx, a, application.NewInternalError(err))
	}
	switch {
	case existing != nil && existing.GroupID != req.GroupID:
		return s.p.reject(ctx, a, application.NewInvalidStateError(
			fmt.Errorf("reference %s is already authorized under another group", req.ReferenceNumber)))
	case existing != nil && a.degraded:
		// Without a reservation the ledger is the only duplicate guard left.
		return s.p.replayRecord(ctx, a, existing)
	}

	rec, err := domain.NewPaymentRecord(s.p.newID(), domain.TypeAuthorize, req.ReferenceNumber, money, a.trace(), s.p.clock())
	if err != nil {
		return s.p.reject(ctx, a, err)
	}
	rec.GroupID = req.GroupID
	rec.MaskedCard = req.Card.Masked()
	a.paymentID = rec.PaymentID

	card := req.Card
	result, routeErr := s.p.route(ctx, a, application.RouteRequest{
		Operation:       domain.TypeAuthorize,
		ReferenceNumber: req.ReferenceNumber,
		Amount:          money.Amount,
		Currency:        money.Currency,
		Card:            &card,
	})
	return s.p.settle(ctx, a, rec, result, routeErr)
}
