package services

import (
	"context"
	"errors"
	"time"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
)

// toServiceError maps anything the pipeline hits onto the caller-visible
// error shape.
func toServiceError(err error) *application.ServiceError {
	if svcErr, ok := application.IsServiceError(err); ok {
		return svcErr
	}
	if exhausted, ok := application.IsRetryExhausted(err); ok {
		return application.NewRetryExhaustedError(exhausted)
	}

	switch {
	case domain.IsValidationError(err):
		return application.NewValidationError(err)
	case domain.IsStateError(err):
		return application.NewInvalidStateError(err)
	}
	return application.NewInternalError(err)
}

// loadLifecycle reads the authorization named by id, or the authorization a
// child record id points at. Records belonging to another client are not
// visible.
func (p *pipeline) loadLifecycle(ctx context.Context, id, clientID string) (*domain.Lifecycle, error) {
	records, err := p.ledger.FindByPaymentOrParent(ctx, id)
	if err != nil {
		return nil, application.NewInternalError(err)
	}

	lc, ok := domain.NewLifecycle(records)
	if !ok {
		parent := ""
		for _, r := range records {
			if r.PaymentID == id {
				parent = r.ParentReferenceID
				break
			}
		}
		if parent == "" {
			return nil, application.NewNotFoundError(id)
		}

		records, err = p.ledger.FindByPaymentOrParent(ctx, parent)
		if err != nil {
			return nil, application.NewInternalError(err)
		}
		if lc, ok = domain.NewLifecycle(records); !ok {
			return nil, application.NewNotFoundError(id)
		}
	}

	if owner := lc.Authorization.Trace.ClientID; owner != "" && owner != clientID {
		return nil, application.NewNotFoundError(id)
	}
	return lc, nil
}

// findAuthorization returns the client's AUTHORIZE record for a reference.
func (p *pipeline) findAuthorization(ctx context.Context, reference, clientID string) (*domain.PaymentRecord, error) {
	records, err := p.ledger.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.Type == domain.TypeAuthorize && r.Trace.ClientID == clientID {
			return r, nil
		}
	}
	return nil, nil
}

// evaluate checks the business rule, takes the parent lock and checks the
// rule again against a fresh read.
func (p *pipeline) evaluate(
	ctx context.Context,
	a *attempt,
	lookup func(ctx context.Context) (*domain.Lifecycle, error),
	check func(lc *domain.Lifecycle) error,
) (*domain.Lifecycle, error) {
	lc, err := lookup(ctx)
	if err != nil {
		return nil, err
	}
	a.paymentID = lc.AuthorizationID()
	if err := check(lc); err != nil {
		return nil, toServiceError(err)
	}

	if err := p.lockParent(ctx, a, lc.AuthorizationID()); err != nil {
		return nil, err
	}

	lc, err = p.loadLifecycle(ctx, lc.AuthorizationID(), a.rc.ClientID)
	if err != nil {
		return nil, err
	}
	if err := check(lc); err != nil {
		return nil, toServiceError(err)
	}
	return lc, nil
}

// reject ends an attempt that never reached the gateway.
func (p *pipeline) reject(ctx context.Context, a *attempt, err error) (*Response, error) {
	svcErr := toServiceError(err)
	p.release(ctx, a)
	a.logger.Info("operation rejected", "code", svcErr.Code, "error", err)
	p.finish(a, domain.OutcomeRejected, svcErr.Code, nil)
	return nil, svcErr
}

// route calls the gateway once.
func (p *pipeline) route(ctx context.Context, a *attempt, req application.RouteRequest) (*application.RouteResult, error) {
	req.IdempotencyKey = a.key
	req.CorrelationID = a.rc.CorrelationID
	req.ClientID = a.rc.ClientID
	req.SourceChannel = a.rc.SourceChannel

	start := time.Now()
	result, err := p.gateway.Route(ctx, req)

	outcome := "APPROVED"
	switch {
	case err != nil:
		outcome = "ERROR"
		if classified, ok := application.AsClassified(err); ok {
			outcome = string(classified.Class)
		}
	case !result.Approved():
		outcome = "DECLINED"
	}
	p.metrics.GatewayCall(string(a.family), outcome)
	a.logger.Info("gateway call completed",
		"result", outcome,
		"duration_ms", time.Since(start).Milliseconds(),
		"category", application.CategorizeError(err),
	)
	return result, err
}

// settle moves rec to its terminal status from the gateway outcome, persists
// it, publishes the outcome to the cache and emits the audit event.
func (p *pipeline) settle(ctx context.Context, a *attempt, rec *domain.PaymentRecord, result *application.RouteResult, routeErr error) (*Response, error) {
	now := p.clock()

	var transitionErr error
	switch classified, isClassified := application.AsClassified(routeErr); {
	case routeErr == nil && result.Approved():
		transitionErr = rec.Approve(result.Details(), result.ApprovedAmount, now)
	case routeErr == nil:
		transitionErr = rec.Decline(result.Details(), now)
	case isClassified && classified.Class == application.GatewayDeclined:
		transitionErr = rec.Decline(domain.GatewayDetails{
			ResponseCode:    classified.ResponseCode,
			ResponseMessage: classified.Message,
		}, now)
	default:
		message := routeErr.Error()
		if isClassified {
			message = classified.Message
		}
		transitionErr = rec.Fail(application.ErrCodeGatewayError, message, now)
	}
	if transitionErr != nil {
		p.release(ctx, a)
		p.finishError(a, domain.OutcomeError, transitionErr)
		return nil, application.NewInternalError(transitionErr)
	}

	a.paymentID = rec.PaymentID
	saved, err := p.ledger.Save(ctx, rec)
	if err != nil {
		return p.persistFailed(ctx, a, rec, err)
	}

	p.store(ctx, a, saved)
	p.releaseLock(ctx, a)

	resp := ResponseFromRecord(saved)
	a.logger.Info("operation completed",
		"payment_id", saved.PaymentID,
		"status", saved.Status,
		"response_code", saved.Gateway.ResponseCode,
	)

	if saved.Status == domain.StatusFailed {
		svcErr := application.NewGatewayError(routeErr)
		p.finish(a, domain.OutcomeFailed, svcErr.Code, resp)
		return nil, svcErr
	}

	p.finish(a, domain.OutcomeForStatus(saved.Status), "", resp)
	return resp, nil
}

func (p *pipeline) persistFailed(ctx context.Context, a *attempt, rec *domain.PaymentRecord, err error) (*Response, error) {
	if errors.Is(err, application.ErrDuplicateReference) {
		existing, findErr := p.findAuthorization(ctx, rec.ClientReferenceNumber, a.rc.ClientID)
		if findErr == nil && existing != nil {
			if existing.GroupID != rec.GroupID {
				a.logger.Error("gateway outcome has no ledger record",
					"payment_id", rec.PaymentID,
					"status", rec.Status,
					"recorded_payment_id", existing.PaymentID,
				)
			}
			return p.replayRecord(ctx, a, existing)
		}
	}

	svcErr := toServiceError(err)
	p.storeFailure(ctx, a, rec, svcErr)
	p.releaseLock(ctx, a)
	a.logger.Error("failed to persist payment record",
		"payment_id", rec.PaymentID,
		"status", rec.Status,
		"code", svcErr.Code,
		"error", err,
	)
	p.finish(a, domain.OutcomeError, svcErr.Code, nil)
	return nil, svcErr
}

// finish emits the audit event and the completion metric for the attempt.
func (p *pipeline) finish(a *attempt, outcome domain.AuditOutcome, errorCode string, resp *Response) {
	now := p.clock()
	duration := now.Sub(a.started)
	p.metrics.OperationCompleted(string(a.family), string(outcome), duration)

	if p.audit == nil {
		return
	}
	p.audit.Publish(domain.AuditRecord{
		Timestamp:       now,
		Subject:         domain.AuditSubject(a.paymentID, a.reference),
		EventType:       domain.EventType(a.family, outcome),
		Operation:       a.family,
		Outcome:         outcome,
		ErrorCode:       errorCode,
		RequestPayload:  a.request,
		ResponsePayload: resp.auditPayload(),
		StartedAt:       a.started,
		DurationMillis:  duration.Milliseconds(),
		Context:         a.rc,
		Identity:        a.identity,
	})
}

func (p *pipeline) finishError(a *attempt, outcome domain.AuditOutcome, err error) {
	p.finish(a, outcome, application.ToErrorCode(err), nil)
}
