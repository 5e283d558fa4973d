package services

import (
	"context"
	"errors"
	"time"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
)

// lookup reads the cache. Any backend failure is treated as a miss.
func (p *pipeline) lookup(ctx context.Context, a *attempt, key string) *domain.IdempotencyEntry {
	entry, err := p.cache.Get(ctx, key)
	switch {
	case err == nil:
		return entry
	case errors.Is(err, application.ErrCacheMiss):
		return nil
	default:
		p.degrade(a, "get", err)
		return nil
	}
}

func (p *pipeline) degrade(a *attempt, action string, err error) {
	p.metrics.CacheDegraded(action)
	a.logger.Warn("idempotency cache degraded", "action", action, "key", a.key, "error", err)
}

// acquire answers the request from a cached outcome or takes the in-flight
// reservation for a.key. handled is true when the caller must return resp
// and err as they are.
func (p *pipeline) acquire(ctx context.Context, a *attempt, pending *domain.IdempotencyEntry) (resp *Response, handled bool, err error) {
	entry := p.lookup(ctx, a, a.key)
	if entry != nil && entry.IsTerminal() {
		resp, err = p.replay(a, entry)
		return resp, true, err
	}

	for round := 0; round < maxReserveRounds; round++ {
		if entry == nil {
			ok, err := p.cache.Reserve(ctx, a.key, pending, p.policy.IdempotencyTTL)
			if err != nil {
				p.degrade(a, "reserve", err)
				a.degraded = true
				return nil, false, nil
			}
			if ok {
				a.reserved = true
				return nil, false, nil
			}
		}

		entry, err = p.waitForOutcome(ctx, a)
		if err != nil {
			p.finishError(a, domain.OutcomeRejected, err)
			return nil, true, err
		}
		if entry != nil {
			resp, err = p.replay(a, entry)
			return resp, true, err
		}
		// The holder released its reservation without an outcome.
	}

	err = application.NewDuplicateInProgressError(a.key)
	p.finishError(a, domain.OutcomeRejected, err)
	return nil, true, err
}

// waitForOutcome polls a.key until it turns terminal. It returns nil when the
// key disappears and DUPLICATE_IN_PROGRESS once the in-flight wait elapses.
func (p *pipeline) waitForOutcome(ctx context.Context, a *attempt) (*domain.IdempotencyEntry, error) {
	deadline := time.Now().Add(p.policy.InFlightWait)
	ticker := time.NewTicker(p.policy.InFlightPollInterval)
	defer ticker.Stop()

	for {
		if !time.Now().Before(deadline) {
			return nil, application.NewDuplicateInProgressError(a.key)
		}

		select {
		case <-ctx.Done():
			return nil, application.NewDuplicateInProgressError(a.key)
		case <-ticker.C:
		}

		entry, err := p.cache.Get(ctx, a.key)
		switch {
		case errors.Is(err, application.ErrCacheMiss):
			return nil, nil
		case err != nil:
			p.degrade(a, "poll", err)
		case entry.IsTerminal():
			return entry, nil
		}
	}
}

// replay answers from a cached outcome without touching the gateway or the
// ledger.
func (p *pipeline) replay(a *attempt, entry *domain.IdempotencyEntry) (*Response, error) {
	p.metrics.CacheReplay(string(a.family))
	a.paymentID = entry.PaymentID
	a.logger.Info("replaying cached outcome", "key", a.key, "payment_id", entry.PaymentID, "status", entry.Status)

	if entry.Status == domain.StatusFailed {
		err := application.NewReplayedFailure(entry.ErrorCode, entry.ErrorMessage)
		p.finish(a, domain.OutcomeReplayed, err.Code, nil)
		return nil, err
	}

	resp := responseFromEntry(entry)
	p.finish(a, domain.OutcomeReplayed, "", resp)
	return resp, nil
}

// replayRecord answers from a record already in the ledger and refreshes
// the cache with it.
func (p *pipeline) replayRecord(ctx context.Context, a *attempt, rec *domain.PaymentRecord) (*Response, error) {
	p.store(ctx, a, rec)
	p.releaseLock(ctx, a)
	a.paymentID = rec.PaymentID
	a.logger.Info("replaying ledger record", "payment_id", rec.PaymentID, "status", rec.Status)

	if rec.Status == domain.StatusFailed {
		err := application.NewReplayedFailure(rec.ErrorCode, rec.Gateway.ResponseMessage)
		p.finish(a, domain.OutcomeReplayed, err.Code, nil)
		return nil, err
	}

	resp := ResponseFromRecord(rec)
	resp.Replayed = true
	p.finish(a, domain.OutcomeReplayed, "", resp)
	return resp, nil
}

// storeFailure answers a.key with svcErr until the entry expires. The
// gateway has already been called for rec, so a retry must not route it again.
func (p *pipeline) storeFailure(ctx context.Context, a *attempt, rec *domain.PaymentRecord, svcErr *application.ServiceError) {
	entry := domain.EntryFromRecord(a.key, a.family, rec, p.clock(), p.policy.IdempotencyTTL)
	entry.Status = domain.StatusFailed
	entry.ErrorCode = svcErr.Code
	entry.ErrorMessage = svcErr.Cause
	if entry.ErrorMessage == "" {
		entry.ErrorMessage = svcErr.Message
	}
	if err := p.cache.Put(ctx, a.key, entry, p.policy.IdempotencyTTL); err != nil {
		p.degrade(a, "put", err)
		return
	}
	a.reserved = false
}

// store writes the terminal entry for rec under a.key.
func (p *pipeline) store(ctx context.Context, a *attempt, rec *domain.PaymentRecord) {
	entry := domain.EntryFromRecord(a.key, a.family, rec, p.clock(), p.policy.IdempotencyTTL)
	if err := p.cache.Put(ctx, a.key, entry, p.policy.IdempotencyTTL); err != nil {
		p.degrade(a, "put", err)
		return
	}
	a.reserved = false
}

// lockParent serialises operations that target the same authorization. The
// ledger has no cumulative guard, so an attempt that cannot take the lock is
// refused.
func (p *pipeline) lockParent(ctx context.Context, a *attempt, authorizationID string) error {
	key := domain.ParentLockKey(authorizationID)
	held, err := p.lock(ctx, a, key)
	if err != nil {
		return err
	}
	if !held {
		svcErr := application.NewDuplicateInProgressError(key)
		svcErr.Cause = "payment lock unavailable"
		return svcErr
	}
	return nil
}

// lockReference serialises authorizations of one client reference across
// group ids. Without the cache the ledger's unique index is the only guard.
func (p *pipeline) lockReference(ctx context.Context, a *attempt, reference string) error {
	_, err := p.lock(ctx, a, domain.ReferenceLockKey(a.rc.ClientID, reference))
	return err
}

// lock takes key for the processing timeout, waiting up to the in-flight
// wait for a competing holder. It reports false without an error when the
// cache is unavailable.
func (p *pipeline) lock(ctx context.Context, a *attempt, key string) (bool, error) {
	now := p.clock()
	ttl := p.policy.ProcessingTimeout
	if ttl <= 0 {
		ttl = p.policy.IdempotencyTTL
	}
	marker := &domain.IdempotencyEntry{
		Key:       key,
		Family:    a.family,
		Status:    domain.StatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	deadline := time.Now().Add(p.policy.InFlightWait)
	for {
		ok, err := p.cache.Reserve(ctx, key, marker, ttl)
		if err != nil {
			p.degrade(a, "lock", err)
			return false, nil
		}
		if ok {
			a.lockKey = key
			return true, nil
		}

		if !time.Now().Before(deadline) {
			return false, application.NewDuplicateInProgressError(key)
		}
		select {
		case <-ctx.Done():
			return false, application.NewDuplicateInProgressError(key)
		case <-time.After(p.policy.InFlightPollInterval):
		}
	}
}

func (p *pipeline) releaseLock(ctx context.Context, a *attempt) {
	if a.lockKey == "" {
		return
	}
	if err := p.cache.Delete(ctx, a.lockKey); err != nil {
		p.degrade(a, "unlock", err)
	}
	a.lockKey = ""
}

// release drops the reservation and the parent lock so that a later attempt
// starts from scratch.
func (p *pipeline) release(ctx context.Context, a *attempt) {
	p.releaseLock(ctx, a)
	if !a.reserved {
		return
	}
	if err := p.cache.Delete(ctx, a.key); err != nil {
		p.degrade(a, "release", err)
	}
	a.reserved = false
}
