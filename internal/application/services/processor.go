// Package services runs the authorize, capture, refund and void pipelines.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/config"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/observability"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Processor is the contract every operation exposes.
type Processor[Req any] interface {
	Process(ctx context.Context, req Req, identity domain.Identity, rc domain.RequestContext) (*Response, error)
}

// Policy holds the tunables the pipeline consults.
type Policy struct {
	AllowVoidAfterCapture bool
	IdempotencyTTL        time.Duration
	InFlightWait          time.Duration
	InFlightPollInterval  time.Duration
	ProcessingTimeout     time.Duration
}

func PolicyFromConfig(policy config.PolicyConfig, cache config.CacheConfig) Policy {
	return Policy{
		AllowVoidAfterCapture: policy.AllowVoidAfterCapture,
		IdempotencyTTL:        cache.TTL,
		InFlightWait:          policy.InFlightWait,
		InFlightPollInterval:  policy.InFlightPollInterval,
		ProcessingTimeout:     policy.ProcessingTimeout,
	}
}

// Dependencies are shared by every processor. Clock and NewID default to
// time.Now and uuid.NewString.
type Dependencies struct {
	Cache   application.IdempotencyCache
	Ledger  application.Ledger
	Gateway application.GatewayRouter
	Audit   application.AuditPublisher
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Policy  Policy
	Clock   func() time.Time
	NewID   func() string
}

const (
	defaultPollInterval = 50 * time.Millisecond
	maxReserveRounds    = 3
)

type pipeline struct {
	cache    application.IdempotencyCache
	ledger   application.Ledger
	gateway  application.GatewayRouter
	audit    application.AuditPublisher
	logger   *slog.Logger
	metrics  *observability.Metrics
	policy   Policy
	clock    func() time.Time
	newID    func() string
	validate *validator.Validate
}

func newPipeline(deps Dependencies) *pipeline {
	p := &pipeline{
		cache:    deps.Cache,
		ledger:   deps.Ledger,
		gateway:  deps.Gateway,
		audit:    deps.Audit,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		policy:   deps.Policy,
		clock:    deps.Clock,
		newID:    deps.NewID,
		validate: validator.New(),
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.clock == nil {
		p.clock = func() time.Time { return time.Now().UTC() }
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	if p.policy.IdempotencyTTL <= 0 {
		p.policy.IdempotencyTTL = domain.DefaultIdempotencyTTL
	}
	if p.policy.InFlightPollInterval <= 0 {
		p.policy.InFlightPollInterval = defaultPollInterval
	}
	return p
}

// attempt is the per-call state threaded through the pipeline.
type attempt struct {
	family    domain.OperationFamily
	key       string
	reference string
	paymentID string
	started   time.Time
	identity  domain.Identity
	rc        domain.RequestContext
	request   map[string]any
	logger    *slog.Logger

	reserved bool
	degraded bool
	lockKey  string
}

func (p *pipeline) begin(family domain.OperationFamily, identity domain.Identity, rc domain.RequestContext, request map[string]any) *attempt {
	if rc.CorrelationID == "" {
		rc.CorrelationID = uuid.NewString()
	}
	return &attempt{
		family:   family,
		started:  p.clock(),
		identity: identity,
		rc:       rc,
		request:  request,
		logger: p.logger.With(
			"operation", string(family),
			"correlation_id", rc.CorrelationID,
			"client_id", rc.ClientID,
		),
	}
}

func (a *attempt) trace() domain.Trace {
	return domain.NewTrace(a.identity, a.rc)
}

// checkRequest runs the struct tag rules. The client id is part of every
// key, so it is required too.
func (p *pipeline) checkRequest(req any, rc domain.RequestContext) error {
	if rc.ClientID == "" {
		return application.NewValidationError(domain.NewMissingRequiredFieldError("client id"))
	}
	if err := p.validate.Struct(req); err != nil {
		return application.NewValidationError(err)
	}
	return nil
}

func parseMoney(amount decimal.Decimal, currency string) (domain.Money, error) {
	m, err := domain.NewMoney(amount, currency)
	if err != nil {
		return domain.Money{}, application.NewValidationError(err)
	}
	return m, nil
}

// run executes fn on a context detached from the caller's cancellation and
// bounded by the processing timeout. A cancelled caller gets its context
// error back while fn keeps running to completion.
func (p *pipeline) run(ctx context.Context, a *attempt, fn func(ctx context.Context) (*Response, error)) (*Response, error) {
	type result struct {
		resp *Response
		err  error
	}

	runCtx := context.WithoutCancel(ctx)
	cancel := context.CancelFunc(func() {})
	if p.policy.ProcessingTimeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, p.policy.ProcessingTimeout)
	}

	done := make(chan result, 1)
	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("pipeline panicked", "panic", r)
				done <- result{err: application.NewInternalError(fmt.Errorf("panic: %v", r))}
			}
		}()

		runCtx, span := observability.Tracer().Start(runCtx, "payment."+string(a.family),
			trace.WithAttributes(
				attribute.String("payment.operation", string(a.family)),
				attribute.String("payment.correlation_id", a.rc.CorrelationID),
			))
		defer span.End()

		resp, err := fn(runCtx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, application.ToErrorCode(err))
		} else if resp != nil {
			span.SetAttributes(
				attribute.String("payment.id", resp.PaymentID),
				attribute.String("payment.status", string(resp.Status)),
				attribute.Bool("payment.replayed", resp.Replayed),
			)
		}
		done <- result{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		a.logger.Warn("caller went away, pipeline continues in background", "error", ctx.Err())
		return nil, ctx.Err()
	}
}
