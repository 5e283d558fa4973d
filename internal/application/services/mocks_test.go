package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/infrastructure/cache"
)

// MockLedger keeps records in memory and enforces the one-authorization-per-
// reference rule the real ledger enforces with a unique index.
type MockLedger struct {
	mu      sync.Mutex
	records []*domain.PaymentRecord
	saves   int

	SaveFn                  func(ctx context.Context, record *domain.PaymentRecord) (*domain.PaymentRecord, error)
	FindByReferenceFn       func(ctx context.Context, reference string) ([]*domain.PaymentRecord, error)
	FindByPaymentOrParentFn func(ctx context.Context, id string) ([]*domain.PaymentRecord, error)
}

func NewMockLedger() *MockLedger {
	return &MockLedger{}
}

func (m *MockLedger) Save(ctx context.Context, record *domain.PaymentRecord) (*domain.PaymentRecord, error) {
	m.mu.Lock()
	m.saves++
	fn := m.SaveFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, record)
	}
	return m.insert(record)
}

func (m *MockLedger) insert(record *domain.PaymentRecord) (*domain.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := record.Validate(); err != nil {
		return nil, err
	}
	for _, r := range m.records {
		if r.PaymentID == record.PaymentID {
			return r, nil
		}
		if record.Type == domain.TypeAuthorize && r.Type == domain.TypeAuthorize &&
			r.ClientReferenceNumber == record.ClientReferenceNumber &&
			r.Trace.ClientID == record.Trace.ClientID {
			return nil, application.ErrDuplicateReference
		}
	}
	stored := *record
	m.records = append(m.records, &stored)
	copied := stored
	return &copied, nil
}

func (m *MockLedger) FindByReference(ctx context.Context, reference string) ([]*domain.PaymentRecord, error) {
	if m.FindByReferenceFn != nil {
		return m.FindByReferenceFn(ctx, reference)
	}
	return m.filter(func(r *domain.PaymentRecord) bool {
		return r.ClientReferenceNumber == reference
	}), nil
}

func (m *MockLedger) FindByPaymentOrParent(ctx context.Context, id string) ([]*domain.PaymentRecord, error) {
	if m.FindByPaymentOrParentFn != nil {
		return m.FindByPaymentOrParentFn(ctx, id)
	}
	return m.filter(func(r *domain.PaymentRecord) bool {
		return r.PaymentID == id || r.ParentReferenceID == id
	}), nil
}

func (m *MockLedger) filter(match func(*domain.PaymentRecord) bool) []*domain.PaymentRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.PaymentRecord
	for _, r := range m.records {
		if match(r) {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out
}

// Seed stores records directly, bypassing SaveFn and the save counter.
func (m *MockLedger) Seed(records ...*domain.PaymentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
}

func (m *MockLedger) Records() []*domain.PaymentRecord {
	return m.filter(func(*domain.PaymentRecord) bool { return true })
}

func (m *MockLedger) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// MockGateway approves everything unless RouteFn or ResponseCode says
// otherwise.
type MockGateway struct {
	mu    sync.Mutex
	calls map[domain.TransactionType]int
	last  application.RouteRequest

	ResponseCode string
	Delay        time.Duration
	RouteFn      func(ctx context.Context, req application.RouteRequest) (*application.RouteResult, error)
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		calls:        make(map[domain.TransactionType]int),
		ResponseCode: "00",
	}
}

func (m *MockGateway) Route(ctx context.Context, req application.RouteRequest) (*application.RouteResult, error) {
	m.mu.Lock()
	m.calls[req.Operation]++
	n := m.calls[req.Operation]
	m.last = req
	code := m.ResponseCode
	m.mu.Unlock()

	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.RouteFn != nil {
		return m.RouteFn(ctx, req)
	}
	return &application.RouteResult{
		TransactionID:     fmt.Sprintf("gw-%s-%d", req.Operation, n),
		AuthorizationCode: "AUTH01",
		ResponseCode:      code,
		ResponseMessage:   "ok",
		ApprovedAmount:    req.Amount,
	}, nil
}

func (m *MockGateway) Calls(op domain.TransactionType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MockGateway) Last() application.RouteRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

type RecordingAudit struct {
	mu     sync.Mutex
	events []domain.AuditRecord
}

func (r *RecordingAudit) Publish(record domain.AuditRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, record)
}

func (r *RecordingAudit) Events() []domain.AuditRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditRecord(nil), r.events...)
}

func (r *RecordingAudit) Outcomes() []domain.AuditOutcome {
	var out []domain.AuditOutcome
	for _, e := range r.Events() {
		out = append(out, e.Outcome)
	}
	return out
}

// FailingCache returns ErrCacheUnavailable for every call unless a hook is
// set.
type FailingCache struct {
	GetFn     func(ctx context.Context, key string) (*domain.IdempotencyEntry, error)
	ReserveFn func(ctx context.Context, key string, entry *domain.IdempotencyEntry, ttl time.Duration) (bool, error)
}

func (c *FailingCache) Get(ctx context.Context, key string) (*domain.IdempotencyEntry, error) {
	if c.GetFn != nil {
		return c.GetFn(ctx, key)
	}
	return nil, fmt.Errorf("%w: connection refused", application.ErrCacheUnavailable)
}

func (c *FailingCache) Put(context.Context, string, *domain.IdempotencyEntry, time.Duration) error {
	return fmt.Errorf("%w: connection refused", application.ErrCacheUnavailable)
}

func (c *FailingCache) Reserve(ctx context.Context, key string, entry *domain.IdempotencyEntry, ttl time.Duration) (bool, error) {
	if c.ReserveFn != nil {
		return c.ReserveFn(ctx, key, entry, ttl)
	}
	return false, fmt.Errorf("%w: connection refused", application.ErrCacheUnavailable)
}

func (c *FailingCache) Delete(context.Context, string) error {
	return fmt.Errorf("%w: connection refused", application.ErrCacheUnavailable)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// harness wires every processor against in-memory collaborators.
type harness struct {
	clock   *fakeClock
	cache   application.IdempotencyCache
	ledger  *MockLedger
	gateway *MockGateway
	audit   *RecordingAudit

	authorize *AuthorizeProcessor
	capture   *CaptureProcessor
	refund    *RefundProcessor
	void      *VoidProcessor
	query     *QueryService
}

type harnessOption func(*Dependencies)

func withPolicy(fn func(*Policy)) harnessOption {
	return func(d *Dependencies) { fn(&d.Policy) }
}

func withCache(c application.IdempotencyCache) harnessOption {
	return func(d *Dependencies) { d.Cache = c }
}

func withLedger(l application.Ledger) harnessOption {
	return func(d *Dependencies) { d.Ledger = l }
}

func newHarness(opts ...harnessOption) *harness {
	h := &harness{
		clock:   newFakeClock(),
		ledger:  NewMockLedger(),
		gateway: NewMockGateway(),
		audit:   &RecordingAudit{},
	}
	h.cache = cache.NewMemoryCacheWithClock(h.clock.Now)

	deps := Dependencies{
		Cache:   h.cache,
		Ledger:  h.ledger,
		Gateway: h.gateway,
		Audit:   h.audit,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:   h.clock.Now,
		Policy: Policy{
			IdempotencyTTL:       30 * time.Minute,
			InFlightWait:         2 * time.Second,
			InFlightPollInterval: 5 * time.Millisecond,
			ProcessingTimeout:    5 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(&deps)
	}
	h.cache = deps.Cache

	h.authorize = NewAuthorizeProcessor(deps)
	h.capture = NewCaptureProcessor(deps)
	h.refund = NewRefundProcessor(deps)
	h.void = NewVoidProcessor(deps)
	h.query = NewQueryService(deps.Ledger, deps.Logger)
	return h
}
