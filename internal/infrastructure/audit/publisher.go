// Package audit delivers audit records off the request path.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/config"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/observability"
	"github.com/google/uuid"
)

// Sink is the durable destination of audit records.
type Sink interface {
	Write(ctx context.Context, record domain.AuditRecord) error
	Close() error
}

// AsyncPublisher buffers records in a channel drained by one worker
// goroutine. Publish never blocks; when the buffer is full the record is
// dropped and counted.
type AsyncPublisher struct {
	sink    Sink
	events  chan domain.AuditRecord
	topic   string
	timeout time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.RWMutex
	closed   bool
	abandon  chan struct{}
	done     chan struct{}
	closeErr error
}

var _ application.AuditPublisher = (*AsyncPublisher)(nil)

func NewAsyncPublisher(sink Sink, cfg config.AuditConfig, logger *slog.Logger, metrics *observability.Metrics) *AsyncPublisher {
	size := cfg.BufferSize
	if size < 1 {
		size = 1
	}
	p := &AsyncPublisher{
		sink:    sink,
		events:  make(chan domain.AuditRecord, size),
		topic:   cfg.Subject,
		timeout: cfg.PublishTimeout,
		logger:  logger,
		metrics: metrics,
		abandon: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish enqueues the record. Missing ids, timestamps and topics are
// filled in here.
func (p *AsyncPublisher) Publish(record domain.AuditRecord) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	if record.Topic == "" {
		record.Topic = p.topic
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.drop(record, "closed")
		return
	}

	select {
	case p.events <- record:
	default:
		p.drop(record, "buffer_full")
	}
}

func (p *AsyncPublisher) drop(record domain.AuditRecord, reason string) {
	p.metrics.AuditDropped(reason)
	p.logger.Warn("audit event dropped",
		"reason", reason,
		"event_type", record.EventType,
		"subject", record.Subject,
		"correlation_id", record.Context.CorrelationID,
	)
}

// run owns the sink: it is closed here once the buffer is drained or
// abandoned, never while a write is in flight.
func (p *AsyncPublisher) run() {
	defer close(p.done)
	for record := range p.events {
		select {
		case <-p.abandon:
			p.drop(record, "shutdown")
			continue
		default:
		}
		p.write(record)
	}

	if err := p.sink.Close(); err != nil {
		p.closeErr = err
		p.logger.Error("failed to close audit sink", "error", err)
	}
}

func (p *AsyncPublisher) write(record domain.AuditRecord) {
	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.sink.Write(ctx, record); err != nil {
		p.metrics.AuditDropped("sink_error")
		p.logger.Error("failed to write audit event",
			"event_type", record.EventType,
			"subject", record.Subject,
			"correlation_id", record.Context.CorrelationID,
			"error", err,
		)
		return
	}
	p.metrics.AuditPublished()
}

// Close stops accepting records, drains the buffer and closes the sink.
// If ctx expires first the remaining records are abandoned and the sink is
// closed by the worker after its current write.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	select {
	case <-p.done:
		return p.closeErr
	case <-ctx.Done():
		close(p.abandon)
		p.logger.Warn("audit drain interrupted", "pending", len(p.events))
		return ctx.Err()
	}
}
