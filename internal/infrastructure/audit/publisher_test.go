package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/config"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	records []domain.AuditRecord
	block   chan struct{}
	err     error
	closed  bool
}

func (s *recordingSink) Write(ctx context.Context, record domain.AuditRecord) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *recordingSink) Records() []domain.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditRecord(nil), s.records...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func auditConfig(size int) config.AuditConfig {
	return config.AuditConfig{Sink: "log", BufferSize: size, PublishTimeout: time.Second, Subject: "payments.audit"}
}

func sampleRecord(subject string) domain.AuditRecord {
	return domain.AuditRecord{
		Subject:   subject,
		EventType: domain.EventType(domain.FamilyAuthorize, domain.OutcomeApproved),
		Operation: domain.FamilyAuthorize,
		Outcome:   domain.OutcomeApproved,
		Context:   domain.RequestContext{CorrelationID: "corr-1", ClientID: "client-1"},
	}
}

func TestAsyncPublisher_DeliversAndStamps(t *testing.T) {
	sink := &recordingSink{}
	p := NewAsyncPublisher(sink, auditConfig(8), discardLogger(), nil)

	p.Publish(sampleRecord("payments/p-1"))
	require.NoError(t, p.Close(context.Background()))

	records := sink.Records()
	require.Len(t, records, 1)
	assert.NotEmpty(t, records[0].ID)
	assert.False(t, records[0].Timestamp.IsZero())
	assert.Equal(t, "payments.audit", records[0].Topic)
	assert.True(t, sink.IsClosed())
}

func TestAsyncPublisher_DropsWhenBufferFull(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	p := NewAsyncPublisher(sink, auditConfig(1), discardLogger(), nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			p.Publish(sampleRecord("payments/p-1"))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full buffer")
	}

	close(sink.block)
	require.NoError(t, p.Close(context.Background()))
	assert.Less(t, len(sink.Records()), 10)
	assert.NotEmpty(t, sink.Records())
}

func TestAsyncPublisher_SinkErrorDoesNotStopWorker(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker down")}
	p := NewAsyncPublisher(sink, auditConfig(4), discardLogger(), nil)

	p.Publish(sampleRecord("payments/p-1"))
	p.Publish(sampleRecord("payments/p-2"))

	require.NoError(t, p.Close(context.Background()))
	assert.Empty(t, sink.Records())
}

func TestAsyncPublisher_PublishAfterClose(t *testing.T) {
	sink := &recordingSink{}
	p := NewAsyncPublisher(sink, auditConfig(4), discardLogger(), nil)
	require.NoError(t, p.Close(context.Background()))

	assert.NotPanics(t, func() { p.Publish(sampleRecord("payments/p-1")) })
	assert.NoError(t, p.Close(context.Background()))
	assert.Empty(t, sink.Records())
}

func TestAsyncPublisher_CloseHonoursContext(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	p := NewAsyncPublisher(sink, auditConfig(4), discardLogger(), nil)
	p.Publish(sampleRecord("payments/p-1"))
	p.Publish(sampleRecord("payments/p-2"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, sink.IsClosed(), "sink closed while a write was in flight")

	close(sink.block)
	require.Eventually(t, sink.IsClosed, time.Second, 5*time.Millisecond)
	records := sink.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "payments/p-1", records[0].Subject)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaSink_Write(t *testing.T) {
	w := &fakeWriter{}
	sink := &KafkaSink{writer: w}

	record := sampleRecord("payments/p-1")
	record.RequestPayload = map[string]any{"maskedCard": "************1111"}
	require.NoError(t, sink.Write(context.Background(), record))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "payments/p-1", string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "payment.authorize.approved", string(msg.Headers[0].Value))
	assert.Equal(t, "corr-1", string(msg.Headers[1].Value))

	var decoded domain.AuditRecord
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, domain.OutcomeApproved, decoded.Outcome)
	assert.Equal(t, "************1111", decoded.RequestPayload["maskedCard"])
}

func TestKafkaSink_WriteError(t *testing.T) {
	sink := &KafkaSink{writer: &fakeWriter{err: errors.New("leader not available")}}

	err := sink.Write(context.Background(), sampleRecord("payments/p-1"))
	assert.ErrorContains(t, err, "leader not available")
}

func TestLogSink_Write(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, sink.Write(context.Background(), sampleRecord("payments/p-9")))

	assert.Contains(t, buf.String(), `"subject":"payments/p-9"`)
	assert.Contains(t, buf.String(), `"event_type":"payment.authorize.approved"`)
}
