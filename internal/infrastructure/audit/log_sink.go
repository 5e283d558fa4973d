package audit

import (
	"context"
	"log/slog"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
)

// LogSink writes audit records to the structured log. Used for local runs.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("component", "audit")}
}

func (s *LogSink) Write(ctx context.Context, record domain.AuditRecord) error {
	s.logger.LogAttrs(ctx, slog.LevelInfo, "audit event",
		slog.String("audit_id", record.ID),
		slog.String("event_type", record.EventType),
		slog.String("subject", record.Subject),
		slog.String("outcome", string(record.Outcome)),
		slog.String("error_code", record.ErrorCode),
		slog.Int64("duration_ms", record.DurationMillis),
		slog.String("correlation_id", record.Context.CorrelationID),
		slog.String("client_id", record.Context.ClientID),
		slog.Any("request", record.RequestPayload),
		slog.Any("response", record.ResponsePayload),
	)
	return nil
}

func (s *LogSink) Close() error { return nil }
