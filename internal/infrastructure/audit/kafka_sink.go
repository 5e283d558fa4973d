package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/config"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes one message per record, keyed by subject so every event
// for a payment lands on the same partition.
type KafkaSink struct {
	writer messageWriter
}

func NewKafkaSink(cfg config.KafkaConfig) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: cfg.BatchTimeout,
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (s *KafkaSink) Write(ctx context.Context, record domain.AuditRecord) error {
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode audit record: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(record.Subject),
		Value: value,
		Time:  record.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(record.EventType)},
			{Key: "correlation_id", Value: []byte(record.Context.CorrelationID)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write audit message: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
