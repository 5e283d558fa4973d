package domain

import (
	"fmt"
	"strings"
	"time"
)

// AuditOutcome is the result recorded for one operation attempt.
type AuditOutcome string

const (
	OutcomeApproved AuditOutcome = "APPROVED"
	OutcomeDeclined AuditOutcome = "DECLINED"
	OutcomeReversed AuditOutcome = "REVERSED"
	OutcomeFailed   AuditOutcome = "FAILED"
	OutcomeReplayed AuditOutcome = "REPLAYED"
	OutcomeRejected AuditOutcome = "REJECTED"
	OutcomeError    AuditOutcome = "ERROR"
)

// OutcomeForStatus maps a terminal record status onto an audit outcome.
func OutcomeForStatus(s TransactionStatus) AuditOutcome {
	switch s {
	case StatusApproved:
		return OutcomeApproved
	case StatusDeclined:
		return OutcomeDeclined
	case StatusReversed:
		return OutcomeReversed
	case StatusFailed:
		return OutcomeFailed
	}
	return OutcomeError
}

// AuditRecord is immutable once built. Payloads must already be sanitised.
type AuditRecord struct {
	ID              string          `json:"id"`
	Timestamp       time.Time       `json:"timestamp"`
	Subject         string          `json:"subject"`
	Topic           string          `json:"topic"`
	EventType       string          `json:"eventType"`
	Operation       OperationFamily `json:"operation"`
	Outcome         AuditOutcome    `json:"outcome"`
	ErrorCode       string          `json:"errorCode,omitempty"`
	RequestPayload  map[string]any  `json:"request"`
	ResponsePayload map[string]any  `json:"response,omitempty"`
	StartedAt       time.Time       `json:"startedAt"`
	DurationMillis  int64           `json:"durationMs"`
	Context         RequestContext  `json:"context"`
	Identity        Identity        `json:"identity"`
}

// EventType builds payment.<operation>.<outcome>.
func EventType(op OperationFamily, outcome AuditOutcome) string {
	return fmt.Sprintf("payment.%s.%s", op, strings.ToLower(string(outcome)))
}

// AuditSubject prefers the payment id and falls back to the reference.
func AuditSubject(paymentID, reference string) string {
	if paymentID != "" {
		return "payments/" + paymentID
	}
	return "payments/" + reference
}
