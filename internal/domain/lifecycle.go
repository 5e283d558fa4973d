package domain

import (
	"github.com/shopspring/decimal"
)

// PaymentState is the effective state of an authorization derived from its
// linked records.
type PaymentState string

const (
	StatePending           PaymentState = "PENDING"
	StateAuthorized        PaymentState = "AUTHORIZED"
	StateCaptured          PaymentState = "CAPTURED"
	StatePartiallyRefunded PaymentState = "PARTIALLY_REFUNDED"
	StateRefunded          PaymentState = "REFUNDED"
	StateReversed          PaymentState = "REVERSED"
	StateDeclined          PaymentState = "DECLINED"
	StateFailed            PaymentState = "FAILED"
)

// Lifecycle is an authorization together with the capture, refund and void
// records that point at it.
type Lifecycle struct {
	Authorization *PaymentRecord
	Captures      []*PaymentRecord
	Refunds       []*PaymentRecord
	Voids         []*PaymentRecord
}

// NewLifecycle assembles a lifecycle from the rows returned for one
// authorization id. Records that belong to another parent are ignored.
func NewLifecycle(records []*PaymentRecord) (*Lifecycle, bool) {
	var auth *PaymentRecord
	for _, r := range records {
		if r.Type == TypeAuthorize {
			auth = r
			break
		}
	}
	if auth == nil {
		return nil, false
	}

	lc := &Lifecycle{Authorization: auth}
	for _, r := range records {
		if r.ParentReferenceID != auth.PaymentID {
			continue
		}
		switch r.Type {
		case TypeCapture:
			lc.Captures = append(lc.Captures, r)
		case TypeRefund:
			lc.Refunds = append(lc.Refunds, r)
		case TypeVoid:
			lc.Voids = append(lc.Voids, r)
		}
	}
	return lc, true
}

// AuthorizationID is the parent reference every child record carries.
func (l *Lifecycle) AuthorizationID() string {
	return l.Authorization.PaymentID
}

// AuthorizedAmount is what the gateway approved on the authorization.
func (l *Lifecycle) AuthorizedAmount() decimal.Decimal {
	return l.Authorization.AuthorizedAmount
}

func (l *Lifecycle) CapturedTotal() decimal.Decimal {
	return approvedTotal(l.Captures)
}

func (l *Lifecycle) RefundedTotal() decimal.Decimal {
	return approvedTotal(l.Refunds)
}

// ApprovedCapture returns the settled capture, if any.
func (l *Lifecycle) ApprovedCapture() *PaymentRecord {
	for _, c := range l.Captures {
		if c.Status == StatusApproved {
			return c
		}
	}
	return nil
}

func (l *Lifecycle) IsReversed() bool {
	for _, v := range l.Voids {
		if v.Status == StatusReversed {
			return true
		}
	}
	return false
}

func (l *Lifecycle) State() PaymentState {
	switch l.Authorization.Status {
	case StatusPending:
		return StatePending
	case StatusDeclined:
		return StateDeclined
	case StatusFailed:
		return StateFailed
	}
	if l.IsReversed() {
		return StateReversed
	}

	refunded := l.RefundedTotal()
	base := l.AuthorizedAmount()
	if l.ApprovedCapture() != nil {
		base = l.CapturedTotal()
	} else if refunded.IsZero() {
		return StateAuthorized
	}

	switch {
	case refunded.IsZero():
		return StateCaptured
	case refunded.GreaterThanOrEqual(base):
		return StateRefunded
	default:
		return StatePartiallyRefunded
	}
}

// CanCapture allows a single capture up to the authorized amount.
func (l *Lifecycle) CanCapture(amount Money) error {
	if err := l.requireApproved(amount); err != nil {
		return err
	}
	if l.IsReversed() {
		return NewInvalidStateError(string(StateReversed), string(StateAuthorized))
	}
	if l.ApprovedCapture() != nil {
		return NewInvalidStateError(string(l.State()), string(StateAuthorized))
	}
	if amount.Amount.GreaterThan(l.AuthorizedAmount()) {
		return NewAmountExceededError(amount.Amount.StringFixed(2), l.AuthorizedAmount().StringFixed(2))
	}
	return nil
}

// RefundLimit is the amount still refundable for the given kind.
func (l *Lifecycle) RefundLimit(kind RefundKind) decimal.Decimal {
	base := l.AuthorizedAmount()
	if kind == RefundCaptured {
		base = l.CapturedTotal()
	}
	remaining := base.Sub(l.RefundedTotal())
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// CanRefund checks the cumulative refund rule: approved refunds never exceed
// the captured amount (CAPTURED) or the authorized amount (ADHOC).
func (l *Lifecycle) CanRefund(kind RefundKind, amount Money) error {
	if err := l.requireApproved(amount); err != nil {
		return err
	}
	if l.IsReversed() {
		return NewInvalidStateError(string(StateReversed), "a refundable payment")
	}
	if kind == RefundCaptured && l.ApprovedCapture() == nil {
		return NewInvalidStateError(string(l.State()), string(StateCaptured))
	}
	limit := l.RefundLimit(kind)
	if amount.Amount.GreaterThan(limit) {
		return NewAmountExceededError(amount.Amount.StringFixed(2), limit.StringFixed(2))
	}
	return nil
}

// CanVoid allows reversing an approved authorization that has not been
// captured. allowAfterCapture extends this to captured payments that have no
// refunds.
func (l *Lifecycle) CanVoid(allowAfterCapture bool) error {
	if l.Authorization.Status != StatusApproved {
		return NewInvalidStateError(string(l.State()), string(StateAuthorized))
	}
	if l.IsReversed() {
		return NewInvalidStateError(string(StateReversed), string(StateAuthorized))
	}
	if len(approvedOnly(l.Refunds)) > 0 {
		return NewInvalidStateError(string(l.State()), string(StateAuthorized))
	}
	if l.ApprovedCapture() != nil && !allowAfterCapture {
		return NewInvalidStateError(string(StateCaptured), string(StateAuthorized))
	}
	return nil
}

func (l *Lifecycle) requireApproved(amount Money) error {
	if l.Authorization.Status != StatusApproved {
		return NewInvalidStateError(string(l.State()), string(StateAuthorized))
	}
	if amount.Currency != l.Authorization.Currency {
		return NewInvalidCurrencyError(amount.Currency)
	}
	return nil
}

func approvedOnly(records []*PaymentRecord) []*PaymentRecord {
	var out []*PaymentRecord
	for _, r := range records {
		if r.Status == StatusApproved {
			out = append(out, r)
		}
	}
	return out
}

func approvedTotal(records []*PaymentRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range approvedOnly(records) {
		total = total.Add(r.AuthorizedAmount)
	}
	return total
}
