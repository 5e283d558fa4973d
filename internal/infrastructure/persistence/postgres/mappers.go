package postgres

import (
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// toDomainModel: maps db row to domain record
func toDomainModel(m LedgerRow) *domain.PaymentRecord {
	rec := &domain.PaymentRecord{
		PaymentID:             m.PaymentID,
		ClientReferenceNumber: m.ClientReferenceNumber,
		GroupID:               m.GroupID,
		Type:                  domain.TransactionType(m.TransactionType),
		Status:                domain.TransactionStatus(m.TransactionStatus),
		RefundKind:            domain.RefundKind(m.RefundKind),
		RequestedAmount:       numericToDecimal(m.RequestedAmount),
		AuthorizedAmount:      numericToDecimal(m.AuthorizedAmount),
		Currency:              m.Currency,
		MaskedCard:            m.MaskedCard,
		Gateway: domain.GatewayDetails{
			TransactionID:     m.GatewayTransactionID,
			AuthorizationCode: m.AuthorizationCode,
			ResponseCode:      m.ResponseCode,
			ResponseMessage:   m.ResponseMessage,
		},
		ErrorCode: m.ErrorCode,
		Trace: domain.Trace{
			ClientID:      m.ClientID,
			MgmID:         m.MgmID,
			CorrelationID: m.CorrelationID,
			JourneyID:     m.JourneyID,
			TransactionID: m.TransactionID,
			SourceChannel: m.SourceChannel,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.ParentReferenceID != nil {
		rec.ParentReferenceID = *m.ParentReferenceID
	}
	return rec
}

// insertArgs: maps domain record to insert parameters, in column order.
// Amounts are sent as decimal strings so NUMERIC keeps exact precision.
func insertArgs(r *domain.PaymentRecord) []any {
	var parent *string
	if r.ParentReferenceID != "" {
		parent = &r.ParentReferenceID
	}
	return []any{
		r.PaymentID,
		r.ClientReferenceNumber,
		r.GroupID,
		parent,
		string(r.Type),
		string(r.Status),
		string(r.RefundKind),
		r.RequestedAmount.StringFixed(2),
		r.AuthorizedAmount.StringFixed(2),
		r.Currency,
		r.MaskedCard,
		r.Gateway.TransactionID,
		r.Gateway.AuthorizationCode,
		r.Gateway.ResponseCode,
		r.Gateway.ResponseMessage,
		r.ErrorCode,
		r.Trace.ClientID,
		r.Trace.MgmID,
		r.Trace.CorrelationID,
		r.Trace.JourneyID,
		r.Trace.TransactionID,
		r.Trace.SourceChannel,
		r.CreatedAt,
		r.UpdatedAt,
	}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
