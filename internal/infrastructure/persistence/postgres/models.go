package postgres

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// LedgerRow mirrors one payment_records row.
type LedgerRow struct {
	PaymentID             string
	ClientReferenceNumber string
	GroupID               string
	ParentReferenceID     *string
	TransactionType       string
	TransactionStatus     string
	RefundKind            string
	RequestedAmount       pgtype.Numeric
	AuthorizedAmount      pgtype.Numeric
	Currency              string
	MaskedCard            string
	GatewayTransactionID  string
	AuthorizationCode     string
	ResponseCode          string
	ResponseMessage       string
	ErrorCode             string
	ClientID              string
	MgmID                 string
	CorrelationID         string
	JourneyID             string
	TransactionID         string
	SourceChannel         string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
