package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/infrastructure/persistence"
	"github.com/jackc/pgx/v5"
)

//go:embed schema.sql
var schemaSQL string

const authorizeReferenceConstraint = "payment_records_authorize_reference_key"
const primaryKeyConstraint = "payment_records_pkey"

const selectColumns = `
	payment_id, client_reference_number, group_id, parent_reference_id,
	transaction_type, transaction_status, refund_kind,
	requested_amount, authorized_amount, currency, masked_card,
	gateway_transaction_id, authorization_code, response_code, response_message, error_code,
	client_id, mgm_id, correlation_id, journey_id, transaction_id, source_channel,
	created_at, updated_at`

// LedgerRepository is the append-only payment_records store.
type LedgerRepository struct {
	db persistence.Executor
}

var _ application.Ledger = (*LedgerRepository)(nil)

func NewLedgerRepository(db persistence.Executor) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// EnsureSchema creates the ledger table and indexes if they are missing.
// It is idempotent and meant for tests and local runs.
func EnsureSchema(ctx context.Context, db persistence.Executor) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply ledger schema: %w", err)
	}
	return nil
}

// Save inserts a terminal record. A second authorization for the same client
// reference returns application.ErrDuplicateReference. Re-inserting a record
// whose payment id already exists is treated as success, so a retried write
// that had in fact committed does not fail.
func (r *LedgerRepository) Save(ctx context.Context, record *domain.PaymentRecord) (*domain.PaymentRecord, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO payment_records (
			payment_id, client_reference_number, group_id, parent_reference_id,
			transaction_type, transaction_status, refund_kind,
			requested_amount, authorized_amount, currency, masked_card,
			gateway_transaction_id, authorization_code, response_code, response_message, error_code,
			client_id, mgm_id, correlation_id, journey_id, transaction_id, source_channel,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8::numeric, $9::numeric, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
		)
	`

	_, err := r.db.Exec(ctx, query, insertArgs(record)...)
	if err != nil {
		if persistence.IsUniqueViolation(err) {
			switch persistence.ViolatedConstraint(err) {
			case authorizeReferenceConstraint:
				return nil, fmt.Errorf("%w: %s", application.ErrDuplicateReference, record.ClientReferenceNumber)
			case primaryKeyConstraint:
				return record, nil
			}
		}
		return nil, fmt.Errorf("failed to save payment record: %w", err)
	}

	return record, nil
}

// FindByReference returns every record written with the client reference number.
func (r *LedgerRepository) FindByReference(ctx context.Context, clientReferenceNumber string) ([]*domain.PaymentRecord, error) {
	query := `SELECT` + selectColumns + `
		FROM payment_records
		WHERE client_reference_number = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, clientReferenceNumber)
	if err != nil {
		return nil, fmt.Errorf("query payment records by reference: %w", err)
	}
	return collectRecords(rows)
}

// FindByPaymentOrParent returns the record with the id together with the
// records linked to it as their parent.
func (r *LedgerRepository) FindByPaymentOrParent(ctx context.Context, id string) ([]*domain.PaymentRecord, error) {
	query := `SELECT` + selectColumns + `
		FROM payment_records
		WHERE payment_id = $1 OR parent_reference_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query payment records by id: %w", err)
	}
	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]*domain.PaymentRecord, error) {
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.PaymentRecord, error) {
		var m LedgerRow
		err := row.Scan(
			&m.PaymentID, &m.ClientReferenceNumber, &m.GroupID, &m.ParentReferenceID,
			&m.TransactionType, &m.TransactionStatus, &m.RefundKind,
			&m.RequestedAmount, &m.AuthorizedAmount, &m.Currency, &m.MaskedCard,
			&m.GatewayTransactionID, &m.AuthorizationCode, &m.ResponseCode, &m.ResponseMessage, &m.ErrorCode,
			&m.ClientID, &m.MgmID, &m.CorrelationID, &m.JourneyID, &m.TransactionID, &m.SourceChannel,
			&m.CreatedAt, &m.UpdatedAt,
		)
		return toDomainModel(m), err
	})
	if err != nil {
		return nil, fmt.Errorf("scan payment records: %w", err)
	}
	return results, nil
}
