package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kevin07696/recon-service/internal/domain"
	"github.com/kevin07696/recon-service/internal/domain/ports"
)

const reconciliationColumns = `id, utr, from_date, till_date, settlement_amount,
	total_transaction_amount, total_order_amount, refund_sum, total_adjustment_amount,
	transactions, refunds, settlement_date, school_name, school_id, trustee_id, updated_at`

const upsertReconciliationSQL = `
INSERT INTO reconciliations (
	id, utr, from_date, till_date, settlement_amount,
	total_transaction_amount, total_order_amount, refund_sum, total_adjustment_amount,
	transactions, refunds, settlement_date, school_name, school_id, trustee_id, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW()
)
ON CONFLICT (utr)
DO UPDATE SET
	from_date = EXCLUDED.from_date,
	till_date = EXCLUDED.till_date,
	settlement_amount = EXCLUDED.settlement_amount,
	total_transaction_amount = EXCLUDED.total_transaction_amount,
	total_order_amount = EXCLUDED.total_order_amount,
	refund_sum = EXCLUDED.refund_sum,
	total_adjustment_amount = EXCLUDED.total_adjustment_amount,
	transactions = EXCLUDED.transactions,
	refunds = EXCLUDED.refunds,
	settlement_date = EXCLUDED.settlement_date,
	school_name = EXCLUDED.school_name,
	school_id = EXCLUDED.school_id,
	trustee_id = EXCLUDED.trustee_id,
	updated_at = NOW()
RETURNING ` + reconciliationColumns

// ReconciliationRepository implements ports.ReconciliationRepository on Postgres.
// Transactions and refunds are stored as jsonb arrays.
type ReconciliationRepository struct {
	db ports.DBTX
}

// NewReconciliationRepository creates a new reconciliation repository
func NewReconciliationRepository(db ports.DBTX) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

// Upsert inserts or fully replaces the reconciliation for its UTR in one statement
func (r *ReconciliationRepository) Upsert(ctx context.Context, record *domain.ReconciliationRecord) (*domain.ReconciliationRecord, error) {
	if record == nil || record.UTR == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "reconciliation requires a utr")
	}

	amounts, err := numerics(
		record.SettlementAmount,
		record.TotalTransactionAmount,
		record.TotalOrderAmount,
		record.RefundSum,
		record.TotalAdjustmentAmount,
	)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeValidationFailed, "invalid reconciliation amount", err)
	}

	transactions, err := marshalList(record.Transactions)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalError, "marshal transactions", err)
	}
	refunds, err := marshalList(record.Refunds)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalError, "marshal refunds", err)
	}

	row := r.db.QueryRow(ctx, upsertReconciliationSQL,
		uuid.New(),
		record.UTR,
		record.FromDate.UTC(),
		record.TillDate.UTC(),
		amounts[0],
		amounts[1],
		amounts[2],
		amounts[3],
		amounts[4],
		transactions,
		refunds,
		record.SettlementDate.UTC(),
		record.SchoolName,
		record.SchoolID,
		record.TrusteeID,
	)

	stored, err := scanReconciliation(row)
	if err != nil {
		return nil, dbError("upsert reconciliation", err)
	}
	return stored, nil
}

// GetByUTR loads the reconciliation for a UTR
func (r *ReconciliationRepository) GetByUTR(ctx context.Context, utr string) (*domain.ReconciliationRecord, error) {
	row := r.db.QueryRow(ctx, `SELECT `+reconciliationColumns+` FROM reconciliations WHERE utr = $1`, utr)

	stored, err := scanReconciliation(row)
	if err != nil {
		return nil, dbError("get reconciliation", err)
	}
	return stored, nil
}

// marshalList encodes a slice as a JSON array; nil encodes as []
func marshalList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func scanReconciliation(row rowScanner) (*domain.ReconciliationRecord, error) {
	var (
		id                              uuid.UUID
		rec                             domain.ReconciliationRecord
		settlementAmt, txnAmt, orderAmt pgtype.Numeric
		refundSum, adjustment           pgtype.Numeric
		transactionsJSON, refundsJSON   []byte
	)

	if err := row.Scan(
		&id,
		&rec.UTR,
		&rec.FromDate,
		&rec.TillDate,
		&settlementAmt,
		&txnAmt,
		&orderAmt,
		&refundSum,
		&adjustment,
		&transactionsJSON,
		&refundsJSON,
		&rec.SettlementDate,
		&rec.SchoolName,
		&rec.SchoolID,
		&rec.TrusteeID,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}

	amounts, err := decimals(&settlementAmt, &txnAmt, &orderAmt, &refundSum, &adjustment)
	if err != nil {
		return nil, fmt.Errorf("decode reconciliation amounts: %w", err)
	}
	if err := json.Unmarshal(transactionsJSON, &rec.Transactions); err != nil {
		return nil, fmt.Errorf("unmarshal transactions: %w", err)
	}
	if err := json.Unmarshal(refundsJSON, &rec.Refunds); err != nil {
		return nil, fmt.Errorf("unmarshal refunds: %w", err)
	}

	rec.ID = id.String()
	rec.SettlementAmount = amounts[0]
	rec.TotalTransactionAmount = amounts[1]
	rec.TotalOrderAmount = amounts[2]
	rec.RefundSum = amounts[3]
	rec.TotalAdjustmentAmount = amounts[4]
	return &rec, nil
}

var _ ports.ReconciliationRepository = (*ReconciliationRepository)(nil)
