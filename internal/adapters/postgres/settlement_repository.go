package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kevin07696/recon-service/internal/domain"
	"github.com/kevin07696/recon-service/internal/domain/ports"
)

const settlementColumns = `id, utr, settlement_amount, net_settlement_amount, adjustment,
	from_date, till_date, status, settlement_date, trustee_id, school_id, updated_at`

const upsertSettlementSQL = `
INSERT INTO settlements (
	id, utr, settlement_amount, net_settlement_amount, adjustment,
	from_date, till_date, status, settlement_date, trustee_id, school_id, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW()
)
ON CONFLICT (utr)
DO UPDATE SET
	settlement_amount = EXCLUDED.settlement_amount,
	net_settlement_amount = EXCLUDED.net_settlement_amount,
	adjustment = EXCLUDED.adjustment,
	from_date = EXCLUDED.from_date,
	till_date = EXCLUDED.till_date,
	status = EXCLUDED.status,
	settlement_date = EXCLUDED.settlement_date,
	trustee_id = EXCLUDED.trustee_id,
	school_id = EXCLUDED.school_id,
	updated_at = NOW()
RETURNING ` + settlementColumns

// SettlementRepository implements ports.SettlementRepository on Postgres
type SettlementRepository struct {
	db ports.DBTX
}

// NewSettlementRepository creates a new settlement repository
func NewSettlementRepository(db ports.DBTX) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// Upsert inserts or fully replaces the settlement for its UTR in one statement
func (r *SettlementRepository) Upsert(ctx context.Context, record *domain.SettlementRecord) (*domain.SettlementRecord, error) {
	if record == nil || record.UTR == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "settlement requires a utr")
	}

	amounts, err := numerics(record.SettlementAmount, record.NetSettlementAmount)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeValidationFailed, "invalid settlement amount", err)
	}

	row := r.db.QueryRow(ctx, upsertSettlementSQL,
		uuid.New(),
		record.UTR,
		amounts[0],
		amounts[1],
		record.Adjustment,
		record.FromDate.UTC(),
		record.TillDate.UTC(),
		record.Status,
		record.SettlementDate.UTC(),
		record.TrusteeID,
		record.SchoolID,
	)

	stored, err := scanSettlement(row)
	if err != nil {
		return nil, dbError("upsert settlement", err)
	}
	return stored, nil
}

// GetByUTR loads the settlement for a UTR
func (r *SettlementRepository) GetByUTR(ctx context.Context, utr string) (*domain.SettlementRecord, error) {
	row := r.db.QueryRow(ctx, `SELECT `+settlementColumns+` FROM settlements WHERE utr = $1`, utr)

	stored, err := scanSettlement(row)
	if err != nil {
		return nil, dbError("get settlement", err)
	}
	return stored, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettlement(row rowScanner) (*domain.SettlementRecord, error) {
	var (
		id                    uuid.UUID
		rec                   domain.SettlementRecord
		settlementAmt, netAmt pgtype.Numeric
	)

	if err := row.Scan(
		&id,
		&rec.UTR,
		&settlementAmt,
		&netAmt,
		&rec.Adjustment,
		&rec.FromDate,
		&rec.TillDate,
		&rec.Status,
		&rec.SettlementDate,
		&rec.TrusteeID,
		&rec.SchoolID,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}

	amounts, err := decimals(&settlementAmt, &netAmt)
	if err != nil {
		return nil, fmt.Errorf("decode settlement amounts: %w", err)
	}

	rec.ID = id.String()
	rec.SettlementAmount = amounts[0]
	rec.NetSettlementAmount = amounts[1]
	return &rec, nil
}

var _ ports.SettlementRepository = (*SettlementRepository)(nil)
