package ports

import (
	"context"

	"github.com/kevin07696/recon-service/internal/domain"
)

// SettlementRepository persists SettlementRecords keyed by UTR
type SettlementRepository interface {
	// Upsert creates or fully replaces the record for record.UTR and returns
	// the row as stored
	Upsert(ctx context.Context, record *domain.SettlementRecord) (*domain.SettlementRecord, error)

	// GetByUTR returns domain.ErrRecordNotFound when no row exists
	GetByUTR(ctx context.Context, utr string) (*domain.SettlementRecord, error)
}

// ReconciliationRepository persists ReconciliationRecords keyed by UTR
type ReconciliationRepository interface {
	// Upsert creates or fully replaces the record for record.UTR
	Upsert(ctx context.Context, record *domain.ReconciliationRecord) (*domain.ReconciliationRecord, error)

	// GetByUTR returns domain.ErrRecordNotFound when no row exists
	GetByUTR(ctx context.Context, utr string) (*domain.ReconciliationRecord, error)
}
