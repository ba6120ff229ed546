package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kevin07696/recon-service/internal/domain"
	"github.com/kevin07696/recon-service/internal/domain/ports"
)

// ReconciliationRepository is an in-memory reconciliation store keyed by UTR
type ReconciliationRepository struct {
	mu   sync.RWMutex
	data map[string]domain.ReconciliationRecord
	now  func() time.Time
}

// NewReconciliationRepository constructs a repository
func NewReconciliationRepository() *ReconciliationRepository {
	return &ReconciliationRepository{data: make(map[string]domain.ReconciliationRecord), now: time.Now}
}

// Upsert stores a deep copy of the record, keeping the existing ID when the UTR is already present
func (r *ReconciliationRepository) Upsert(_ context.Context, record *domain.ReconciliationRecord) (*domain.ReconciliationRecord, error) {
	if record == nil || record.UTR == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "reconciliation requires a utr")
	}

	stored := cloneReconciliation(*record)
	r.mu.Lock()
	if existing, ok := r.data[record.UTR]; ok {
		stored.ID = existing.ID
	} else {
		stored.ID = uuid.NewString()
	}
	stored.UpdatedAt = r.now().UTC()
	r.data[record.UTR] = stored
	r.mu.Unlock()

	out := cloneReconciliation(stored)
	return &out, nil
}

// GetByUTR returns a deep copy of the stored record
func (r *ReconciliationRepository) GetByUTR(_ context.Context, utr string) (*domain.ReconciliationRecord, error) {
	r.mu.RLock()
	stored, ok := r.data[utr]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	out := cloneReconciliation(stored)
	return &out, nil
}

// Count returns the number of stored reconciliations
func (r *ReconciliationRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

func cloneReconciliation(rec domain.ReconciliationRecord) domain.ReconciliationRecord {
	if rec.Transactions != nil {
		rec.Transactions = append([]domain.ReconTransactionInfo(nil), rec.Transactions...)
	}
	if rec.Refunds != nil {
		refunds := make([]domain.ReconRefundInfo, len(rec.Refunds))
		for i, rf := range rec.Refunds {
			if rf.RefundInfo != nil {
				rf.RefundInfo = append([]domain.RefundRequestRef(nil), rf.RefundInfo...)
			}
			refunds[i] = rf
		}
		rec.Refunds = refunds
	}
	return rec
}

var _ ports.ReconciliationRepository = (*ReconciliationRepository)(nil)
