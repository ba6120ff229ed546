package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kevin07696/recon-service/internal/domain"
	"github.com/kevin07696/recon-service/internal/domain/ports"
)

// SettlementRepository is an in-memory settlement store keyed by UTR
type SettlementRepository struct {
	mu   sync.RWMutex
	data map[string]domain.SettlementRecord
	now  func() time.Time
}

// NewSettlementRepository constructs a repository
func NewSettlementRepository() *SettlementRepository {
	return &SettlementRepository{data: make(map[string]domain.SettlementRecord), now: time.Now}
}

// Upsert stores the record, keeping the existing ID when the UTR is already present
func (r *SettlementRepository) Upsert(_ context.Context, record *domain.SettlementRecord) (*domain.SettlementRecord, error) {
	if record == nil || record.UTR == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "settlement requires a utr")
	}

	stored := *record
	r.mu.Lock()
	if existing, ok := r.data[record.UTR]; ok {
		stored.ID = existing.ID
	} else {
		stored.ID = uuid.NewString()
	}
	stored.UpdatedAt = r.now().UTC()
	r.data[record.UTR] = stored
	r.mu.Unlock()

	return &stored, nil
}

// GetByUTR returns a copy of the stored record
func (r *SettlementRepository) GetByUTR(_ context.Context, utr string) (*domain.SettlementRecord, error) {
	r.mu.RLock()
	stored, ok := r.data[utr]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return &stored, nil
}

// Count returns the number of stored settlements
func (r *SettlementRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

var _ ports.SettlementRepository = (*SettlementRepository)(nil)
