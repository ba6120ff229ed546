package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/kevin07696/recon-service/internal/domain"
	"github.com/kevin07696/recon-service/internal/domain/ports"
)

// MerchantRepository is an in-memory merchant directory
type MerchantRepository struct {
	mu        sync.RWMutex
	merchants map[string]domain.Merchant
}

// NewMerchantRepository constructs a directory seeded with the given merchants
func NewMerchantRepository(merchants ...*domain.Merchant) *MerchantRepository {
	r := &MerchantRepository{merchants: make(map[string]domain.Merchant)}
	for _, m := range merchants {
		r.Add(m)
	}
	return r
}

// Add inserts or replaces a merchant by ID
func (r *MerchantRepository) Add(m *domain.Merchant) {
	r.mu.Lock()
	r.merchants[m.ID] = *m
	r.mu.Unlock()
}

// ListForReconciliation returns copies of the matching merchants ordered by name
func (r *MerchantRepository) ListForReconciliation(_ context.Context, selection domain.MerchantSelection) ([]*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Merchant
	for _, m := range r.merchants {
		m := m
		if selection.Matches(&m) {
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

var _ ports.MerchantRepository = (*MerchantRepository)(nil)
