package memory

import (
	"context"
	"sync"

	"github.com/kevin07696/recon-service/internal/domain"
	"github.com/kevin07696/recon-service/internal/domain/ports"
)

// RefundRequestRepository is an in-memory refund request store
type RefundRequestRepository struct {
	mu       sync.RWMutex
	requests []domain.RefundRequest
}

// NewRefundRequestRepository constructs a store seeded with the given requests
func NewRefundRequestRepository(requests ...*domain.RefundRequest) *RefundRequestRepository {
	r := &RefundRequestRepository{}
	for _, req := range requests {
		r.Add(req)
	}
	return r
}

// Add appends a refund request
func (r *RefundRequestRepository) Add(req *domain.RefundRequest) {
	r.mu.Lock()
	r.requests = append(r.requests, *req)
	r.mu.Unlock()
}

// ListByOrderID returns copies of the order's requests in the status, in insertion order
func (r *RefundRequestRepository) ListByOrderID(_ context.Context, orderID string, status domain.RefundRequestStatus) ([]*domain.RefundRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.RefundRequest
	for _, req := range r.requests {
		if req.OrderID == orderID && req.Status == status {
			req := req
			out = append(out, &req)
		}
	}
	return out, nil
}

var _ ports.RefundRequestRepository = (*RefundRequestRepository)(nil)
