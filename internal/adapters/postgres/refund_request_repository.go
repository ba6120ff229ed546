package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kevin07696/recon-service/internal/domain"
	"github.com/kevin07696/recon-service/internal/domain/ports"
)

// RefundRequestRepository reads refund requests from Postgres
type RefundRequestRepository struct {
	db ports.DBTX
}

// NewRefundRequestRepository creates a new refund request repository
func NewRefundRequestRepository(db ports.DBTX) *RefundRequestRepository {
	return &RefundRequestRepository{db: db}
}

// ListByOrderID returns the order's refund requests in the status, oldest first
func (r *RefundRequestRepository) ListByOrderID(ctx context.Context, orderID string, status domain.RefundRequestStatus) ([]*domain.RefundRequest, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, order_id, status, reason, refund_amount, created_at
FROM refund_requests
WHERE order_id = $1 AND status = $2
ORDER BY created_at, id`, orderID, string(status))
	if err != nil {
		return nil, dbError("list refund requests", err)
	}
	defer rows.Close()

	var requests []*domain.RefundRequest
	for rows.Next() {
		var (
			id     uuid.UUID
			req    domain.RefundRequest
			state  string
			amount pgtype.Numeric
		)
		if err := rows.Scan(&id, &req.OrderID, &state, &req.Reason, &amount, &req.CreatedAt); err != nil {
			return nil, dbError("scan refund request", err)
		}
		dec, err := pgNumericToDecimal(amount)
		if err != nil {
			return nil, dbError("decode refund amount", err)
		}
		req.ID = id.String()
		req.Status = domain.RefundRequestStatus(state)
		req.RefundAmount = dec
		requests = append(requests, &req)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("list refund requests", err)
	}

	return requests, nil
}

var _ ports.RefundRequestRepository = (*RefundRequestRepository)(nil)
