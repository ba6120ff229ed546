package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefundRequestStatus is the internal approval state of a refund request
type RefundRequestStatus string

const (
	RefundRequestInitiated RefundRequestStatus = "INITIATED"
	RefundRequestApproved  RefundRequestStatus = "APPROVED"
	RefundRequestRejected  RefundRequestStatus = "REJECTED"
)

// RefundRequest is an internally recorded request to refund an order
type RefundRequest struct {
	ID           string              `json:"id"`
	OrderID      string              `json:"order_id"`
	Status       RefundRequestStatus `json:"status"`
	Reason       string              `json:"reason"`
	RefundAmount decimal.Decimal     `json:"refund_amount"`
	CreatedAt    time.Time           `json:"created_at"`
}

// Ref returns the identifier and reason attached to matched refunds
func (r *RefundRequest) Ref() RefundRequestRef {
	return RefundRequestRef{ID: r.ID, Reason: r.Reason}
}
