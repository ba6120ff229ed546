package ports

import (
	"context"

	"github.com/kevin07696/recon-service/internal/domain"
)

// MerchantRepository is the merchant directory
type MerchantRepository interface {
	// ListForReconciliation returns the active merchants inside the selection
	ListForReconciliation(ctx context.Context, selection domain.MerchantSelection) ([]*domain.Merchant, error)
}

// RefundRequestRepository reads internally recorded refund requests
type RefundRequestRepository interface {
	// ListByOrderID returns the refund requests for an order in the given status
	ListByOrderID(ctx context.Context, orderID string, status domain.RefundRequestStatus) ([]*domain.RefundRequest, error)
}
