package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EnrichedRecord is the payments service's view of one collect ID. Transaction
// and refund lookups share these fields; refund-only fields are zero for
// transactions.
type EnrichedRecord struct {
	CollectID         string
	OrderID           string
	CustomOrderID     string
	OrderAmount       decimal.Decimal
	TransactionAmount decimal.Decimal
	PaymentMethod     string
	Status            string
	PaymentTime       time.Time
	BankReference     string
	StudentName       string
	StudentID         string

	RefundID     string
	RefundAmount decimal.Decimal
	RefundTime   *time.Time
}

// EnrichmentClient resolves bare transaction/refund identifiers via the payments service
type EnrichmentClient interface {
	// ResolveCollectIDs fails with ENRICHMENT_UNAVAILABLE on transport errors
	ResolveCollectIDs(ctx context.Context, ids []string, utr string) ([]*EnrichedRecord, error)
}
