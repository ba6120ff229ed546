package reconciliation

import (
	"context"

	"go.uber.org/zap"

	adapterports "github.com/kevin07696/recon-service/internal/adapters/ports"
	"github.com/kevin07696/recon-service/internal/domain"
	"github.com/kevin07696/recon-service/internal/domain/ports"
)

// RefundMatcher resolves a payout's refunds and attaches the approved
// internal refund requests of each refund's order
type RefundMatcher struct {
	enrichment adapterports.EnrichmentClient
	requests   ports.RefundRequestRepository
	logger     *zap.Logger
}

// NewRefundMatcher creates a new refund matcher
func NewRefundMatcher(enrichment adapterports.EnrichmentClient, requests ports.RefundRequestRepository, logger *zap.Logger) *RefundMatcher {
	return &RefundMatcher{
		enrichment: enrichment,
		requests:   requests,
		logger:     logger,
	}
}

// Match returns one ReconRefundInfo per enriched refund. An empty ID list
// returns immediately without calling the payments service. A refund whose
// order has no approved request is kept, just without refund info.
func (m *RefundMatcher) Match(ctx context.Context, refundIDs []string, utr string) ([]domain.ReconRefundInfo, error) {
	if len(refundIDs) == 0 {
		return []domain.ReconRefundInfo{}, nil
	}

	records, err := m.enrichment.ResolveCollectIDs(ctx, refundIDs, utr)
	if err != nil {
		return nil, err
	}

	refunds := make([]domain.ReconRefundInfo, 0, len(records))
	for _, rec := range records {
		info := toRefundInfo(rec)

		if rec.OrderID != "" {
			approved, err := m.requests.ListByOrderID(ctx, rec.OrderID, domain.RefundRequestApproved)
			if err != nil {
				return nil, err
			}
			if len(approved) > 0 {
				info.EventType = domain.EventTypeRefund
				info.RefundInfo = make([]domain.RefundRequestRef, len(approved))
				for i, req := range approved {
					info.RefundInfo[i] = req.Ref()
				}
			}
		}

		refunds = append(refunds, info)
	}

	m.logger.Debug("Matched payout refunds",
		zap.String("utr", utr),
		zap.Int("refunds", len(refunds)),
	)

	return refunds, nil
}

func toRefundInfo(rec *adapterports.EnrichedRecord) domain.ReconRefundInfo {
	refundID := rec.RefundID
	if refundID == "" {
		refundID = rec.CollectID
	}
	return domain.ReconRefundInfo{
		RefundID:      refundID,
		OrderID:       rec.OrderID,
		CustomOrderID: rec.CustomOrderID,
		RefundAmount:  rec.RefundAmount,
		OrderAmount:   rec.OrderAmount,
		Status:        rec.Status,
		RefundTime:    rec.RefundTime,
	}
}
