package reconciliation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kevin07696/recon-service/internal/adapters/memory"
	"github.com/kevin07696/recon-service/internal/domain"
)

type failingRefundRequests struct{}

func (failingRefundRequests) ListByOrderID(ctx context.Context, orderID string, status domain.RefundRequestStatus) ([]*domain.RefundRequest, error) {
	return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list refund requests", errors.New("connection reset"))
}

func TestRefundMatcher_EmptyIDsSkipsCall(t *testing.T) {
	enrichment := newFakeEnrichment()
	matcher := NewRefundMatcher(enrichment, memory.NewRefundRequestRepository(), zap.NewNop())

	refunds, err := matcher.Match(context.Background(), nil, "UTR001")
	require.NoError(t, err)
	assert.NotNil(t, refunds)
	assert.Empty(t, refunds)
	assert.Zero(t, enrichment.callCount())
}

func TestRefundMatcher_AttachesApprovedRequests(t *testing.T) {
	enrichment := newFakeEnrichment()
	enrichment.addRefund("r1", "order-1", "10.00")
	enrichment.addRefund("r2", "order-2", "5.00")
	requests := memory.NewRefundRequestRepository(
		&domain.RefundRequest{ID: "rr-1", OrderID: "order-1", Status: domain.RefundRequestApproved, Reason: "fee reversal"},
		&domain.RefundRequest{ID: "rr-2", OrderID: "order-2", Status: domain.RefundRequestInitiated, Reason: "pending"},
	)
	matcher := NewRefundMatcher(enrichment, requests, zap.NewNop())

	refunds, err := matcher.Match(context.Background(), []string{"r1", "r2"}, "UTR001")
	require.NoError(t, err)
	require.Len(t, refunds, 2)

	assert.Equal(t, domain.EventTypeRefund, refunds[0].EventType)
	assert.Equal(t, []domain.RefundRequestRef{{ID: "rr-1", Reason: "fee reversal"}}, refunds[0].RefundInfo)

	assert.Empty(t, refunds[1].EventType)
	assert.Nil(t, refunds[1].RefundInfo)
}

func TestRefundMatcher_Errors(t *testing.T) {
	t.Run("enrichment_unavailable", func(t *testing.T) {
		enrichment := newFakeEnrichment()
		enrichment.err = domain.NewDomainError(domain.ErrorCodeEnrichmentUnavailable, "down")
		matcher := NewRefundMatcher(enrichment, memory.NewRefundRequestRepository(), zap.NewNop())

		_, err := matcher.Match(context.Background(), []string{"r1"}, "UTR001")
		assert.True(t, domain.IsDomainError(err, domain.ErrorCodeEnrichmentUnavailable))
	})

	t.Run("refund_request_lookup", func(t *testing.T) {
		enrichment := newFakeEnrichment()
		enrichment.addRefund("r1", "order-1", "10.00")
		matcher := NewRefundMatcher(enrichment, failingRefundRequests{}, zap.NewNop())

		_, err := matcher.Match(context.Background(), []string{"r1"}, "UTR001")
		assert.True(t, domain.IsDomainError(err, domain.ErrorCodeDatabaseError))
	})
}
