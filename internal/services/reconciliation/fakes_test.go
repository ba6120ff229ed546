package reconciliation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	adapterports "github.com/kevin07696/recon-service/internal/adapters/ports"
	"github.com/kevin07696/recon-service/internal/domain"
)

// fakeGateway serves canned payouts per merchant
type fakeGateway struct {
	mu       sync.Mutex
	payouts  map[string][]*domain.Payout
	errs     map[string]error
	requests []*adapterports.PayoutRequest

	// block, when set, holds every call until it is closed
	block    chan struct{}
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		payouts: make(map[string][]*domain.Payout),
		errs:    make(map[string]error),
	}
}

func (g *fakeGateway) FetchPayouts(ctx context.Context, req *adapterports.PayoutRequest) ([]*domain.Payout, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		seen := g.maxSeen.Load()
		if n <= seen || g.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if err := g.errs[req.MerchantID]; err != nil {
		return nil, err
	}
	return g.payouts[req.MerchantID], nil
}

func (g *fakeGateway) requestCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// fakeEnrichment resolves collect IDs from a fixed table
type fakeEnrichment struct {
	mu      sync.Mutex
	records map[string]*adapterports.EnrichedRecord
	err     error
	calls   [][]string
}

func newFakeEnrichment() *fakeEnrichment {
	return &fakeEnrichment{records: make(map[string]*adapterports.EnrichedRecord)}
}

func (e *fakeEnrichment) addTransaction(id string, paymentTime time.Time, amount string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records[id] = &adapterports.EnrichedRecord{
		CollectID:         id,
		OrderID:           "order-" + id,
		OrderAmount:       decimal.RequireFromString(amount),
		TransactionAmount: decimal.RequireFromString(amount),
		PaymentMethod:     "upi",
		Status:            "SUCCESS",
		PaymentTime:       paymentTime,
	}
}

func (e *fakeEnrichment) addRefund(id, orderID, amount string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records[id] = &adapterports.EnrichedRecord{
		CollectID:    id,
		OrderID:      orderID,
		RefundID:     id,
		RefundAmount: decimal.RequireFromString(amount),
		Status:       "REFUNDED",
	}
}

func (e *fakeEnrichment) ResolveCollectIDs(ctx context.Context, ids []string, utr string) ([]*adapterports.EnrichedRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, append([]string(nil), ids...))
	if e.err != nil {
		return nil, e.err
	}
	out := make([]*adapterports.EnrichedRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := e.records[id]; ok {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (e *fakeEnrichment) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// staticCredentials resolves every merchant to a fixed salt unless listed in errs
type staticCredentials struct {
	errs map[string]error

	mu          sync.Mutex
	invalidated []string
}

func (c *staticCredentials) Invalidate(merchantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, merchantID)
}

func (c *staticCredentials) Resolve(ctx context.Context, m *domain.Merchant) (domain.GatewayCredentials, error) {
	if err := c.errs[m.ID]; err != nil {
		return domain.GatewayCredentials{}, err
	}
	return domain.GatewayCredentials{Key: m.GatewayKey, Salt: "salt-" + m.ID}, nil
}
