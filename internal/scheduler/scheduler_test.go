package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kevin07696/recon-service/internal/adapters/memory"
	adapterports "github.com/kevin07696/recon-service/internal/adapters/ports"
	"github.com/kevin07696/recon-service/internal/domain"
	"github.com/kevin07696/recon-service/internal/services/ports"
	"github.com/kevin07696/recon-service/internal/services/reconciliation"
	"github.com/kevin07696/recon-service/internal/testutil/fixtures"
	"github.com/kevin07696/recon-service/pkg/resilience"
)

type recordingService struct {
	mu       sync.Mutex
	requests []ports.RunRequest
	err      error
}

func (s *recordingService) Run(ctx context.Context, req ports.RunRequest) (*ports.RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &ports.RunSummary{RunID: "run-1", SettlementDate: "2025-03-14", Trigger: req.Trigger}, nil
}

func TestNext_ThreeTimesDaily(t *testing.T) {
	s, err := New(&recordingService{}, resilience.TestTimeoutConfig(), zap.NewNop())
	require.NoError(t, err)

	ist := s.location
	start := time.Date(2025, 3, 14, 0, 0, 0, 0, ist)

	var fires []time.Time
	next := start
	for i := 0; i < 4; i++ {
		next = s.Next(next)
		fires = append(fires, next)
	}

	expected := []time.Time{
		time.Date(2025, 3, 14, 10, 0, 0, 0, ist),
		time.Date(2025, 3, 14, 16, 0, 0, 0, ist),
		time.Date(2025, 3, 14, 22, 0, 0, 0, ist),
		time.Date(2025, 3, 15, 10, 0, 0, 0, ist),
	}
	for i := range expected {
		assert.True(t, fires[i].Equal(expected[i]), "fire %d = %v, want %v", i, fires[i], expected[i])
	}
}

func TestNext_EvaluatedInIST(t *testing.T) {
	s, err := New(&recordingService{}, resilience.TestTimeoutConfig(), zap.NewNop())
	require.NoError(t, err)

	// 04:00 UTC is 09:30 IST, so the next run is 10:00 IST = 04:30 UTC
	next := s.Next(time.Date(2025, 3, 14, 4, 0, 0, 0, time.UTC))
	assert.True(t, next.Equal(time.Date(2025, 3, 14, 4, 30, 0, 0, time.UTC)), "next = %v", next.UTC())
}

func TestRunScheduled_UsesScheduleTriggerAndToday(t *testing.T) {
	svc := &recordingService{}
	s, err := New(svc, resilience.TestTimeoutConfig(), zap.NewNop())
	require.NoError(t, err)

	s.runScheduled()

	require.Len(t, svc.requests, 1)
	assert.Equal(t, ports.TriggerSchedule, svc.requests[0].Trigger)
	assert.Nil(t, svc.requests[0].Date)
}

func TestRunScheduled_ErrorIsLogged(t *testing.T) {
	svc := &recordingService{err: errors.New("list merchants: connection refused")}
	s, err := New(svc, resilience.TestTimeoutConfig(), zap.NewNop())
	require.NoError(t, err)

	assert.NotPanics(t, s.runScheduled)
	assert.Len(t, svc.requests, 1)
}

func TestStartStop(t *testing.T) {
	s, err := New(&recordingService{}, resilience.TestTimeoutConfig(), zap.NewNop())
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
	assert.Error(t, s.baseCtx.Err(), "stop cancels in-flight run context")
}

// emptyGateway records which merchants were queried and reports no payouts
type emptyGateway struct {
	mu          sync.Mutex
	merchantIDs []string
}

func (g *emptyGateway) FetchPayouts(ctx context.Context, req *adapterports.PayoutRequest) ([]*domain.Payout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.merchantIDs = append(g.merchantIDs, req.MerchantID)
	return nil, nil
}

type fixedCredentials struct{}

func (fixedCredentials) Invalidate(string) {}

func (fixedCredentials) Resolve(ctx context.Context, m *domain.Merchant) (domain.GatewayCredentials, error) {
	return domain.GatewayCredentials{Key: m.GatewayKey, Salt: "salt"}, nil
}

func TestRunScheduled_AppliesConfiguredSchools(t *testing.T) {
	logger := zap.NewNop()
	timeouts := resilience.TestTimeoutConfig()
	gateway := &emptyGateway{}

	aggregator := reconciliation.NewAggregator(nil, nil, memory.NewSettlementRepository(), memory.NewReconciliationRepository(), timeouts, logger)
	svc := reconciliation.NewService(
		memory.NewMerchantRepository(fixtures.Merchants(3)...),
		fixedCredentials{},
		gateway,
		aggregator,
		reconciliation.Config{Timeouts: timeouts, SchoolIDs: []string{"school-01"}},
		logger,
	)

	s, err := New(svc, timeouts, logger)
	require.NoError(t, err)

	s.runScheduled()

	assert.Equal(t, []string{"m-01"}, gateway.merchantIDs)
}
