package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	adapterports "github.com/kevin07696/recon-service/internal/adapters/ports"
	"github.com/kevin07696/recon-service/internal/domain"
	"github.com/kevin07696/recon-service/internal/domain/ports"
	serviceports "github.com/kevin07696/recon-service/internal/services/ports"
	"github.com/kevin07696/recon-service/pkg/observability"
	"github.com/kevin07696/recon-service/pkg/resilience"
	"github.com/kevin07696/recon-service/pkg/timeutil"
)

// MaxConcurrentMerchants bounds the merchant tasks running at once
const MaxConcurrentMerchants = 5

// CredentialResolver resolves a merchant's gateway key and salt
type CredentialResolver interface {
	Resolve(ctx context.Context, m *domain.Merchant) (domain.GatewayCredentials, error)
	// Invalidate drops any cached credentials for the merchant
	Invalidate(merchantID string)
}

// Config holds run-level settings
type Config struct {
	Gateway     string
	Concurrency int
	Timeouts    *resilience.TimeoutConfig

	// SchoolIDs applies to runs whose request names no schools.
	// Empty selects every merchant on the gateway.
	SchoolIDs []string
}

// Service implements serviceports.ReconciliationService
type Service struct {
	merchants   ports.MerchantRepository
	credentials CredentialResolver
	gateway     adapterports.SettlementGateway
	aggregator  *Aggregator
	config      Config
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a new reconciliation orchestrator
func NewService(
	merchants ports.MerchantRepository,
	credentials CredentialResolver,
	gateway adapterports.SettlementGateway,
	aggregator *Aggregator,
	config Config,
	logger *zap.Logger,
) *Service {
	if config.Gateway == "" {
		config.Gateway = domain.GatewayEasebuzz
	}
	if config.Concurrency <= 0 || config.Concurrency > MaxConcurrentMerchants {
		config.Concurrency = MaxConcurrentMerchants
	}
	if config.Timeouts == nil {
		config.Timeouts = resilience.DefaultTimeoutConfig()
	}
	return &Service{
		merchants:   merchants,
		credentials: credentials,
		gateway:     gateway,
		aggregator:  aggregator,
		config:      config,
		logger:      logger,
		now:         timeutil.Now,
	}
}

// merchantResult is written by exactly one merchant task
type merchantResult struct {
	merchant   *domain.Merchant
	reconciled int
	adjustment decimal.Decimal
	err        error
	lastBatch  serviceports.RunDiagnostics
	finishedAt time.Time
}

// Run reconciles every selected merchant for the settlement date
func (s *Service) Run(ctx context.Context, req serviceports.RunRequest) (*serviceports.RunSummary, error) {
	started := s.now()
	date := timeutil.StartOfDay(started)
	if req.Date != nil {
		date = timeutil.StartOfDay(*req.Date)
	}
	trigger := req.Trigger
	if trigger == "" {
		trigger = serviceports.TriggerManual
	}

	summary := &serviceports.RunSummary{
		RunID:           uuid.New().String(),
		SettlementDate:  date.Format("2006-01-02"),
		Trigger:         trigger,
		StartedAt:       started,
		TotalAdjustment: decimal.Zero,
		Failures:        []serviceports.MerchantFailure{},
	}

	logger := s.logger.With(
		zap.String("run_id", summary.RunID),
		zap.String("settlement_date", summary.SettlementDate),
		zap.String("trigger", string(trigger)),
	)

	schoolIDs := req.SchoolIDs
	if len(schoolIDs) == 0 {
		schoolIDs = s.config.SchoolIDs
	}

	merchants, err := s.merchants.ListForReconciliation(ctx, domain.MerchantSelection{
		Gateway:   s.config.Gateway,
		SchoolIDs: schoolIDs,
	})
	if err != nil {
		logger.Error("Failed to list merchants", zap.Error(err))
		return nil, fmt.Errorf("list merchants: %w", err)
	}

	logger.Info("Starting reconciliation run",
		zap.Int("merchants", len(merchants)),
		zap.Strings("school_ids", schoolIDs),
	)

	results := make([]merchantResult, len(merchants))

	var g errgroup.Group
	g.SetLimit(s.config.Concurrency)
	for i, m := range merchants {
		g.Go(func() error {
			results[i] = s.reconcileMerchant(ctx, logger, m, date)
			return nil
		})
	}
	_ = g.Wait()

	var lastFinished time.Time
	summary.MerchantsTotal = len(merchants)
	for _, res := range results {
		summary.TotalAdjustment = summary.TotalAdjustment.Add(res.adjustment)
		summary.PayoutsReconciled += res.reconciled

		if res.finishedAt.After(lastFinished) && res.lastBatch.MerchantID != "" {
			lastFinished = res.finishedAt
			summary.Diagnostics = res.lastBatch
		}

		if res.err != nil {
			summary.MerchantsFailed++
			summary.Failures = append(summary.Failures, serviceports.MerchantFailure{
				MerchantID:   res.merchant.ID,
				MerchantName: res.merchant.Name,
				SchoolID:     res.merchant.SchoolID,
				Code:         errorCode(res.err),
				Message:      res.err.Error(),
			})
			continue
		}
		summary.MerchantsSucceeded++
	}

	summary.FinishedAt = s.now()
	duration := summary.FinishedAt.Sub(started)
	observability.RecordRun(string(trigger), duration.Seconds())

	logger.Info("Reconciliation run finished",
		zap.Int("merchants_total", summary.MerchantsTotal),
		zap.Int("merchants_succeeded", summary.MerchantsSucceeded),
		zap.Int("merchants_failed", summary.MerchantsFailed),
		zap.Int("payouts_reconciled", summary.PayoutsReconciled),
		zap.String("total_adjustment", summary.TotalAdjustment.String()),
		zap.Duration("duration", duration),
	)

	return summary, nil
}

// reconcileMerchant runs one merchant's pipeline. The first failing payout
// aborts the merchant's remaining payouts; other merchants are unaffected.
func (s *Service) reconcileMerchant(ctx context.Context, runLogger *zap.Logger, m *domain.Merchant, date time.Time) (res merchantResult) {
	res = merchantResult{merchant: m, adjustment: decimal.Zero}

	observability.MerchantTaskStarted()
	defer observability.MerchantTaskFinished()

	logger := runLogger.With(
		zap.String("merchant_id", m.ID),
		zap.String("school_id", m.SchoolID),
		zap.String("merchant_name", m.Name),
	)

	defer func() {
		if r := recover(); r != nil {
			res.err = domain.NewDomainError(domain.ErrorCodeInternalError, fmt.Sprintf("merchant task panicked: %v", r))
		}
		res.finishedAt = s.now()

		if res.err != nil {
			logger.Error("Merchant reconciliation failed",
				zap.String("error_code", errorCode(res.err)),
				zap.Int("payouts_reconciled", res.reconciled),
				zap.Error(res.err),
			)
			status := "failed"
			if domain.IsUnavailableError(res.err) {
				status = "unavailable"
			}
			observability.RecordMerchantTask(status, errorCode(res.err))
			return
		}
		observability.RecordMerchantTask("succeeded", "")
	}()

	taskCtx, cancel := s.config.Timeouts.MerchantTaskContext(ctx)
	defer cancel()

	creds, err := s.credentials.Resolve(taskCtx, m)
	if err != nil {
		res.err = err
		return res
	}

	payouts, err := s.gateway.FetchPayouts(taskCtx, &adapterports.PayoutRequest{
		MerchantID:  m.ID,
		Credentials: creds,
		PayoutDate:  date,
	})
	if err != nil {
		if errors.Is(err, domain.ErrCredentialsRejected) {
			// Next run re-reads the salt, picking up a rotation
			s.credentials.Invalidate(m.ID)
		}
		res.err = err
		return res
	}

	res.lastBatch = serviceports.RunDiagnostics{MerchantID: m.ID, PayoutCount: len(payouts)}
	if len(payouts) == 0 {
		logger.Info("No settlement payouts for date")
		return res
	}

	for _, payout := range payouts {
		res.adjustment = res.adjustment.Add(payout.RefundTotal())
		res.lastBatch.UTR = payout.UTR
		res.lastBatch.TransactionIDs = payout.TransactionIDs()

		if _, err := s.aggregator.Reconcile(taskCtx, m, payout); err != nil {
			observability.RecordPayout("failed", 0)
			res.err = domain.WrapError(domain.ErrorCode(errorCode(err)), "reconcile payout "+payout.UTR, err).
				WithDetail("utr", payout.UTR)
			return res
		}
		adjustment, _ := payout.RefundTotal().Float64()
		observability.RecordPayout("reconciled", adjustment)
		res.reconciled++
	}

	logger.Info("Merchant reconciled",
		zap.Int("payouts", len(payouts)),
		zap.String("adjustment", res.adjustment.String()),
	)
	return res
}

func errorCode(err error) string {
	code := domain.GetErrorCode(err)
	if code == "" {
		return string(domain.ErrorCodeInternalError)
	}
	return string(code)
}
