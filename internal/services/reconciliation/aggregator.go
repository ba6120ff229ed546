package reconciliation

import (
	"context"

	"go.uber.org/zap"

	adapterports "github.com/kevin07696/recon-service/internal/adapters/ports"
	"github.com/kevin07696/recon-service/internal/domain"
	"github.com/kevin07696/recon-service/internal/domain/ports"
	"github.com/kevin07696/recon-service/pkg/resilience"
)

// Aggregator turns one payout into its SettlementRecord and ReconciliationRecord
type Aggregator struct {
	enrichment      adapterports.EnrichmentClient
	matcher         *RefundMatcher
	settlements     ports.SettlementRepository
	reconciliations ports.ReconciliationRepository
	timeouts        *resilience.TimeoutConfig
	logger          *zap.Logger
}

// NewAggregator creates a new payout aggregator
func NewAggregator(
	enrichment adapterports.EnrichmentClient,
	matcher *RefundMatcher,
	settlements ports.SettlementRepository,
	reconciliations ports.ReconciliationRepository,
	timeouts *resilience.TimeoutConfig,
	logger *zap.Logger,
) *Aggregator {
	if timeouts == nil {
		timeouts = resilience.DefaultTimeoutConfig()
	}
	return &Aggregator{
		enrichment:      enrichment,
		matcher:         matcher,
		settlements:     settlements,
		reconciliations: reconciliations,
		timeouts:        timeouts,
		logger:          logger,
	}
}

// Reconcile recomputes the payout's aggregates from scratch and upserts both
// records by UTR. The settlement is written first; the reconciliation takes its
// settlement date from the stored settlement.
func (a *Aggregator) Reconcile(ctx context.Context, merchant *domain.Merchant, payout *domain.Payout) (*domain.ReconciliationRecord, error) {
	totalTransactionAmount, totalOrderAmount := payout.TransactionTotals()
	adjustment := payout.RefundTotal()

	transactions, err := a.enrichTransactions(ctx, payout)
	if err != nil {
		return nil, err
	}

	oldest, latest, err := domain.TimeWindow(transactions)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeEmptyTimeWindow, "cannot derive settlement window", err).
			WithDetail("utr", payout.UTR)
	}

	refunds, err := a.matcher.Match(ctx, payout.RefundIDs(), payout.UTR)
	if err != nil {
		return nil, err
	}

	settlement, err := a.upsertSettlement(ctx, &domain.SettlementRecord{
		UTR:                 payout.UTR,
		SettlementAmount:    payout.Amount,
		NetSettlementAmount: payout.Amount,
		Adjustment:          domain.SettlementAdjustmentPlaceholder,
		FromDate:            oldest,
		TillDate:            latest,
		Status:              domain.SettlementStatusSettled,
		SettlementDate:      payout.ActualPayoutDate,
		TrusteeID:           merchant.TrusteeID,
		SchoolID:            merchant.SchoolID,
	})
	if err != nil {
		return nil, err
	}

	record, err := a.upsertReconciliation(ctx, &domain.ReconciliationRecord{
		UTR:                    payout.UTR,
		FromDate:               oldest,
		TillDate:               latest,
		SettlementAmount:       payout.Amount,
		TotalTransactionAmount: totalTransactionAmount,
		TotalOrderAmount:       totalOrderAmount,
		RefundSum:              adjustment,
		TotalAdjustmentAmount:  adjustment,
		Transactions:           transactions,
		Refunds:                refunds,
		SettlementDate:         settlement.SettlementDate,
		SchoolName:             merchant.Name,
		SchoolID:               merchant.SchoolID,
		TrusteeID:              merchant.TrusteeID,
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("Payout reconciled",
		zap.String("utr", payout.UTR),
		zap.String("merchant_id", merchant.ID),
		zap.Int("transactions", len(transactions)),
		zap.Int("refunds", len(refunds)),
		zap.String("adjustment", adjustment.String()),
	)

	return record, nil
}

// enrichTransactions resolves the payout's transaction IDs. A payout without
// transaction IDs yields an empty list, which the time window rejects.
func (a *Aggregator) enrichTransactions(ctx context.Context, payout *domain.Payout) ([]domain.ReconTransactionInfo, error) {
	ids := payout.TransactionIDs()
	if len(ids) == 0 {
		return nil, nil
	}

	records, err := a.enrichment.ResolveCollectIDs(ctx, ids, payout.UTR)
	if err != nil {
		return nil, err
	}
	if missing := unresolvedIDs(ids, records); len(missing) > 0 {
		return nil, domain.NewDomainError(domain.ErrorCodeEnrichmentUnavailable, "payments service did not resolve every transaction").
			WithDetail("utr", payout.UTR).
			WithDetail("missing_collect_ids", missing)
	}

	transactions := make([]domain.ReconTransactionInfo, len(records))
	for i, rec := range records {
		transactions[i] = domain.ReconTransactionInfo{
			CollectID:         rec.CollectID,
			CustomOrderID:     rec.CustomOrderID,
			OrderAmount:       rec.OrderAmount,
			TransactionAmount: rec.TransactionAmount,
			PaymentMethod:     rec.PaymentMethod,
			Status:            rec.Status,
			PaymentTime:       rec.PaymentTime,
			BankReference:     rec.BankReference,
			StudentName:       rec.StudentName,
			StudentID:         rec.StudentID,
		}
	}
	return transactions, nil
}

// unresolvedIDs lists the requested IDs with no matching enriched record
func unresolvedIDs(ids []string, records []*adapterports.EnrichedRecord) []string {
	resolved := make(map[string]struct{}, len(records))
	for _, rec := range records {
		resolved[rec.CollectID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := resolved[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func (a *Aggregator) upsertSettlement(ctx context.Context, record *domain.SettlementRecord) (*domain.SettlementRecord, error) {
	dbCtx, cancel := a.timeouts.DatabaseContext(ctx)
	defer cancel()
	return a.settlements.Upsert(dbCtx, record)
}

func (a *Aggregator) upsertReconciliation(ctx context.Context, record *domain.ReconciliationRecord) (*domain.ReconciliationRecord, error) {
	dbCtx, cancel := a.timeouts.DatabaseContext(ctx)
	defer cancel()
	return a.reconciliations.Upsert(dbCtx, record)
}
