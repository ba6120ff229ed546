package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Trigger identifies what started a reconciliation run
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// RunRequest contains parameters for one reconciliation run
type RunRequest struct {
	// Date is the settlement date to reconcile; nil means today (UTC)
	Date      *time.Time
	SchoolIDs []string
	Trigger   Trigger
}

// MerchantFailure describes one merchant task that did not complete
type MerchantFailure struct {
	MerchantID   string `json:"merchant_id"`
	MerchantName string `json:"merchant_name"`
	SchoolID     string `json:"school_id"`
	Code         string `json:"code"`
	Message      string `json:"message"`
}

// RunDiagnostics echoes the last payout batch a merchant task processed
type RunDiagnostics struct {
	MerchantID     string   `json:"merchant_id,omitempty"`
	UTR            string   `json:"utr,omitempty"`
	PayoutCount    int      `json:"payout_count"`
	TransactionIDs []string `json:"transaction_ids,omitempty"`
}

// RunSummary is the outcome of one reconciliation run
type RunSummary struct {
	RunID              string            `json:"run_id"`
	SettlementDate     string            `json:"settlement_date"`
	Trigger            Trigger           `json:"trigger"`
	StartedAt          time.Time         `json:"started_at"`
	FinishedAt         time.Time         `json:"finished_at"`
	MerchantsTotal     int               `json:"merchants_total"`
	MerchantsSucceeded int               `json:"merchants_succeeded"`
	MerchantsFailed    int               `json:"merchants_failed"`
	PayoutsReconciled  int               `json:"payouts_reconciled"`
	TotalAdjustment    decimal.Decimal   `json:"total_adjustment"`
	Failures           []MerchantFailure `json:"failures"`
	Diagnostics        RunDiagnostics    `json:"diagnostics"`
}

// ReconciliationService defines the port for reconciliation runs
type ReconciliationService interface {
	// Run reconciles every selected merchant for the date. Merchant failures
	// are reported in the summary; only a failed merchant directory read
	// returns an error.
	Run(ctx context.Context, req RunRequest) (*RunSummary, error)
}
