package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatusSettled is the only status written by the reconciliation pipeline
const SettlementStatusSettled = "Settled"

// SettlementAdjustmentPlaceholder is written into every SettlementRecord's adjustment.
// The real refund sum lives on the ReconciliationRecord.
const SettlementAdjustmentPlaceholder = "0"

// EventTypeRefund tags refunds that matched an approved internal refund request
const EventTypeRefund = "REFUND"

// ReconTransactionInfo is a transaction resolved through the payments service
type ReconTransactionInfo struct {
	CollectID         string          `json:"collect_id"`
	CustomOrderID     string          `json:"custom_order_id,omitempty"`
	OrderAmount       decimal.Decimal `json:"order_amount"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	PaymentMethod     string          `json:"payment_method,omitempty"`
	Status            string          `json:"status,omitempty"`
	PaymentTime       time.Time       `json:"payment_time"`
	BankReference     string          `json:"bank_reference,omitempty"`
	StudentName       string          `json:"student_name,omitempty"`
	StudentID         string          `json:"student_id,omitempty"`
}

// RefundRequestRef is the approval metadata attached to a matched refund
type RefundRequestRef struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// ReconRefundInfo is a refund resolved through the payments service, optionally
// carrying the approved internal refund requests for its order
type ReconRefundInfo struct {
	RefundID      string             `json:"refund_id"`
	OrderID       string             `json:"order_id"`
	CustomOrderID string             `json:"custom_order_id,omitempty"`
	RefundAmount  decimal.Decimal    `json:"refund_amount"`
	OrderAmount   decimal.Decimal    `json:"order_amount"`
	Status        string             `json:"status,omitempty"`
	RefundTime    *time.Time         `json:"refund_time,omitempty"`
	EventType     string             `json:"event_type,omitempty"`
	RefundInfo    []RefundRequestRef `json:"refund_info,omitempty"`
}

// SettlementRecord is one row per UTR per merchant
type SettlementRecord struct {
	ID                  string          `json:"id"`
	UTR                 string          `json:"utr"`
	SettlementAmount    decimal.Decimal `json:"settlement_amount"`
	NetSettlementAmount decimal.Decimal `json:"net_settlement_amount"`
	Adjustment          string          `json:"adjustment"`
	FromDate            time.Time       `json:"from_date"`
	TillDate            time.Time       `json:"till_date"`
	Status              string          `json:"status"`
	SettlementDate      time.Time       `json:"settlement_date"`
	TrusteeID           string          `json:"trustee_id"`
	SchoolID            string          `json:"school_id"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// ReconciliationRecord is the UTR-keyed aggregate joining a payout to its enriched records
type ReconciliationRecord struct {
	ID                     string                 `json:"id"`
	UTR                    string                 `json:"utr"`
	FromDate               time.Time              `json:"from_date"`
	TillDate               time.Time              `json:"till_date"`
	SettlementAmount       decimal.Decimal        `json:"settlement_amount"`
	TotalTransactionAmount decimal.Decimal        `json:"total_transaction_amount"`
	TotalOrderAmount       decimal.Decimal        `json:"total_order_amount"`
	RefundSum              decimal.Decimal        `json:"refund_sum"`
	TotalAdjustmentAmount  decimal.Decimal        `json:"total_adjustment_amount"`
	Transactions           []ReconTransactionInfo `json:"transactions"`
	Refunds                []ReconRefundInfo      `json:"refunds"`
	SettlementDate         time.Time              `json:"settlement_date"`
	SchoolName             string                 `json:"school_name"`
	SchoolID               string                 `json:"school_id"`
	TrusteeID              string                 `json:"trustee_id"`
	UpdatedAt              time.Time              `json:"updated_at"`
}

// TimeWindow returns the min and max payment time across the transactions.
// Transactions without a payment time are ignored; if none has one the
// payout has no window and yields EMPTY_TIME_WINDOW.
func TimeWindow(txns []ReconTransactionInfo) (oldest, latest time.Time, err error) {
	if len(txns) == 0 {
		return time.Time{}, time.Time{}, NewDomainError(ErrorCodeEmptyTimeWindow, "payout has no enriched transactions")
	}
	for _, t := range txns {
		if t.PaymentTime.IsZero() {
			continue
		}
		if oldest.IsZero() || t.PaymentTime.Before(oldest) {
			oldest = t.PaymentTime
		}
		if latest.IsZero() || t.PaymentTime.After(latest) {
			latest = t.PaymentTime
		}
	}
	if oldest.IsZero() {
		return time.Time{}, time.Time{}, NewDomainError(ErrorCodeEmptyTimeWindow, "no enriched transaction has a payment time")
	}
	return oldest, latest, nil
}
