package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawTransaction is a transaction reference as reported inside a payout
type RawTransaction struct {
	ID               string          `json:"id"`
	Amount           decimal.Decimal `json:"amount"`
	SettlementAmount decimal.Decimal `json:"settlement_amount"`
}

// RawRefund is a refund reference as reported inside a payout
type RawRefund struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
}

// Payout is one settlement batch reported by the gateway for one merchant on one date.
// UTR is the bank reference and the natural key of everything derived from it.
type Payout struct {
	UTR              string           `json:"utr"`
	Amount           decimal.Decimal  `json:"amount"`
	ActualPayoutDate time.Time        `json:"actual_payout_date"`
	Transactions     []RawTransaction `json:"transactions"`
	Refunds          []RawRefund      `json:"refunds"`
}

// TransactionIDs returns the bare transaction identifiers in payout order
func (p *Payout) TransactionIDs() []string {
	ids := make([]string, len(p.Transactions))
	for i, t := range p.Transactions {
		ids[i] = t.ID
	}
	return ids
}

// RefundIDs returns the bare refund identifiers in payout order
func (p *Payout) RefundIDs() []string {
	ids := make([]string, len(p.Refunds))
	for i, r := range p.Refunds {
		ids[i] = r.ID
	}
	return ids
}

// TransactionTotals sums the reported amounts and the internally reported settlement amounts
func (p *Payout) TransactionTotals() (transactionAmount, orderAmount decimal.Decimal) {
	transactionAmount = decimal.Zero
	orderAmount = decimal.Zero
	for _, t := range p.Transactions {
		transactionAmount = transactionAmount.Add(t.Amount)
		orderAmount = orderAmount.Add(t.SettlementAmount)
	}
	return transactionAmount, orderAmount
}

// RefundTotal sums the refund amounts of the payout
func (p *Payout) RefundTotal() decimal.Decimal {
	total := decimal.Zero
	for _, r := range p.Refunds {
		total = total.Add(r.Amount)
	}
	return total
}
