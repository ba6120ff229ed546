package fixtures

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kevin07696/recon-service/internal/domain"
)

// PayoutBuilder provides fluent API for building test payouts.
type PayoutBuilder struct {
	payout *domain.Payout
}

// NewPayout creates a payout builder with the given UTR and amount.
func NewPayout(utr, amount string) *PayoutBuilder {
	return &PayoutBuilder{
		payout: &domain.Payout{
			UTR:              utr,
			Amount:           decimal.RequireFromString(amount),
			ActualPayoutDate: time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC),
		},
	}
}

func (b *PayoutBuilder) WithPayoutDate(t time.Time) *PayoutBuilder {
	b.payout.ActualPayoutDate = t
	return b
}

// WithTransaction adds a raw transaction reference.
func (b *PayoutBuilder) WithTransaction(id, amount, settlementAmount string) *PayoutBuilder {
	b.payout.Transactions = append(b.payout.Transactions, domain.RawTransaction{
		ID:               id,
		Amount:           decimal.RequireFromString(amount),
		SettlementAmount: decimal.RequireFromString(settlementAmount),
	})
	return b
}

// WithRefund adds a raw refund reference.
func (b *PayoutBuilder) WithRefund(id, amount string) *PayoutBuilder {
	b.payout.Refunds = append(b.payout.Refunds, domain.RawRefund{
		ID:     id,
		Amount: decimal.RequireFromString(amount),
	})
	return b
}

func (b *PayoutBuilder) Build() *domain.Payout {
	p := *b.payout
	p.Transactions = append([]domain.RawTransaction(nil), b.payout.Transactions...)
	p.Refunds = append([]domain.RawRefund(nil), b.payout.Refunds...)
	return &p
}

// TimePtr returns a pointer to the given time.Time.
func TimePtr(t time.Time) *time.Time {
	return &t
}
