package easebuzz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	adapterports "github.com/kevin07696/recon-service/internal/adapters/ports"
	"github.com/kevin07696/recon-service/internal/domain"
	"github.com/kevin07696/recon-service/pkg/observability"
	"github.com/kevin07696/recon-service/pkg/resilience"
)

const payoutPath = "/payout/v1/retrieve"

// PayoutConfig contains configuration for the payout retrieval adapter
type PayoutConfig struct {
	BaseURL    string // e.g., "https://dashboard.easebuzz.in"
	MaxRetries int    // Additional attempts after the first on transport/5xx failures
	Timeouts   *resilience.TimeoutConfig
	Backoff    resilience.BackoffStrategy
}

// DefaultPayoutConfig returns default configuration
func DefaultPayoutConfig() *PayoutConfig {
	return &PayoutConfig{
		BaseURL:    "https://dashboard.easebuzz.in",
		MaxRetries: 2,
		Timeouts:   resilience.DefaultTimeoutConfig(),
		Backoff:    resilience.GatewayBackoff(),
	}
}

// payoutAdapter implements the SettlementGateway port
type payoutAdapter struct {
	config     *PayoutConfig
	httpClient adapterports.HTTPClient
	logger     adapterports.Logger
}

// NewPayoutAdapter creates a new payout retrieval adapter
func NewPayoutAdapter(
	config *PayoutConfig,
	httpClient adapterports.HTTPClient,
	logger adapterports.Logger,
) adapterports.SettlementGateway {
	if config.Timeouts == nil {
		config.Timeouts = resilience.DefaultTimeoutConfig()
	}
	if config.Backoff == nil {
		config.Backoff = resilience.GatewayBackoff()
	}
	return &payoutAdapter{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Gateway API response structures
type payoutResponse struct {
	Status             json.RawMessage `json:"status"`
	PayoutsHistoryData *[]payoutEntry  `json:"payouts_history_data"`
}

type payoutEntry struct {
	BankTransactionID string           `json:"bank_transaction_id"`
	PayoutAmount      flexAmount       `json:"payout_amount"`
	PayoutActualDate  string           `json:"payout_actual_date"`
	PebTransactions   []pebTransaction `json:"peb_transactions"`
	PebRefunds        []pebRefund      `json:"peb_refunds"`
}

type pebTransaction struct {
	TxnID            string     `json:"txnid"`
	Amount           flexAmount `json:"amount"`
	SettlementAmount flexAmount `json:"settlement_amount"`
}

type pebRefund struct {
	RefundID     string     `json:"refund_id"`
	RefundAmount flexAmount `json:"refund_amount"`
}

// flexAmount accepts amounts sent as JSON numbers or strings. Empty and null are zero.
type flexAmount struct {
	decimal.Decimal
}

func (a *flexAmount) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		a.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	a.Decimal = d
	return nil
}

// payoutDateLayouts are the layouts observed for payout_actual_date
var payoutDateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
	PayoutDateLayout,
	"02-01-2006 15:04:05",
}

func parsePayoutDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range payoutDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised payout date %q", s)
}

// FetchPayouts retrieves every payout batch for the merchant on the requested date
func (a *payoutAdapter) FetchPayouts(ctx context.Context, req *adapterports.PayoutRequest) ([]*domain.Payout, error) {
	payoutDate := req.PayoutDate.UTC().Format(PayoutDateLayout)

	form := url.Values{}
	form.Set("merchant_key", req.Credentials.Key)
	form.Set("hash", CalculatePayoutHash(req.Credentials.Key, payoutDate, req.Credentials.Salt))
	form.Set("payout_date", payoutDate)
	body := form.Encode()

	endpoint := strings.TrimRight(a.config.BaseURL, "/") + payoutPath

	a.logger.Info("Retrieving gateway payouts",
		adapterports.String("merchant_id", req.MerchantID),
		adapterports.String("payout_date", payoutDate),
	)

	start := time.Now()
	respBody, err := a.postWithRetry(ctx, endpoint, body, req.MerchantID)
	observability.RecordExternalCall("gateway", err, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	var parsed payoutResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		a.logger.Error("Gateway payout response is not valid JSON",
			adapterports.String("merchant_id", req.MerchantID),
			adapterports.Err(err),
		)
		return nil, domain.WrapError(domain.ErrorCodeGatewayUnavailable, "malformed payout response", err)
	}
	if parsed.PayoutsHistoryData == nil {
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayUnavailable, "payout response has no payouts_history_data").
			WithDetail("merchant_id", req.MerchantID)
	}

	payouts := make([]*domain.Payout, 0, len(*parsed.PayoutsHistoryData))
	for _, entry := range *parsed.PayoutsHistoryData {
		payout, err := entry.toDomain()
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeGatewayUnavailable, "malformed payout entry", err).
				WithDetail("merchant_id", req.MerchantID).
				WithDetail("utr", entry.BankTransactionID)
		}
		payouts = append(payouts, payout)
	}

	a.logger.Info("Gateway payouts retrieved",
		adapterports.String("merchant_id", req.MerchantID),
		adapterports.Int("payout_count", len(payouts)),
		adapterports.Duration("elapsed", time.Since(start)),
	)

	return payouts, nil
}

// postWithRetry sends the form and returns the body of the first 2xx response.
// Transport errors, 429 and 5xx are retried; other statuses fail immediately.
// All attempts share the external API deadline; each attempt has its own.
func (a *payoutAdapter) postWithRetry(ctx context.Context, endpoint, body, merchantID string) ([]byte, error) {
	ctx, cancel := a.config.Timeouts.ExternalAPIContext(ctx)
	defer cancel()

	var lastErr error

	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := resilience.Wait(ctx, a.config.Backoff, attempt-1); err != nil {
				return nil, domain.WrapError(domain.ErrorCodeGatewayUnavailable, "payout retrieval cancelled", err)
			}
			a.logger.Warn("Retrying gateway payout retrieval",
				adapterports.String("merchant_id", merchantID),
				adapterports.Int("attempt", attempt),
				adapterports.Err(lastErr),
			)
		}

		respBody, retryable, err := a.post(ctx, endpoint, body)
		if err == nil {
			return respBody, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}

	a.logger.Error("Gateway payout retrieval failed",
		adapterports.String("merchant_id", merchantID),
		adapterports.Err(lastErr),
	)
	return nil, domain.WrapError(domain.ErrorCodeGatewayUnavailable, "payout retrieval failed", lastErr).
		WithDetail("merchant_id", merchantID)
}

func (a *payoutAdapter) post(ctx context.Context, endpoint, body string) ([]byte, bool, error) {
	callCtx, cancel := a.config.Timeouts.RetryAttemptContext(ctx)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewBufferString(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		// Parent cancellation is final; a per-attempt deadline is worth retrying
		return nil, ctx.Err() == nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, false, fmt.Errorf("API returned status %d: %w", resp.StatusCode, domain.ErrCredentialsRejected)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(respBody, 512))
	}

	return respBody, false, nil
}

func (e payoutEntry) toDomain() (*domain.Payout, error) {
	if strings.TrimSpace(e.BankTransactionID) == "" {
		return nil, fmt.Errorf("payout without bank_transaction_id")
	}

	actual, err := parsePayoutDate(e.PayoutActualDate)
	if err != nil {
		return nil, err
	}

	payout := &domain.Payout{
		UTR:              e.BankTransactionID,
		Amount:           e.PayoutAmount.Decimal,
		ActualPayoutDate: actual,
		Transactions:     make([]domain.RawTransaction, 0, len(e.PebTransactions)),
		Refunds:          make([]domain.RawRefund, 0, len(e.PebRefunds)),
	}
	for _, t := range e.PebTransactions {
		payout.Transactions = append(payout.Transactions, domain.RawTransaction{
			ID:               t.TxnID,
			Amount:           t.Amount.Decimal,
			SettlementAmount: t.SettlementAmount.Decimal,
		})
	}
	for _, r := range e.PebRefunds {
		payout.Refunds = append(payout.Refunds, domain.RawRefund{
			ID:     r.RefundID,
			Amount: r.RefundAmount.Decimal,
		})
	}
	return payout, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
