package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	adapterports "github.com/kevin07696/recon-service/internal/adapters/ports"
	"github.com/kevin07696/recon-service/internal/domain"
	"github.com/kevin07696/recon-service/pkg/observability"
	"github.com/kevin07696/recon-service/pkg/resilience"
)

const transactionInfoPath = "/erp/transactions-info"

// Config contains configuration for the payments service adapter
type Config struct {
	BaseURL     string // e.g., "https://payments.internal"
	TokenSecret string // Shared secret for the HS256 request sign
	Timeouts    *resilience.TimeoutConfig
}

// transactionInfoAdapter implements the EnrichmentClient port
type transactionInfoAdapter struct {
	config     *Config
	httpClient adapterports.HTTPClient
	logger     adapterports.Logger
}

// NewTransactionInfoAdapter creates a new payments service enrichment adapter
func NewTransactionInfoAdapter(
	config *Config,
	httpClient adapterports.HTTPClient,
	logger adapterports.Logger,
) adapterports.EnrichmentClient {
	if config.Timeouts == nil {
		config.Timeouts = resilience.DefaultTimeoutConfig()
	}
	return &transactionInfoAdapter{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}
}

type transactionInfoRequest struct {
	Sign       string   `json:"sign"`
	UTR        string   `json:"utr"`
	CollectIDs []string `json:"collect_ids"`
}

// Payments service response item. Transaction lookups fill the payment
// fields; refund lookups fill the refund fields.
type transactionInfoItem struct {
	CollectID         string          `json:"collect_id"`
	OrderID           string          `json:"order_id"`
	CustomOrderID     string          `json:"custom_order_id"`
	OrderAmount       decimal.Decimal `json:"order_amount"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	PaymentMethod     string          `json:"payment_method"`
	Status            string          `json:"status"`
	PaymentTime       time.Time       `json:"payment_time"`
	BankReference     string          `json:"bank_reference"`
	StudentName       string          `json:"student_name"`
	StudentID         string          `json:"student_id"`
	RefundID          string          `json:"refund_id"`
	RefundAmount      decimal.Decimal `json:"refund_amount"`
	RefundTime        *time.Time      `json:"refund_time"`
}

// SignUTR produces the HS256 token the payments service verifies against the request UTR
func SignUTR(utr, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"utr": utr})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign utr: %w", err)
	}
	return signed, nil
}

// ResolveCollectIDs enriches transaction or refund identifiers for one payout
func (a *transactionInfoAdapter) ResolveCollectIDs(ctx context.Context, ids []string, utr string) ([]*adapterports.EnrichedRecord, error) {
	if len(ids) == 0 {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "collect ids must not be empty")
	}

	sign, err := SignUTR(utr, a.config.TokenSecret)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalError, "failed to sign enrichment request", err)
	}

	payload, err := json.Marshal(transactionInfoRequest{Sign: sign, UTR: utr, CollectIDs: ids})
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalError, "failed to encode enrichment request", err)
	}

	start := time.Now()
	items, err := a.post(ctx, payload)
	observability.RecordExternalCall("payments", err, time.Since(start).Seconds())
	if err != nil {
		a.logger.Error("Payments service transaction info call failed",
			adapterports.String("utr", utr),
			adapterports.Int("id_count", len(ids)),
			adapterports.Err(err),
		)
		return nil, domain.WrapError(domain.ErrorCodeEnrichmentUnavailable, "transaction info call failed", err).
			WithDetail("utr", utr)
	}

	records := make([]*adapterports.EnrichedRecord, len(items))
	for i, item := range items {
		records[i] = &adapterports.EnrichedRecord{
			CollectID:         item.CollectID,
			OrderID:           item.OrderID,
			CustomOrderID:     item.CustomOrderID,
			OrderAmount:       item.OrderAmount,
			TransactionAmount: item.TransactionAmount,
			PaymentMethod:     item.PaymentMethod,
			Status:            item.Status,
			PaymentTime:       item.PaymentTime,
			BankReference:     item.BankReference,
			StudentName:       item.StudentName,
			StudentID:         item.StudentID,
			RefundID:          item.RefundID,
			RefundAmount:      item.RefundAmount,
			RefundTime:        item.RefundTime,
		}
	}

	a.logger.Debug("Payments service resolved collect ids",
		adapterports.String("utr", utr),
		adapterports.Int("requested", len(ids)),
		adapterports.Int("resolved", len(records)),
		adapterports.Duration("elapsed", time.Since(start)),
	)

	return records, nil
}

func (a *transactionInfoAdapter) post(ctx context.Context, payload []byte) ([]transactionInfoItem, error) {
	callCtx, cancel := a.config.Timeouts.ExternalAPIContext(ctx)
	defer cancel()

	endpoint := strings.TrimRight(a.config.BaseURL, "/") + transactionInfoPath
	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var items []transactionInfoItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return items, nil
}
