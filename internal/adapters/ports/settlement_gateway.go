package ports

import (
	"context"
	"time"

	"github.com/kevin07696/recon-service/internal/domain"
)

// PayoutRequest identifies one merchant's settlement date at the gateway
type PayoutRequest struct {
	MerchantID  string
	Credentials domain.GatewayCredentials
	PayoutDate  time.Time
}

// SettlementGateway retrieves payout batches from the payment gateway
type SettlementGateway interface {
	// FetchPayouts returns every payout for the merchant on the date.
	// An empty slice means no settlements; transport, non-2xx and malformed
	// responses fail with GATEWAY_UNAVAILABLE.
	FetchPayouts(ctx context.Context, req *PayoutRequest) ([]*domain.Payout, error)
}
