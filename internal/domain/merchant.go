package domain

import (
	"strings"
)

// GatewayEasebuzz is the gateway integration whose settlements are reconciled
const GatewayEasebuzz = "EASEBUZZ"

// Merchant represents a school/trustee account configured for a payment gateway.
// The gateway salt is never stored on the row; SaltSecretPath points at the
// secret manager entry holding it.
type Merchant struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SchoolID       string `json:"school_id"`
	TrusteeID      string `json:"trustee_id"`
	Gateway        string `json:"gateway"`
	GatewayKey     string `json:"gateway_key"`
	SaltSecretPath string `json:"salt_secret_path"`
	IsActive       bool   `json:"is_active"`
}

// MerchantSelection narrows the merchant directory query for one run
type MerchantSelection struct {
	Gateway   string
	SchoolIDs []string // empty selects every school on the gateway
}

// Matches reports whether the merchant falls inside the selection
func (s MerchantSelection) Matches(m *Merchant) bool {
	if m == nil || !m.IsActive {
		return false
	}
	if s.Gateway != "" && !strings.EqualFold(m.Gateway, s.Gateway) {
		return false
	}
	if len(s.SchoolIDs) == 0 {
		return true
	}
	for _, id := range s.SchoolIDs {
		if id == m.SchoolID {
			return true
		}
	}
	return false
}

// ValidateGatewayReference checks the sub-fields needed to call the gateway
func (m *Merchant) ValidateGatewayReference() error {
	if m.SchoolID == "" {
		return NewDomainError(ErrorCodeInvalidSchoolReference, "merchant has no school id").
			WithDetail("merchant_id", m.ID)
	}
	if m.GatewayKey == "" {
		return NewDomainError(ErrorCodeInvalidSchoolReference, "merchant has no gateway key").
			WithDetail("merchant_id", m.ID)
	}
	if m.SaltSecretPath == "" {
		return NewDomainError(ErrorCodeInvalidSchoolReference, "merchant has no gateway salt reference").
			WithDetail("merchant_id", m.ID)
	}
	return nil
}

// GatewayCredentials are the resolved key and salt for one merchant
type GatewayCredentials struct {
	Key  string
	Salt string
}
