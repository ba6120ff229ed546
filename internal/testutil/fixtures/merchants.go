// Package fixtures provides test data builders and helpers.
package fixtures

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/kevin07696/recon-service/internal/domain"
)

// MerchantBuilder provides fluent API for building test merchants.
type MerchantBuilder struct {
	merchant *domain.Merchant
}

// NewMerchant creates a new merchant builder with sensible defaults.
func NewMerchant() *MerchantBuilder {
	id := uuid.New().String()
	return &MerchantBuilder{
		merchant: &domain.Merchant{
			ID:             id,
			Name:           "Test School",
			SchoolID:       "school-" + id[:8],
			TrusteeID:      "trustee-1",
			Gateway:        domain.GatewayEasebuzz,
			GatewayKey:     "EBZKEY" + id[:4],
			SaltSecretPath: "recon/merchants/" + id + "/salt",
			IsActive:       true,
		},
	}
}

func (b *MerchantBuilder) WithID(id string) *MerchantBuilder {
	b.merchant.ID = id
	return b
}

func (b *MerchantBuilder) WithName(name string) *MerchantBuilder {
	b.merchant.Name = name
	return b
}

func (b *MerchantBuilder) WithSchoolID(schoolID string) *MerchantBuilder {
	b.merchant.SchoolID = schoolID
	return b
}

func (b *MerchantBuilder) WithTrusteeID(trusteeID string) *MerchantBuilder {
	b.merchant.TrusteeID = trusteeID
	return b
}

func (b *MerchantBuilder) WithGateway(gateway string) *MerchantBuilder {
	b.merchant.Gateway = gateway
	return b
}

func (b *MerchantBuilder) WithGatewayKey(key string) *MerchantBuilder {
	b.merchant.GatewayKey = key
	return b
}

func (b *MerchantBuilder) WithSaltSecretPath(path string) *MerchantBuilder {
	b.merchant.SaltSecretPath = path
	return b
}

func (b *MerchantBuilder) Inactive() *MerchantBuilder {
	b.merchant.IsActive = false
	return b
}

func (b *MerchantBuilder) Build() *domain.Merchant {
	m := *b.merchant
	return &m
}

// Convenience functions for common merchant scenarios

// ActiveMerchant creates an active merchant with given ID and school.
func ActiveMerchant(id, schoolID string) *domain.Merchant {
	return NewMerchant().
		WithID(id).
		WithName("School " + schoolID).
		WithSchoolID(schoolID).
		Build()
}

// Merchants creates n active merchants with predictable IDs (m-00, m-01, ...).
func Merchants(n int) []*domain.Merchant {
	merchants := make([]*domain.Merchant, n)
	for i := range merchants {
		merchants[i] = ActiveMerchant(fmt.Sprintf("m-%02d", i), fmt.Sprintf("school-%02d", i))
	}
	return merchants
}
