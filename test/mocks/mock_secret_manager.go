package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/kevin07696/recon-service/internal/adapters/ports"
)

// MockSecretManager is a testify mock of SecretManagerAdapter
type MockSecretManager struct {
	mock.Mock
}

// GetSecret returns the configured secret for the path
func (m *MockSecretManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	args := m.Called(ctx, path)
	if secret := args.Get(0); secret != nil {
		return secret.(*ports.Secret), args.Error(1)
	}
	return nil, args.Error(1)
}

var _ ports.SecretManagerAdapter = (*MockSecretManager)(nil)
