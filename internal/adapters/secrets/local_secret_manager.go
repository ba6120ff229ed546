package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kevin07696/recon-service/internal/adapters/ports"
)

// localSecretManager implements SecretManagerAdapter using local filesystem
// WARNING: This is for development only. Use AWS Secrets Manager or Vault in production.
type localSecretManager struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalSecretManager creates a new local filesystem secret manager
func NewLocalSecretManager(basePath string, logger *zap.Logger) ports.SecretManagerAdapter {
	return &localSecretManager{
		basePath: basePath,
		logger:   logger,
	}
}

// GetSecret reads the file at basePath/secretPath. The file may hold the
// salt as plain text or as a JSON object with a "salt" or "value" key.
func (m *localSecretManager) GetSecret(ctx context.Context, secretPath string) (*ports.Secret, error) {
	_ = ctx
	// Rooting the path before joining keeps ".." from leaving basePath
	filePath := filepath.Join(m.basePath, filepath.Clean("/"+secretPath))

	m.logger.Debug("Reading secret from filesystem",
		zap.String("path", secretPath),
	)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, secretPath)
		}
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	value := extractValue(string(data))
	if value == "" {
		return nil, fmt.Errorf("%w: %s is empty", ErrSecretNotFound, secretPath)
	}

	info, _ := os.Stat(filePath)
	secret := &ports.Secret{
		Value:    value,
		Version:  "local",
		Metadata: map[string]string{"path": filePath},
	}
	if info != nil {
		secret.CreatedAt = info.ModTime().UTC().Format("2006-01-02T15:04:05Z")
	}
	return secret, nil
}
