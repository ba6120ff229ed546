package ports

import (
	"context"
)

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string            // The secret value (e.g., gateway salt)
	Version   string            // Secret version identifier
	Metadata  map[string]string // Additional secret metadata
	CreatedAt string            // When this version was created
}

// SecretManagerAdapter defines the port for retrieving secrets from a secret management service
// Backends: local filesystem (development), AWS Secrets Manager, HashiCorp Vault
type SecretManagerAdapter interface {
	// GetSecret retrieves a secret by its path/name
	// Path format depends on implementation:
	//   - Local: "recon/merchants/{merchant_id}/salt" relative to the base path
	//   - AWS: "recon/merchants/{merchant_id}/salt" or a full ARN
	//   - Vault: "recon/merchants/{merchant_id}" under the KV mount
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
