package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kevin07696/recon-service/internal/adapters/ports"
	"github.com/kevin07696/recon-service/internal/adapters/secrets"
	"github.com/kevin07696/recon-service/internal/config"
)

// initSecretManager initializes the secret manager that holds merchant gateway salts
// Supports:
//   - AWS Secrets Manager (production): SECRET_MANAGER=aws, AWS_REGION
//   - HashiCorp Vault: SECRET_MANAGER=vault, VAULT_ADDR plus token or AppRole credentials
//   - Local files (development/testing): SECRET_MANAGER=local, LOCAL_SECRETS_PATH
func initSecretManager(ctx context.Context, cfg *config.SecretsConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	switch cfg.Backend {
	case "aws":
		return initAWSSecretManager(ctx, cfg, logger)
	case "vault":
		return initVaultSecretManager(ctx, cfg, logger)
	case "local":
		logger.Warn("Using LOCAL file secret manager - NOT for production use!",
			zap.String("path", cfg.LocalPath),
		)
		return secrets.NewLocalSecretManager(cfg.LocalPath, logger), nil
	default:
		return nil, fmt.Errorf("unknown secret manager %q", cfg.Backend)
	}
}

func initAWSSecretManager(ctx context.Context, cfg *config.SecretsConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	sm, err := secrets.NewAWSSecretsManagerAdapter(ctx, &secrets.AWSSecretsManagerConfig{
		Region:   cfg.AWSRegion,
		Profile:  cfg.AWSProfile,
		Endpoint: cfg.AWSEndpoint,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("aws secrets manager: %w", err)
	}

	logger.Info("AWS Secrets Manager initialized",
		zap.String("region", cfg.AWSRegion),
	)
	return sm, nil
}

func initVaultSecretManager(ctx context.Context, cfg *config.SecretsConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	vaultCfg := secrets.DefaultVaultConfig(cfg.VaultAddress)
	if cfg.VaultAuthMethod != "" {
		vaultCfg.AuthMethod = cfg.VaultAuthMethod
	}
	vaultCfg.Token = cfg.VaultToken
	vaultCfg.RoleID = cfg.VaultRoleID
	vaultCfg.SecretID = cfg.VaultSecretID
	vaultCfg.Namespace = cfg.VaultNamespace
	if cfg.VaultMountPath != "" {
		vaultCfg.MountPath = cfg.VaultMountPath
	}
	if cfg.VaultKVVersion != "" {
		vaultCfg.KVVersion = cfg.VaultKVVersion
	}

	sm, err := secrets.NewVaultAdapter(ctx, vaultCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}

	logger.Info("Vault secret manager initialized",
		zap.String("address", cfg.VaultAddress),
		zap.String("auth_method", vaultCfg.AuthMethod),
		zap.String("mount_path", vaultCfg.MountPath),
	)
	return sm, nil
}
