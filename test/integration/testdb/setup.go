package testdb

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kevin07696/recon-service/internal/adapters/database"
	"github.com/kevin07696/recon-service/internal/config"
	"github.com/kevin07696/recon-service/internal/domain"
)

// GetTestDBConfig returns test database configuration from environment or defaults
func GetTestDBConfig() config.DatabaseConfig {
	cfg := config.Default().Database
	cfg.Host = getEnv("TEST_DB_HOST", "localhost")
	cfg.Port = 5434
	if port, err := strconv.Atoi(os.Getenv("TEST_DB_PORT")); err == nil {
		cfg.Port = port
	}
	cfg.User = getEnv("TEST_DB_USER", "postgres")
	cfg.Password = getEnv("TEST_DB_PASSWORD", "postgres")
	cfg.Database = getEnv("TEST_DB_NAME", "recon_service_test")
	cfg.SSLMode = "disable"
	return cfg
}

// SetupTestDB connects to the test database and applies the embedded migrations.
// The adapter is closed when the test finishes.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	cfg := GetTestDBConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adapter, err := database.NewPostgreSQLAdapter(ctx, database.PoolConfigFromDatabase(cfg), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(adapter.Close)

	if err := adapter.Migrate(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	CleanDatabase(t, adapter.Pool())
	t.Logf("Test database setup complete: %s", cfg.Database)

	return adapter.Pool()
}

// CleanDatabase truncates all tables for a fresh test state
func CleanDatabase(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	tables := []string{"reconciliations", "settlements", "refund_requests", "merchants"}
	for _, table := range tables {
		if _, err := pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			t.Logf("Warning: Failed to truncate table %s: %v", table, err)
		}
	}
}

// InsertMerchant adds an active merchant and returns its generated ID
func InsertMerchant(t *testing.T, pool *pgxpool.Pool, m *domain.Merchant) string {
	t.Helper()

	var id string
	err := pool.QueryRow(context.Background(), `
INSERT INTO merchants (name, school_id, trustee_id, gateway, gateway_key, salt_secret_path, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id::text`,
		m.Name, m.SchoolID, m.TrusteeID, m.Gateway, m.GatewayKey, m.SaltSecretPath, m.IsActive,
	).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to insert merchant: %v", err)
	}
	return id
}

// InsertRefundRequest adds a refund request for an order and returns its ID
func InsertRefundRequest(t *testing.T, pool *pgxpool.Pool, orderID string, status domain.RefundRequestStatus, reason string, amount decimal.Decimal) string {
	t.Helper()

	var id string
	err := pool.QueryRow(context.Background(), `
INSERT INTO refund_requests (order_id, status, reason, refund_amount)
VALUES ($1, $2, $3, $4::numeric)
RETURNING id::text`,
		orderID, string(status), reason, amount.String(),
	).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to insert refund request: %v", err)
	}
	return id
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
