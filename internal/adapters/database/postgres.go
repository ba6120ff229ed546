package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/kevin07696/recon-service/internal/config"
	"github.com/kevin07696/recon-service/internal/db"
)

var (
	poolAcquiredConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recon_db_pool_acquired_conns",
		Help: "Connections currently checked out of the pgx pool",
	})

	poolMaxConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recon_db_pool_max_conns",
		Help: "Configured pgx pool size",
	})
)

// PoolConfig sizes the pgx pool shared by the repositories
type PoolConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultPoolConfig sizes the pool for five concurrent merchant tasks, each
// holding at most one connection per upsert, plus the read-back API
func DefaultPoolConfig(url string) PoolConfig {
	return PoolConfig{
		URL:             url,
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// PoolConfigFromDatabase builds the pool config from the service's database settings
func PoolConfigFromDatabase(cfg config.DatabaseConfig) PoolConfig {
	return PoolConfig{
		URL:             cfg.ConnectionString(),
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		MaxConnIdleTime: cfg.MaxConnIdleTime,
	}
}

// Validate rejects pool sizes pgxpool would silently clamp
func (c PoolConfig) Validate() error {
	if c.MaxConns <= 0 {
		return errors.New("max conns must be positive")
	}
	if c.MinConns < 0 || c.MinConns > c.MaxConns {
		return fmt.Errorf("min conns %d must be between 0 and max conns %d", c.MinConns, c.MaxConns)
	}
	return nil
}

// PostgreSQLAdapter owns the pgx pool shared by the reconciliation repositories
type PostgreSQLAdapter struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgreSQLAdapter connects the pool and verifies it with a ping
func NewPostgreSQLAdapter(ctx context.Context, cfg PoolConfig, logger *zap.Logger) (*PostgreSQLAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pool config: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	poolMaxConns.Set(float64(cfg.MaxConns))
	logger.Info("Connected to PostgreSQL",
		zap.String("database", poolConfig.ConnConfig.Database),
		zap.String("host", poolConfig.ConnConfig.Host),
		zap.Int32("max_conns", cfg.MaxConns),
	)

	return &PostgreSQLAdapter{pool: pool, logger: logger}, nil
}

// Pool returns the underlying connection pool; it satisfies ports.DBTX
func (a *PostgreSQLAdapter) Pool() *pgxpool.Pool {
	return a.pool
}

// Close closes the pool. Safe to call more than once.
func (a *PostgreSQLAdapter) Close() {
	a.logger.Info("Closing PostgreSQL connection pool")
	a.pool.Close()
}

// Migrate applies the embedded goose migrations over the pool
func (a *PostgreSQLAdapter) Migrate(ctx context.Context) error {
	sqlDB := stdlib.OpenDBFromPool(a.pool)
	defer sqlDB.Close()

	goose.SetBaseFS(db.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, db.MigrationsDir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	a.logger.Info("Database migrations applied", zap.Int64("version", version))
	return nil
}

// HealthCheck pings the pool; registered with the readiness checker
func (a *PostgreSQLAdapter) HealthCheck(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

// poolPressure classifies utilization of the pool
type poolPressure int

const (
	pressureNormal poolPressure = iota
	pressureHigh                // above 80%
	pressureCritical            // above 95%
)

func classifyPool(acquired, max int32) (poolPressure, float64) {
	if max <= 0 {
		return pressureNormal, 0
	}
	utilization := float64(acquired) / float64(max) * 100
	switch {
	case utilization > 95:
		return pressureCritical, utilization
	case utilization > 80:
		return pressureHigh, utilization
	default:
		return pressureNormal, utilization
	}
}

// StartPoolMonitoring exports pool usage and logs when merchant tasks are
// close to exhausting it. Stops when ctx is done.
func (a *PostgreSQLAdapter) StartPoolMonitoring(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stat := a.pool.Stat()
				a.reportPool(stat.AcquiredConns(), stat.MaxConns())
			}
		}
	}()
}

func (a *PostgreSQLAdapter) reportPool(acquired, max int32) poolPressure {
	poolAcquiredConns.Set(float64(acquired))

	pressure, utilization := classifyPool(acquired, max)
	switch pressure {
	case pressureCritical:
		a.logger.Error("Database pool near exhaustion",
			zap.Int32("acquired", acquired),
			zap.Int32("max", max),
			zap.Float64("utilization_percent", utilization),
		)
	case pressureHigh:
		a.logger.Warn("Database pool highly utilized",
			zap.Int32("acquired", acquired),
			zap.Int32("max", max),
			zap.Float64("utilization_percent", utilization),
		)
	}
	return pressure
}
