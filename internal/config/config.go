package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the optional YAML file overlaid before environment variables
const ConfigFileEnv = "RECON_CONFIG_FILE"

// Config holds all application configuration
type Config struct {
	Environment    string               `yaml:"environment"`
	Server         ServerConfig         `yaml:"server"`
	Database       DatabaseConfig       `yaml:"database"`
	Gateway        GatewayConfig        `yaml:"gateway"`
	Payments       PaymentsConfig       `yaml:"payments"`
	Secrets        SecretsConfig        `yaml:"secrets"`
	Reconciliation ReconciliationConfig `yaml:"reconciliation"`
	Logger         LoggerConfig         `yaml:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int    `yaml:"port"`
	Host        string `yaml:"host"`
	MetricsPort int    `yaml:"metrics_port"`
	CronSecret  string `yaml:"cron_secret"` // Authenticates the on-demand trigger
	RateLimit   int    `yaml:"rate_limit"`  // Trigger requests per second per client
	RateBurst   int    `yaml:"rate_burst"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// GatewayConfig holds Easebuzz payout API configuration
type GatewayConfig struct {
	Name       string        `yaml:"name"`     // Merchant directory gateway filter (default: EASEBUZZ)
	BaseURL    string        `yaml:"base_url"` // e.g. https://dashboard.easebuzz.in
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// PaymentsConfig holds the payments service (enrichment) configuration
type PaymentsConfig struct {
	BaseURL     string        `yaml:"base_url"`
	TokenSecret string        `yaml:"token_secret"` // HS256 key for the {utr} sign
	Timeout     time.Duration `yaml:"timeout"`
}

// SecretsConfig selects where gateway salts are read from
type SecretsConfig struct {
	Backend   string `yaml:"backend"`   // local, aws or vault
	LocalPath string `yaml:"local_path"`

	AWSRegion   string `yaml:"aws_region"`
	AWSProfile  string `yaml:"aws_profile"`
	AWSEndpoint string `yaml:"aws_endpoint"`

	VaultAddress    string `yaml:"vault_address"`
	VaultAuthMethod string `yaml:"vault_auth_method"`
	VaultToken      string `yaml:"vault_token"`
	VaultRoleID     string `yaml:"vault_role_id"`
	VaultSecretID   string `yaml:"vault_secret_id"`
	VaultNamespace  string `yaml:"vault_namespace"`
	VaultMountPath  string `yaml:"vault_mount_path"`
	VaultKVVersion  string `yaml:"vault_kv_version"`

	CacheTTL     time.Duration `yaml:"cache_ttl"`
	CacheMaxSize int           `yaml:"cache_max_size"`
}

// ReconciliationConfig holds run-level settings
type ReconciliationConfig struct {
	SchoolIDs       []string      `yaml:"school_ids"` // Empty means every merchant on the gateway
	RunTimeout      time.Duration `yaml:"run_timeout"`
	MerchantTimeout time.Duration `yaml:"merchant_timeout"`
	ScheduleEnabled bool          `yaml:"schedule_enabled"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:        8081,
			Host:        "0.0.0.0",
			MetricsPort: 9090,
			RateLimit:   2,
			RateBurst:   5,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Database:        "recon_service",
			SSLMode:         "disable",
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
			AutoMigrate:     true,
		},
		Gateway: GatewayConfig{
			Name:       "EASEBUZZ",
			BaseURL:    "https://dashboard.easebuzz.in",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Payments: PaymentsConfig{
			Timeout: 30 * time.Second,
		},
		Secrets: SecretsConfig{
			Backend:         "local",
			LocalPath:       "./secrets",
			AWSRegion:       "ap-south-1",
			VaultAuthMethod: "token",
			VaultMountPath:  "secret",
			VaultKVVersion:  "v2",
			CacheTTL:        5 * time.Minute,
			CacheMaxSize:    1000,
		},
		Reconciliation: ReconciliationConfig{
			RunTimeout:      30 * time.Minute,
			MerchantTimeout: 10 * time.Minute,
			ScheduleEnabled: true,
		},
		Logger: LoggerConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// RECON_CONFIG_FILE, and environment variables, in increasing precedence
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	cfg.overlayEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() (*Config, error) {
	cfg := Default()
	cfg.overlayEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)

	c.Server.Port = getEnvAsInt("HTTP_PORT", c.Server.Port)
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.MetricsPort = getEnvAsInt("METRICS_PORT", c.Server.MetricsPort)
	c.Server.CronSecret = getEnv("CRON_SECRET", c.Server.CronSecret)
	c.Server.RateLimit = getEnvAsInt("TRIGGER_RATE_LIMIT", c.Server.RateLimit)
	c.Server.RateBurst = getEnvAsInt("TRIGGER_RATE_BURST", c.Server.RateBurst)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("DB_NAME", c.Database.Database)
	c.Database.SSLMode = getEnv("DB_SSL_MODE", c.Database.SSLMode)
	c.Database.MaxConns = int32(getEnvAsInt("DB_MAX_CONNS", int(c.Database.MaxConns)))
	c.Database.MinConns = int32(getEnvAsInt("DB_MIN_CONNS", int(c.Database.MinConns)))
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.AutoMigrate = getEnvAsBool("DB_AUTO_MIGRATE", c.Database.AutoMigrate)

	c.Gateway.Name = getEnv("GATEWAY_NAME", c.Gateway.Name)
	c.Gateway.BaseURL = getEnv("EASEBUZZ_BASE_URL", c.Gateway.BaseURL)
	c.Gateway.Timeout = getEnvAsDuration("EASEBUZZ_TIMEOUT", c.Gateway.Timeout)
	c.Gateway.MaxRetries = getEnvAsInt("EASEBUZZ_MAX_RETRIES", c.Gateway.MaxRetries)

	c.Payments.BaseURL = getEnv("PAYMENTS_SERVICE_URL", c.Payments.BaseURL)
	c.Payments.TokenSecret = getEnv("PAYMENTS_TOKEN_SECRET", c.Payments.TokenSecret)
	c.Payments.Timeout = getEnvAsDuration("PAYMENTS_TIMEOUT", c.Payments.Timeout)

	c.Secrets.Backend = getEnv("SECRET_MANAGER", c.Secrets.Backend)
	c.Secrets.LocalPath = getEnv("LOCAL_SECRETS_PATH", c.Secrets.LocalPath)
	c.Secrets.AWSRegion = getEnv("AWS_REGION", c.Secrets.AWSRegion)
	c.Secrets.AWSProfile = getEnv("AWS_PROFILE", c.Secrets.AWSProfile)
	c.Secrets.AWSEndpoint = getEnv("AWS_SECRETS_ENDPOINT", c.Secrets.AWSEndpoint)
	c.Secrets.VaultAddress = getEnv("VAULT_ADDR", c.Secrets.VaultAddress)
	c.Secrets.VaultAuthMethod = getEnv("VAULT_AUTH_METHOD", c.Secrets.VaultAuthMethod)
	c.Secrets.VaultToken = getEnv("VAULT_TOKEN", c.Secrets.VaultToken)
	c.Secrets.VaultRoleID = getEnv("VAULT_ROLE_ID", c.Secrets.VaultRoleID)
	c.Secrets.VaultSecretID = getEnv("VAULT_SECRET_ID", c.Secrets.VaultSecretID)
	c.Secrets.VaultNamespace = getEnv("VAULT_NAMESPACE", c.Secrets.VaultNamespace)
	c.Secrets.VaultMountPath = getEnv("VAULT_MOUNT_PATH", c.Secrets.VaultMountPath)
	c.Secrets.VaultKVVersion = getEnv("VAULT_KV_VERSION", c.Secrets.VaultKVVersion)
	c.Secrets.CacheTTL = getEnvAsDuration("SECRET_CACHE_TTL", c.Secrets.CacheTTL)
	c.Secrets.CacheMaxSize = getEnvAsInt("SECRET_CACHE_MAX_SIZE", c.Secrets.CacheMaxSize)

	c.Reconciliation.SchoolIDs = getEnvAsList("RECON_SCHOOL_IDS", c.Reconciliation.SchoolIDs)
	c.Reconciliation.RunTimeout = getEnvAsDuration("RECON_RUN_TIMEOUT", c.Reconciliation.RunTimeout)
	c.Reconciliation.MerchantTimeout = getEnvAsDuration("RECON_MERCHANT_TIMEOUT", c.Reconciliation.MerchantTimeout)
	c.Reconciliation.ScheduleEnabled = getEnvAsBool("RECON_SCHEDULE_ENABLED", c.Reconciliation.ScheduleEnabled)

	c.Logger.Level = getEnv("LOG_LEVEL", c.Logger.Level)
	c.Logger.Development = getEnvAsBool("LOG_DEVELOPMENT", c.Logger.Development)
}

// Validate checks required fields
func (c *Config) Validate() error {
	if c.Payments.BaseURL == "" {
		return fmt.Errorf("PAYMENTS_SERVICE_URL is required")
	}
	if c.Payments.TokenSecret == "" {
		return fmt.Errorf("PAYMENTS_TOKEN_SECRET is required")
	}
	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("EASEBUZZ_BASE_URL is required")
	}
	if c.Gateway.MaxRetries < 1 {
		return fmt.Errorf("EASEBUZZ_MAX_RETRIES must be at least 1")
	}
	switch c.Secrets.Backend {
	case "local", "aws", "vault":
	default:
		return fmt.Errorf("SECRET_MANAGER must be one of local, aws, vault; got %q", c.Secrets.Backend)
	}
	if c.Secrets.Backend == "vault" && c.Secrets.VaultAddress == "" {
		return fmt.Errorf("VAULT_ADDR is required when SECRET_MANAGER=vault")
	}
	if c.IsProduction() && c.Server.CronSecret == "" {
		return fmt.Errorf("CRON_SECRET is required in production")
	}
	return nil
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ConnectionString returns the PostgreSQL connection URL
func (c *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
