package merchant

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/kevin07696/recon-service/internal/adapters/ports"
	"github.com/kevin07696/recon-service/internal/adapters/secrets"
	"github.com/kevin07696/recon-service/internal/domain"
)

var (
	// Cache metrics
	// Note: merchantCacheHits uses no labels to avoid allocation overhead
	merchantCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "merchant_credential_cache_hits_total",
		Help: "Total number of gateway credential cache hits",
	})

	merchantCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "merchant_credential_cache_misses_total",
		Help: "Total number of gateway credential cache misses",
	}, []string{"reason"}) // expired, not_found, error

	merchantCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "merchant_credential_cache_size",
		Help: "Current number of merchants in the credential cache",
	})

	merchantCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "merchant_credential_cache_evictions_total",
		Help: "Total number of cache evictions due to size limit",
	})
)

// CredentialCache resolves gateway credentials for merchants. The key comes
// from the merchant row; the salt is read from the secret manager at the
// row's SaltSecretPath and cached per merchant for the TTL.
//
// Three scheduled runs a day share one cache, so with the default TTL each
// run pays the secret manager round trip at most once per merchant.
type CredentialCache struct {
	secretMgr ports.SecretManagerAdapter
	logger    *zap.Logger

	// Configuration
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]*cachedCredential
}

// cachedCredential stores the salt with the inputs it was resolved from
type cachedCredential struct {
	credentials domain.GatewayCredentials
	secretPath  string
	expiresAt   time.Time
	lastAccess  time.Time
}

// NewCredentialCache creates a new gateway credential cache
func NewCredentialCache(
	secretMgr ports.SecretManagerAdapter,
	logger *zap.Logger,
	ttl time.Duration,
	maxSize int,
) *CredentialCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &CredentialCache{
		secretMgr: secretMgr,
		logger:    logger,
		ttl:       ttl,
		maxSize:   maxSize,
		now:       time.Now,
		entries:   make(map[string]*cachedCredential),
	}
}

// Resolve returns the merchant's gateway credentials.
// A merchant without a key or secret path, or whose secret does not exist,
// fails with INVALID_SCHOOL_REFERENCE.
// Thread-safe for concurrent merchant tasks.
func (c *CredentialCache) Resolve(ctx context.Context, m *domain.Merchant) (domain.GatewayCredentials, error) {
	if err := m.ValidateGatewayReference(); err != nil {
		return domain.GatewayCredentials{}, err
	}

	// Fast path: check cache
	now := c.now()
	c.mu.Lock()
	entry, ok := c.entries[m.ID]
	if ok && entry.secretPath == m.SaltSecretPath && now.Before(entry.expiresAt) {
		entry.lastAccess = now
		creds := entry.credentials
		c.mu.Unlock()

		merchantCacheHits.Inc()
		// The key is not secret and may rotate independently of the salt
		creds.Key = m.GatewayKey
		return creds, nil
	}
	c.mu.Unlock()

	if ok {
		merchantCacheMisses.WithLabelValues("expired").Inc()
	} else {
		merchantCacheMisses.WithLabelValues("not_found").Inc()
	}

	// Slow path: fetch from the secret manager
	return c.fetchAndCache(ctx, m)
}

func (c *CredentialCache) fetchAndCache(ctx context.Context, m *domain.Merchant) (domain.GatewayCredentials, error) {
	c.logger.Debug("Fetching gateway salt from secret manager",
		zap.String("merchant_id", m.ID),
		zap.String("secret_path", m.SaltSecretPath),
	)

	secret, err := c.secretMgr.GetSecret(ctx, m.SaltSecretPath)
	if err != nil {
		merchantCacheMisses.WithLabelValues("error").Inc()
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return domain.GatewayCredentials{}, domain.WrapError(domain.ErrorCodeInvalidSchoolReference, "gateway salt not found", err).
				WithDetail("merchant_id", m.ID).
				WithDetail("school_id", m.SchoolID)
		}
		return domain.GatewayCredentials{}, domain.WrapError(domain.ErrorCodeInternalError, "failed to fetch gateway salt", err).
			WithDetail("merchant_id", m.ID)
	}

	creds := domain.GatewayCredentials{Key: m.GatewayKey, Salt: secret.Value}

	now := c.now()
	c.mu.Lock()
	c.entries[m.ID] = &cachedCredential{
		credentials: creds,
		secretPath:  m.SaltSecretPath,
		expiresAt:   now.Add(c.ttl),
		lastAccess:  now,
	}
	c.evictLocked()
	size := len(c.entries)
	c.mu.Unlock()

	merchantCacheSize.Set(float64(size))

	return creds, nil
}

// Invalidate removes a merchant from the cache
// The orchestrator calls it when the gateway rejects the merchant's credentials
func (c *CredentialCache) Invalidate(merchantID string) {
	c.mu.Lock()
	delete(c.entries, merchantID)
	size := len(c.entries)
	c.mu.Unlock()

	merchantCacheSize.Set(float64(size))

	c.logger.Info("Invalidated merchant credential cache entry",
		zap.String("merchant_id", merchantID),
	)
}

// Len returns the number of cached merchants
func (c *CredentialCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictLocked drops the least recently used entries past maxSize. Caller holds mu.
func (c *CredentialCache) evictLocked() {
	if len(c.entries) <= c.maxSize {
		return
	}

	type entry struct {
		id         string
		lastAccess time.Time
	}
	entries := make([]entry, 0, len(c.entries))
	for id, e := range c.entries {
		entries = append(entries, entry{id: id, lastAccess: e.lastAccess})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].lastAccess.Before(entries[j].lastAccess)
	})

	// Evict the overflow plus 10% to reduce churn
	evictCount := (len(c.entries) - c.maxSize) + (c.maxSize / 10)
	for i := 0; i < evictCount && i < len(entries); i++ {
		delete(c.entries, entries[i].id)
		merchantCacheEvictions.Inc()
	}
}
