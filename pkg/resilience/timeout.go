package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines timeout values for the reconciliation timeout hierarchy
//
// Timeout Hierarchy (from outermost to innermost):
//   Reconciliation run (30m)
//     ↓
//   Merchant task (10m)
//     ↓
//   External API (30s - gateway payout call, payments service call)
//     ↓
//   Single retry attempt (10s)
//
// HTTP handlers that wait for a run inherit the run timeout; read-only
// handlers use HTTPHandler. Database calls use DatabaseQuery.
type TimeoutConfig struct {
	// Handler layer timeouts
	HTTPHandler time.Duration // Read endpoints (default: 30s)
	Run         time.Duration // Full reconciliation run (default: 30 minutes)

	// Service layer timeouts
	MerchantTask time.Duration // One merchant's payouts (default: 10 minutes)

	// External API timeouts (adapters)
	ExternalAPI time.Duration // Gateway and payments service calls (default: 30s)
	SingleRetry time.Duration // Individual retry attempt (default: 10s)

	// Database timeouts
	DatabaseQuery time.Duration // Single upsert or lookup (default: 5s)
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler:   30 * time.Second,
		Run:           30 * time.Minute,
		MerchantTask:  10 * time.Minute,
		ExternalAPI:   30 * time.Second,
		SingleRetry:   10 * time.Second,
		DatabaseQuery: 5 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler:   2 * time.Second,
		Run:           10 * time.Second,
		MerchantTask:  5 * time.Second,
		ExternalAPI:   2 * time.Second,
		SingleRetry:   1 * time.Second,
		DatabaseQuery: 1 * time.Second,
	}
}

// HandlerContext creates a context with timeout for read-only HTTP handlers
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// RunContext creates a context with timeout for a full reconciliation run
func (tc *TimeoutConfig) RunContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Run)
}

// MerchantTaskContext creates a context for one merchant task
func (tc *TimeoutConfig) MerchantTaskContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.MerchantTask)
}

// ExternalAPIContext creates a context for external API calls
func (tc *TimeoutConfig) ExternalAPIContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.ExternalAPI)
}

// RetryAttemptContext creates a context for a single retry attempt
func (tc *TimeoutConfig) RetryAttemptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.SingleRetry)
}

// DatabaseContext creates a context for a single database statement
func (tc *TimeoutConfig) DatabaseContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.DatabaseQuery)
}
