package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func request(remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/cron/reconcile", nil)
	req.RemoteAddr = remoteAddr
	return req
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	rl := NewRateLimiter(0.5, 2)
	defer rl.Shutdown()
	handler := rl.Middleware(okHandler())

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, request("10.0.0.1:5000"))
		codes[i] = rec.Code
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_KeyIgnoresPort(t *testing.T) {
	rl := NewRateLimiter(0.5, 1)
	defer rl.Shutdown()
	handler := rl.Middleware(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, request("10.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, request("10.0.0.1:6000"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, request("10.0.0.2:5000"))
	assert.Equal(t, http.StatusOK, rec.Code, "other clients have their own budget")
}

func TestRateLimiter_CleanupAndEviction(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Shutdown()
	rl.maxSize = 2

	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.getLimiter("a")
	now = now.Add(time.Second)
	rl.getLimiter("b")
	now = now.Add(time.Second)
	rl.getLimiter("c")

	assert.Len(t, rl.limiters, 2)
	assert.NotContains(t, rl.limiters, "a", "least recently used entry is evicted")

	now = now.Add(10 * time.Minute)
	assert.Equal(t, 2, rl.cleanup())
	assert.Empty(t, rl.limiters)
}
