package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker(t *testing.T) {
	hc := NewHealthChecker(time.Second)
	hc.AddCheck("database", func(ctx context.Context) error { return nil })

	rec := httptest.NewRecorder()
	NewMetricsRouter(hc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"healthy"`)

	hc.AddCheck("database", func(ctx context.Context) error { return errors.New("connection refused") })
	rec = httptest.NewRecorder()
	NewMetricsRouter(hc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unhealthy: connection refused")
}

func TestHealthChecker_Ready(t *testing.T) {
	hc := NewHealthChecker(0)
	router := NewMetricsRouter(hc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	hc.SetReady(true)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	RecordRun("manual", 1.5)

	rec := httptest.NewRecorder()
	NewMetricsRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "recon_runs_total")
}

func TestHTTPMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetrics)
	r.Get("/api/v1/reconciliations/{utr}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/api/v1/reconciliations/{utr}", "404"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reconciliations/UTR999", nil))

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/api/v1/reconciliations/{utr}", "404"))
	assert.Equal(t, before+1, after)
}

func TestRecordExternalCall(t *testing.T) {
	RecordExternalCall("gateway", errors.New("timeout"), 0.2)
	RecordExternalCall("gateway", nil, 0.1)
	assert.Equal(t, 2, testutil.CollectAndCount(externalCallDuration))
}

func TestRecordPayout_AdjustmentOnlyPositive(t *testing.T) {
	before := testutil.ToFloat64(reconAdjustmentTotal)
	RecordPayout("reconciled", 12.5)
	RecordPayout("failed", 0)
	assert.Equal(t, before+12.5, testutil.ToFloat64(reconAdjustmentTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(reconPayoutsTotal.WithLabelValues("failed")))
}
