package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reconciliation run metrics
	reconRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recon_runs_total",
		Help: "Total reconciliation runs",
	}, []string{
		"trigger", // schedule, manual
	})

	reconRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "recon_run_duration_seconds",
		Help: "Wall time of a full reconciliation run",
		// Buckets: 1s to 30m
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{
		"trigger",
	})

	// Merchant task metrics
	reconMerchantTasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recon_merchant_tasks_total",
		Help: "Merchant tasks by outcome",
	}, []string{
		"status",     // succeeded, unavailable, failed
		"error_code", // GATEWAY_UNAVAILABLE, ENRICHMENT_UNAVAILABLE, ...
	})

	reconMerchantTasksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recon_merchant_tasks_in_flight",
		Help: "Merchant tasks currently holding a concurrency slot",
	})

	// Payout metrics
	reconPayoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recon_payouts_total",
		Help: "Payouts processed by outcome",
	}, []string{
		"status", // reconciled, failed
	})

	reconAdjustmentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recon_refund_adjustment_total",
		Help: "Sum of refund adjustments observed across payouts",
	})

	// Outbound call metrics
	externalCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recon_external_call_duration_seconds",
		Help:    "Duration of gateway and payments service calls",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"target", // gateway, payments
		"status", // success, error
	})
)

// RecordRun records a completed reconciliation run
func RecordRun(trigger string, durationSeconds float64) {
	reconRunsTotal.WithLabelValues(trigger).Inc()
	reconRunDuration.WithLabelValues(trigger).Observe(durationSeconds)
}

// RecordMerchantTask records the outcome of one merchant task
func RecordMerchantTask(status, errorCode string) {
	reconMerchantTasksTotal.WithLabelValues(status, errorCode).Inc()
}

// MerchantTaskStarted marks a concurrency slot as taken
func MerchantTaskStarted() {
	reconMerchantTasksInFlight.Inc()
}

// MerchantTaskFinished marks a concurrency slot as released
func MerchantTaskFinished() {
	reconMerchantTasksInFlight.Dec()
}

// RecordPayout records one payout's outcome and its refund adjustment
func RecordPayout(status string, adjustment float64) {
	reconPayoutsTotal.WithLabelValues(status).Inc()
	if adjustment > 0 {
		reconAdjustmentTotal.Add(adjustment)
	}
}

// RecordExternalCall records an outbound call to the gateway or payments service
func RecordExternalCall(target string, err error, durationSeconds float64) {
	status := "success"
	if err != nil {
		status = "error"
	}
	externalCallDuration.WithLabelValues(target, status).Observe(durationSeconds)
}
