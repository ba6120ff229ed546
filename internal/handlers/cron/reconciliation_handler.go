package cron

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kevin07696/recon-service/internal/services/ports"
	"github.com/kevin07696/recon-service/pkg/resilience"
	"github.com/kevin07696/recon-service/pkg/timeutil"
)

// ReconciliationHandler handles the on-demand reconciliation trigger
type ReconciliationHandler struct {
	service    ports.ReconciliationService
	timeouts   *resilience.TimeoutConfig
	logger     *zap.Logger
	cronSecret string // Secret token for authenticating trigger requests; empty disables the check
}

// NewReconciliationHandler creates a new reconciliation trigger handler
func NewReconciliationHandler(
	service ports.ReconciliationService,
	timeouts *resilience.TimeoutConfig,
	logger *zap.Logger,
	cronSecret string,
) *ReconciliationHandler {
	if timeouts == nil {
		timeouts = resilience.DefaultTimeoutConfig()
	}
	return &ReconciliationHandler{
		service:    service,
		timeouts:   timeouts,
		logger:     logger,
		cronSecret: cronSecret,
	}
}

// RegisterRoutes mounts the trigger and health endpoints
func (h *ReconciliationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/cron/reconcile", h.Reconcile)
	r.Post("/cron/reconcile", h.Reconcile)
	r.Get("/cron/health", h.HealthCheck)
}

// ReconcileRequest represents the optional POST body
type ReconcileRequest struct {
	Date      *string  `json:"date"`       // Optional: YYYY-MM-DD, DD-MM-YYYY or RFC3339; defaults to today
	SchoolIDs []string `json:"school_ids"` // Optional: restrict the run to these schools
}

// ReconcileResponse is the run summary plus a success flag
type ReconcileResponse struct {
	Success bool `json:"success"`
	*ports.RunSummary
}

// Reconcile handles GET|POST /cron/reconcile.
// The date and school_id query parameters take precedence over the body.
func (h *ReconciliationHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Reconciliation trigger received",
		zap.String("method", r.Method),
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("user_agent", r.UserAgent()),
	)

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "only GET and POST methods are allowed")
		return
	}

	if !h.authenticateRequest(r) {
		h.logger.Warn("Unauthorized cron request",
			zap.String("remote_addr", r.RemoteAddr),
		)
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Chunked bodies report ContentLength -1; an empty body means no options
	var req ReconcileRequest
	if r.Method == http.MethodPost && r.Body != nil && r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
	}

	query := r.URL.Query()
	if d := query.Get("date"); d != "" {
		req.Date = &d
	}
	if ids := query["school_id"]; len(ids) > 0 {
		req.SchoolIDs = ids
	}

	runReq := ports.RunRequest{
		SchoolIDs: compact(req.SchoolIDs),
		Trigger:   ports.TriggerManual,
	}
	if req.Date != nil && *req.Date != "" {
		parsed, err := timeutil.ParseSettlementDate(*req.Date)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid date format: %v", err))
			return
		}
		runReq.Date = &parsed
	}

	// The run outlives a dropped client connection
	ctx, cancel := h.timeouts.RunContext(context.WithoutCancel(r.Context()))
	defer cancel()

	summary, err := h.service.Run(ctx, runReq)
	if err != nil {
		h.logger.Error("Reconciliation run failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "reconciliation run failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(ReconcileResponse{Success: true, RunSummary: summary}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// authenticateRequest verifies the trigger request is authorized
func (h *ReconciliationHandler) authenticateRequest(r *http.Request) bool {
	if h.cronSecret == "" {
		return true
	}

	// Check X-Cron-Secret header
	if secret := r.Header.Get("X-Cron-Secret"); secret != "" && secureEqual(secret, h.cronSecret) {
		return true
	}

	// Check Authorization header (Bearer token)
	authHeader := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok && secureEqual(token, h.cronSecret) {
		return true
	}

	return false
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func compact(ids []string) []string {
	out := ids[:0:0]
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// respondError sends an error response
func (h *ReconciliationHandler) respondError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := map[string]interface{}{
		"success": false,
		"error":   message,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}

// HealthCheck handles GET /cron/health for monitoring
func (h *ReconciliationHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	}

	json.NewEncoder(w).Encode(resp)
}
