package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kevin07696/recon-service/internal/domain"
	"github.com/kevin07696/recon-service/internal/domain/ports"
	"github.com/kevin07696/recon-service/pkg/resilience"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves stored settlement and reconciliation records
type Handler struct {
	settlements     ports.SettlementRepository
	reconciliations ports.ReconciliationRepository
	timeouts        *resilience.TimeoutConfig
	logger          *zap.Logger
}

// NewHandler creates a new report handler
func NewHandler(
	settlements ports.SettlementRepository,
	reconciliations ports.ReconciliationRepository,
	timeouts *resilience.TimeoutConfig,
	logger *zap.Logger,
) *Handler {
	if timeouts == nil {
		timeouts = resilience.DefaultTimeoutConfig()
	}
	return &Handler{
		settlements:     settlements,
		reconciliations: reconciliations,
		timeouts:        timeouts,
		logger:          logger,
	}
}

// RegisterRoutes mounts the read-back endpoints
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/settlements/{utr}", h.GetSettlement)
		r.Get("/reconciliations/{utr}", h.GetReconciliation)
		r.Get("/reconciliations/{utr}/export.xlsx", h.ExportReconciliation)
	})
}

// GetSettlement handles GET /api/v1/settlements/{utr}
func (h *Handler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	utr := chi.URLParam(r, "utr")

	ctx, cancel := h.timeouts.HandlerContext(r.Context())
	defer cancel()

	record, err := h.settlements.GetByUTR(ctx, utr)
	if err != nil {
		h.handleLookupError(w, "settlement", utr, err)
		return
	}
	h.respondJSON(w, http.StatusOK, record)
}

// GetReconciliation handles GET /api/v1/reconciliations/{utr}
func (h *Handler) GetReconciliation(w http.ResponseWriter, r *http.Request) {
	utr := chi.URLParam(r, "utr")

	ctx, cancel := h.timeouts.HandlerContext(r.Context())
	defer cancel()

	record, err := h.reconciliations.GetByUTR(ctx, utr)
	if err != nil {
		h.handleLookupError(w, "reconciliation", utr, err)
		return
	}
	h.respondJSON(w, http.StatusOK, record)
}

// ExportReconciliation handles GET /api/v1/reconciliations/{utr}/export.xlsx
func (h *Handler) ExportReconciliation(w http.ResponseWriter, r *http.Request) {
	utr := chi.URLParam(r, "utr")

	ctx, cancel := h.timeouts.HandlerContext(r.Context())
	defer cancel()

	record, err := h.reconciliations.GetByUTR(ctx, utr)
	if err != nil {
		h.handleLookupError(w, "reconciliation", utr, err)
		return
	}

	f, err := BuildWorkbook(record)
	if err != nil {
		h.logger.Error("Failed to build reconciliation workbook", zap.String("utr", utr), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to build export")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="reconciliation-%s.xlsx"`, sanitizeFilename(utr)))
	w.WriteHeader(http.StatusOK)
	if err := f.Write(w); err != nil {
		h.logger.Error("Failed to write reconciliation workbook", zap.String("utr", utr), zap.Error(err))
	}
}

func (h *Handler) handleLookupError(w http.ResponseWriter, kind, utr string, err error) {
	if errors.Is(err, domain.ErrRecordNotFound) {
		h.respondError(w, http.StatusNotFound, kind+" not found")
		return
	}
	h.logger.Error("Failed to load record",
		zap.String("kind", kind),
		zap.String("utr", utr),
		zap.Error(err),
	)
	h.respondError(w, http.StatusInternalServerError, "failed to load "+kind)
}

func (h *Handler) respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
