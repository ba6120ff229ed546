package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kevin07696/recon-service/internal/adapters/memory"
	"github.com/kevin07696/recon-service/internal/domain"
	"github.com/kevin07696/recon-service/pkg/resilience"
)

func seedRecord(t *testing.T, repo *memory.ReconciliationRepository) *domain.ReconciliationRecord {
	t.Helper()
	refundTime := time.Date(2025, 3, 13, 12, 0, 0, 0, time.UTC)
	record, err := repo.Upsert(context.Background(), &domain.ReconciliationRecord{
		UTR:                    "UTR001",
		FromDate:               time.Date(2025, 3, 13, 2, 0, 0, 0, time.UTC),
		TillDate:               time.Date(2025, 3, 13, 9, 0, 0, 0, time.UTC),
		SettlementAmount:       decimal.RequireFromString("138.00"),
		TotalTransactionAmount: decimal.RequireFromString("150.00"),
		TotalOrderAmount:       decimal.RequireFromString("148.00"),
		RefundSum:              decimal.RequireFromString("10.00"),
		TotalAdjustmentAmount:  decimal.RequireFromString("10.00"),
		Transactions: []domain.ReconTransactionInfo{
			{CollectID: "c1", OrderAmount: decimal.RequireFromString("100"), TransactionAmount: decimal.RequireFromString("100"), PaymentTime: time.Date(2025, 3, 13, 9, 0, 0, 0, time.UTC)},
			{CollectID: "c2", OrderAmount: decimal.RequireFromString("50"), TransactionAmount: decimal.RequireFromString("50"), PaymentTime: time.Date(2025, 3, 13, 2, 0, 0, 0, time.UTC)},
		},
		Refunds: []domain.ReconRefundInfo{
			{RefundID: "r1", OrderID: "o1", RefundAmount: decimal.RequireFromString("10"), RefundTime: &refundTime, EventType: domain.EventTypeRefund,
				RefundInfo: []domain.RefundRequestRef{{ID: "rr-1", Reason: "fee"}, {ID: "rr-2", Reason: "dup"}}},
		},
		SettlementDate: time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC),
		SchoolName:     "Springfield High",
		SchoolID:       "school-1",
		TrusteeID:      "trustee-1",
	})
	require.NoError(t, err)
	return record
}

func newRouter(settlements *memory.SettlementRepository, reconciliations *memory.ReconciliationRepository) http.Handler {
	h := NewHandler(settlements, reconciliations, resilience.TestTimeoutConfig(), zap.NewNop())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestGetReconciliation(t *testing.T) {
	reconciliations := memory.NewReconciliationRepository()
	seedRecord(t, reconciliations)
	router := newRouter(memory.NewSettlementRepository(), reconciliations)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reconciliations/UTR001", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body domain.ReconciliationRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "UTR001", body.UTR)
	assert.Len(t, body.Transactions, 2)
	assert.True(t, body.TotalAdjustmentAmount.Equal(decimal.RequireFromString("10")))
}

func TestGetSettlement(t *testing.T) {
	settlements := memory.NewSettlementRepository()
	_, err := settlements.Upsert(context.Background(), &domain.SettlementRecord{
		UTR:        "UTR001",
		Adjustment: domain.SettlementAdjustmentPlaceholder,
		Status:     domain.SettlementStatusSettled,
	})
	require.NoError(t, err)
	router := newRouter(settlements, memory.NewReconciliationRepository())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/settlements/UTR001", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"adjustment":"0"`)
}

func TestLookup_NotFound(t *testing.T) {
	router := newRouter(memory.NewSettlementRepository(), memory.NewReconciliationRepository())

	for _, path := range []string{
		"/api/v1/settlements/missing",
		"/api/v1/reconciliations/missing",
		"/api/v1/reconciliations/missing/export.xlsx",
	} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

type brokenReconciliations struct{}

func (brokenReconciliations) Upsert(ctx context.Context, record *domain.ReconciliationRecord) (*domain.ReconciliationRecord, error) {
	return nil, errors.New("unused")
}

func (brokenReconciliations) GetByUTR(ctx context.Context, utr string) (*domain.ReconciliationRecord, error) {
	return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get reconciliation", errors.New("conn closed"))
}

func TestGetReconciliation_StoreError(t *testing.T) {
	h := NewHandler(memory.NewSettlementRepository(), brokenReconciliations{}, nil, zap.NewNop())
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reconciliations/UTR001", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "conn closed")
}

func TestExportReconciliation(t *testing.T) {
	reconciliations := memory.NewReconciliationRepository()
	seedRecord(t, reconciliations)
	router := newRouter(memory.NewSettlementRepository(), reconciliations)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reconciliations/UTR001/export.xlsx", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "reconciliation-UTR001.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, transactionsSheet, refundsSheet}, f.GetSheetList())

	utr, err := f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "UTR001", utr)

	txnRows, err := f.GetRows(transactionsSheet)
	require.NoError(t, err)
	require.Len(t, txnRows, 3)
	assert.Equal(t, "Collect ID", txnRows[0][0])
	assert.Equal(t, "c1", txnRows[1][0])

	refundRows, err := f.GetRows(refundsSheet)
	require.NoError(t, err)
	require.Len(t, refundRows, 2)
	assert.Equal(t, "r1", refundRows[1][0])
	assert.Equal(t, domain.EventTypeRefund, refundRows[1][7])
	assert.Equal(t, "rr-1, rr-2", refundRows[1][8])
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "UTR_001__", sanitizeFilename("UTR/001\"."))
}
