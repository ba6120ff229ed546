package report

import (
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kevin07696/recon-service/internal/domain"
)

const (
	summarySheet      = "Summary"
	transactionsSheet = "Transactions"
	refundsSheet      = "Refunds"
)

var (
	transactionHeader = []interface{}{
		"Collect ID", "Custom Order ID", "Order Amount", "Transaction Amount",
		"Payment Method", "Status", "Payment Time", "Bank Reference", "Student Name", "Student ID",
	}
	refundHeader = []interface{}{
		"Refund ID", "Order ID", "Custom Order ID", "Refund Amount", "Order Amount",
		"Status", "Refund Time", "Event Type", "Refund Requests",
	}
)

// BuildWorkbook renders a reconciliation record as a three-sheet workbook.
// The caller owns the returned file and must Close it.
func BuildWorkbook(record *domain.ReconciliationRecord) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSummary(f, record); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeTransactions(f, record.Transactions); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeRefunds(f, record.Refunds); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeSummary(f *excelize.File, record *domain.ReconciliationRecord) error {
	rows := [][]interface{}{
		{"UTR", record.UTR},
		{"School", record.SchoolName},
		{"School ID", record.SchoolID},
		{"Trustee ID", record.TrusteeID},
		{"Settlement Date", formatTime(record.SettlementDate)},
		{"From", formatTime(record.FromDate)},
		{"Till", formatTime(record.TillDate)},
		{"Settlement Amount", record.SettlementAmount.InexactFloat64()},
		{"Total Transaction Amount", record.TotalTransactionAmount.InexactFloat64()},
		{"Total Order Amount", record.TotalOrderAmount.InexactFloat64()},
		{"Refund Sum", record.RefundSum.InexactFloat64()},
		{"Total Adjustment Amount", record.TotalAdjustmentAmount.InexactFloat64()},
	}
	return writeRows(f, summarySheet, rows)
}

func writeTransactions(f *excelize.File, txns []domain.ReconTransactionInfo) error {
	if _, err := f.NewSheet(transactionsSheet); err != nil {
		return err
	}
	rows := make([][]interface{}, 0, len(txns)+1)
	rows = append(rows, transactionHeader)
	for _, t := range txns {
		rows = append(rows, []interface{}{
			t.CollectID,
			t.CustomOrderID,
			t.OrderAmount.InexactFloat64(),
			t.TransactionAmount.InexactFloat64(),
			t.PaymentMethod,
			t.Status,
			formatTime(t.PaymentTime),
			t.BankReference,
			t.StudentName,
			t.StudentID,
		})
	}
	return writeRows(f, transactionsSheet, rows)
}

func writeRefunds(f *excelize.File, refunds []domain.ReconRefundInfo) error {
	if _, err := f.NewSheet(refundsSheet); err != nil {
		return err
	}
	rows := make([][]interface{}, 0, len(refunds)+1)
	rows = append(rows, refundHeader)
	for _, r := range refunds {
		refundTime := ""
		if r.RefundTime != nil {
			refundTime = formatTime(*r.RefundTime)
		}
		requestIDs := ""
		for i, ref := range r.RefundInfo {
			if i > 0 {
				requestIDs += ", "
			}
			requestIDs += ref.ID
		}
		rows = append(rows, []interface{}{
			r.RefundID,
			r.OrderID,
			r.CustomOrderID,
			r.RefundAmount.InexactFloat64(),
			r.OrderAmount.InexactFloat64(),
			r.Status,
			refundTime,
			r.EventType,
			requestIDs,
		})
	}
	return writeRows(f, refundsSheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
