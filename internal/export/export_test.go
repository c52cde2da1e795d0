package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"settlehub/internal/domain"
)

func TestPurchaseSheetWritesHeadersRowsAndSummary(t *testing.T) {
	record := domain.PurchaseSheet{
		EstimatedDeliveryDate: "2025-03-01",
		TableData: domain.Grid{{
			{Value: domain.StringValue("남도농산")},
			{Value: domain.StringValue("V-1001")},
			{Value: domain.StringValue("대파 1단")},
			{Value: domain.IntValue(42)},
			{Value: domain.IntValue(40)},
			nil,
		}},
	}
	summary := []domain.SupplierSummary{{Supplier: "남도농산", Total: decimal.NewFromInt(72000), ProductCount: 1}}

	var buf bytes.Buffer
	require.NoError(t, PurchaseSheet(&buf, record, summary))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	header, err := f.GetCellValue(purchaseSheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "매입사", header)
	flagHeader, err := f.GetCellValue(purchaseSheetName, "K1")
	require.NoError(t, err)
	assert.Equal(t, "기준매입단가 수정여부", flagHeader)

	qty, err := f.GetCellValue(purchaseSheetName, "E2")
	require.NoError(t, err)
	assert.Equal(t, "40", qty)

	total, err := f.GetCellValue(summarySheetName, "B2")
	require.NoError(t, err)
	assert.Equal(t, "72000", total)
}

func TestLedgerWritesCarryOverAndEntries(t *testing.T) {
	details := domain.LedgerDetailsResponse{
		Company:   domain.Company{Name: "그린팜"},
		StartDate: "2025-03-01",
		EndDate:   "2025-03-31",
		Items: []domain.LedgerEntry{
			{Type: domain.EntryTypeCarryOver, ProcessDate: domain.NewDate(2025, time.March, 1), Balance: decimal.NewFromInt(1000)},
			{DetailID: 9, Type: domain.EntryTypePayment, ProcessDate: domain.NewDate(2025, time.March, 3), PaymentAmount: decimal.NewFromInt(400), Balance: decimal.NewFromInt(600), Memo: "결제 입력(admin) | 1차"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Ledger(&buf, details))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	title, err := f.GetCellValue(ledgerSheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "그린팜 (2025-03-01 ~ 2025-03-31)", title)

	carryOver, err := f.GetCellValue(ledgerSheetName, "B3")
	require.NoError(t, err)
	assert.Equal(t, domain.EntryTypeCarryOver, carryOver)

	balance, err := f.GetCellValue(ledgerSheetName, "K4")
	require.NoError(t, err)
	assert.Equal(t, "600", balance)
}
