// Package export renders purchase sheets and settlement ledgers as xlsx.
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"settlehub/internal/domain"
	"settlehub/internal/sheet"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	purchaseSheetName = "매입"
	summarySheetName  = "매입사 요약"
	ledgerSheetName   = "원장"
)

var ledgerHeaders = []string{
	"ID", "구분", "처리일", "과세매입", "면세매입", "매입금액", "매출금액", "할인금액", "결제금액", "계산서합계", "잔액", "메모",
}

// PurchaseSheet writes the sheet grid under the column headers, plus a
// supplier summary sheet.
func PurchaseSheet(w io.Writer, record domain.PurchaseSheet, summary []domain.SupplierSummary) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", purchaseSheetName); err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := writeRow(f, purchaseSheetName, 1, toAny(sheet.Headers[:])); err != nil {
		return err
	}
	if err := styleRow(f, purchaseSheetName, 1, len(sheet.Headers), headerStyle); err != nil {
		return err
	}
	for r, row := range record.TableData {
		values := make([]any, len(row))
		for c, cell := range row {
			if cell == nil {
				continue
			}
			values[c] = cellValue(cell.Value)
		}
		if err := writeRow(f, purchaseSheetName, r+2, values); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(summarySheetName); err != nil {
		return err
	}
	if err := writeRow(f, summarySheetName, 1, []any{"매입사", "합계금액", "상품 수"}); err != nil {
		return err
	}
	if err := styleRow(f, summarySheetName, 1, 3, headerStyle); err != nil {
		return err
	}
	for i, s := range summary {
		if err := writeRow(f, summarySheetName, i+2, []any{s.Supplier, s.Total.InexactFloat64(), s.ProductCount}); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// Ledger writes ledger rows of one company, carry-over row included.
func Ledger(w io.Writer, details domain.LedgerDetailsResponse) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", ledgerSheetName); err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s (%s ~ %s)", details.Company.Name, details.StartDate, details.EndDate)
	if err := f.SetCellValue(ledgerSheetName, "A1", title); err != nil {
		return err
	}
	if err := writeRow(f, ledgerSheetName, 2, toAny(ledgerHeaders)); err != nil {
		return err
	}
	if err := styleRow(f, ledgerSheetName, 2, len(ledgerHeaders), headerStyle); err != nil {
		return err
	}
	for i, item := range details.Items {
		var detailID any
		if item.DetailID != 0 {
			detailID = item.DetailID
		}
		row := []any{
			detailID,
			item.Type,
			item.ProcessDate.String(),
			money(item.PurchaseTaxAmount),
			money(item.PurchaseTaxFreeAmount),
			money(item.PurchaseAmount),
			money(item.SalesAmount),
			money(item.DiscountAmount),
			money(item.PaymentAmount),
			money(item.InvoiceTotal),
			money(item.Balance),
			item.Memo,
		}
		if err := writeRow(f, ledgerSheetName, i+3, row); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func writeRow(f *excelize.File, sheetName string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheetName, cell, &values)
}

func styleRow(f *excelize.File, sheetName string, row int, cols int, style int) error {
	from, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheetName, from, to, style)
}

func cellValue(v domain.CellValue) any {
	if n, ok := v.Num(); ok {
		return n.InexactFloat64()
	}
	if s, ok := v.Str(); ok {
		return s
	}
	return nil
}

func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
