package memory

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settlehub/internal/domain"
	"settlehub/internal/logging"
	"settlehub/internal/sheet"
	"settlehub/internal/store"
)

func newSeeded(t *testing.T) *Store {
	t.Helper()
	s, err := NewSeeded(logging.Discard())
	require.NoError(t, err)
	return s
}

func TestSeededStoreHasOpenDatesAndUsers(t *testing.T) {
	s := newSeeded(t)
	ctx := context.Background()

	dates, err := s.ListOpenPurchaseDates(ctx)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Less(t, dates[0], dates[1])

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "admin", users[0].Username)
	assert.Equal(t, domain.RoleAdmin, users[0].Role)
}

func TestSeededWarnsAboutDefaultCredentials(t *testing.T) {
	t.Setenv("SEED_ADMIN_PASSWORD", "")
	t.Setenv("SEED_STAFF_PASSWORD", "")
	var buf bytes.Buffer

	_, err := NewSeeded(logging.NewWithOutput("info", &buf))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "default dev credentials")
}

func TestSeededOpenSheetsStartBlank(t *testing.T) {
	s := newSeeded(t)
	ctx := context.Background()
	dates, err := s.ListOpenPurchaseDates(ctx)
	require.NoError(t, err)

	for _, date := range dates {
		record, err := s.GetPurchaseSheet(ctx, date)
		require.NoError(t, err)
		assert.True(t, record.TableData[0][sheet.ColPurchaseQuantity].Value.IsNull())
		assert.True(t, record.TableData[0][sheet.ColTotal].Value.IsNull())

		result := sheet.Check(record.TableData)
		assert.False(t, result.Valid)
		assert.Equal(t, 1, result.Row)
		assert.Equal(t, sheet.ColPurchaseQuantity+1, result.Column)
	}
}

func TestCommitPurchaseSheetOnlyOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.AddCompany(domain.Company{ID: 1, Kind: domain.CompanyKindBuy, Name: "남도농산"})
	require.NoError(t, s.SavePurchaseSheet(ctx, domain.PurchaseSheet{EstimatedDeliveryDate: "2025-03-01", TableData: seedGrid(false)}))

	commit := store.PurchaseCommit{
		Date:        "2025-03-01",
		Grid:        seedGrid(true),
		CommittedBy: "staff",
		CommittedAt: time.Date(2025, 3, 1, 1, 0, 0, 0, time.UTC),
		Entries: []domain.LedgerEntry{{
			Kind: domain.CompanyKindBuy, CompanyID: 1, Type: domain.EntryTypePurchase,
			ProcessDate: domain.NewDate(2025, time.March, 1), PurchaseAmount: decimal.NewFromInt(1000),
		}},
		Logs: []domain.LedgerLog{{ID: "log-1", Description: "야채 매입 생성"}},
	}
	sheetRecord, err := s.CommitPurchaseSheet(ctx, commit)
	require.NoError(t, err)
	require.NotNil(t, sheetRecord.CommittedAt)
	assert.Equal(t, "staff", sheetRecord.CommittedBy)

	_, err = s.CommitPurchaseSheet(ctx, commit)
	assert.ErrorIs(t, err, store.ErrAlreadyCommitted)
	assert.ErrorIs(t, s.SavePurchaseSheet(ctx, domain.PurchaseSheet{EstimatedDeliveryDate: "2025-03-01"}), store.ErrAlreadyCommitted)

	dates, err := s.ListOpenPurchaseDates(ctx)
	require.NoError(t, err)
	assert.Empty(t, dates)

	entries, err := s.ListLedgerEntries(ctx, store.LedgerFilter{Kind: domain.CompanyKindBuy, CompanyID: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	logs, err := s.ListLedgerLogs(ctx, domain.CompanyKindBuy, 1, entries[0].DetailID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "야채 매입 생성", logs[0].Description)
}

func TestCommitUnknownCompanyLeavesSheetOpen(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.SavePurchaseSheet(ctx, domain.PurchaseSheet{EstimatedDeliveryDate: "2025-03-01"}))

	_, err := s.CommitPurchaseSheet(ctx, store.PurchaseCommit{
		Date:    "2025-03-01",
		Entries: []domain.LedgerEntry{{Kind: domain.CompanyKindBuy, CompanyID: 9}},
		Logs:    []domain.LedgerLog{{}},
	})
	assert.ErrorIs(t, err, store.ErrNotFound)

	dates, err := s.ListOpenPurchaseDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-01"}, dates)
}

func TestGetPurchaseSheetReturnsCopy(t *testing.T) {
	s := newSeeded(t)
	ctx := context.Background()
	dates, err := s.ListOpenPurchaseDates(ctx)
	require.NoError(t, err)

	first, err := s.GetPurchaseSheet(ctx, dates[0])
	require.NoError(t, err)
	first.TableData[0][0].Value = domain.StringValue("changed")

	second, err := s.GetPurchaseSheet(ctx, dates[0])
	require.NoError(t, err)
	assert.Equal(t, "남도농산", second.TableData[0][0].Value.String())
}

func TestLedgerEntryLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.AddCompany(domain.Company{ID: 7, Kind: domain.CompanyKindPartner, Name: "그린팜"})

	created, err := s.CreateLedgerEntry(ctx, domain.LedgerEntry{
		Kind: domain.CompanyKindPartner, CompanyID: 7, Type: domain.EntryTypePayment,
		ProcessDate: domain.NewDate(2025, time.March, 2), PaymentAmount: decimal.NewFromInt(5000),
	}, domain.LedgerLog{ID: "log-a", Description: "결제 생성"})
	require.NoError(t, err)
	assert.NotZero(t, created.DetailID)

	_, err = s.GetLedgerEntry(ctx, domain.CompanyKindBuy, 7, created.DetailID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	created.PaymentAmount = decimal.NewFromInt(7000)
	updated, err := s.UpdateLedgerEntry(ctx, *created, domain.LedgerLog{ID: "log-b", Description: "결제 수정"})
	require.NoError(t, err)
	assert.True(t, updated.PaymentAmount.Equal(decimal.NewFromInt(7000)))

	require.NoError(t, s.DeleteLedgerEntry(ctx, domain.CompanyKindPartner, 7, created.DetailID, domain.LedgerLog{ID: "log-c", Description: "결제 삭제"}))
	_, err = s.GetLedgerEntry(ctx, domain.CompanyKindPartner, 7, created.DetailID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	logs, err := s.ListLedgerLogs(ctx, domain.CompanyKindPartner, 7, created.DetailID)
	require.NoError(t, err)
	assert.Len(t, logs, 3)

	_, err = s.CreateLedgerEntry(ctx, domain.LedgerEntry{Kind: domain.CompanyKindPartner, CompanyID: 99}, domain.LedgerLog{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListCompaniesFilters(t *testing.T) {
	s := newSeeded(t)
	ctx := context.Background()

	all, err := s.ListCompanies(ctx, domain.CompanyKindBuy, domain.CompanyFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byName, err := s.ListCompanies(ctx, domain.CompanyKindBuy, domain.CompanyFilter{Name: "청과"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, int64(2), byName[0].ID)

	byPeriod, err := s.ListCompanies(ctx, domain.CompanyKindBuy, domain.CompanyFilter{PaymentPeriods: []string{"01", "06"}})
	require.NoError(t, err)
	assert.Len(t, byPeriod, 2)
}

func TestListDailySalesRange(t *testing.T) {
	s := New()
	partner := int64(101)
	s.AddDailySales(
		domain.DailySales{Date: domain.NewDate(2025, time.March, 1), PartnerID: 101},
		domain.DailySales{Date: domain.NewDate(2025, time.March, 2), PartnerID: 102},
		domain.DailySales{Date: domain.NewDate(2025, time.March, 5), PartnerID: 101},
	)

	rows, err := s.ListDailySales(context.Background(), domain.NewDate(2025, time.March, 1), domain.NewDate(2025, time.March, 2), nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = s.ListDailySales(context.Background(), domain.NewDate(2025, time.March, 1), domain.NewDate(2025, time.March, 31), &partner)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
