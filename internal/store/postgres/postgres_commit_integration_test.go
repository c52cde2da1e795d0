package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"settlehub/internal/domain"
	"settlehub/internal/store"
)

func TestCommitPurchaseSheetClosesDateAndWritesLedger(t *testing.T) {
	databaseURL := os.Getenv("SETTLEHUB_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set SETTLEHUB_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	stamp := time.Now().UnixNano()
	companyID := stamp % 1_000_000_000
	date := domain.DateOf(time.Unix(0, stamp).AddDate(50, 0, int(stamp%3650))).String()

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM ledger_logs WHERE kind = 'buy' AND company_id = $1`, companyID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM ledger_entries WHERE kind = 'buy' AND company_id = $1`, companyID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM companies WHERE kind = 'buy' AND id = $1`, companyID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM purchase_sheets WHERE estimated_delivery_date = $1`, date)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (kind, id, b_nm, payment_period) VALUES ('buy', $1, $2, '01')
	`, companyID, fmt.Sprintf("IT 매입사 %d", stamp)); err != nil {
		t.Fatalf("insert company: %v", err)
	}

	grid := domain.Grid{{
		&domain.Cell{Value: domain.StringValue("IT 매입사"), Key: "buy_company_name"},
	}}
	if err := s.SavePurchaseSheet(ctx, domain.PurchaseSheet{EstimatedDeliveryDate: date, TableData: grid}); err != nil {
		t.Fatalf("save sheet: %v", err)
	}

	commit := store.PurchaseCommit{
		Date:        date,
		Grid:        grid,
		CommittedBy: "it",
		CommittedAt: time.Now().UTC(),
		Entries: []domain.LedgerEntry{{
			Kind: domain.CompanyKindBuy, CompanyID: companyID, Type: domain.EntryTypePurchase,
			ProcessDate: domain.DateOf(time.Now()), PurchaseAmount: decimal.NewFromInt(4200),
		}},
		Logs: []domain.LedgerLog{{ID: fmt.Sprintf("log-it-%d", stamp), Actor: "it", Description: "야채 매입 생성"}},
	}

	committed, err := s.CommitPurchaseSheet(ctx, commit)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if committed.CommittedAt == nil || committed.CommittedBy != "it" {
		t.Fatalf("expected committed sheet, got %+v", committed)
	}

	if _, err := s.CommitPurchaseSheet(ctx, commit); !errors.Is(err, store.ErrAlreadyCommitted) {
		t.Fatalf("expected ErrAlreadyCommitted on second commit, got %v", err)
	}

	entries, err := s.ListLedgerEntries(ctx, store.LedgerFilter{Kind: domain.CompanyKindBuy, CompanyID: companyID})
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	if len(entries) != 1 || !entries[0].PurchaseAmount.Equal(decimal.NewFromInt(4200)) {
		t.Fatalf("unexpected ledger entries: %+v", entries)
	}

	logs, err := s.ListLedgerLogs(ctx, domain.CompanyKindBuy, companyID, entries[0].DetailID)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected one ledger log, got %d", len(logs))
	}
}
