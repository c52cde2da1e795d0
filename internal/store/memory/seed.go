package memory

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"settlehub/internal/domain"
	"settlehub/internal/logging"
	"settlehub/internal/sheet"
)

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD; when
// unset, dev defaults are used with a warning.
func seedUsers(logger *logrus.Logger, now time.Time) (map[string]domain.UserAccount, error) {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		logger.WithField("module", "memory-store").Warn("using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override")
	}

	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"staff", staffPwd, domain.RoleStaff},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash seed password for %s: %w", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type seedProduct struct {
	supplier  string
	productID string
	name      string
	sold      int64
	avgPrice  int64
	salePrice int64
	baseline  int64
}

var seedProducts = []seedProduct{
	{"남도농산", "V-1001", "대파 1단", 42, 3200, 3500, 1800},
	{"", "V-1002", "양파 3kg", 18, 7900, 8500, 5200},
	{"", "V-1003", "깐마늘 500g", 25, 6400, 6900, 4100},
	{"청과상회", "V-2001", "청상추 200g", 31, 2900, 3200, 1500},
	{"", "V-2002", "애호박", 27, 1900, 2100, 1100},
	{"하나유통", "V-3001", "양배추 1통", 12, 4300, 4800, 2600},
}

func seedGrid(withQuantities bool) domain.Grid {
	grid := make(domain.Grid, 0, len(seedProducts))
	for _, p := range seedProducts {
		qty, total := domain.NullValue(), domain.NullValue()
		if withQuantities {
			qty = domain.IntValue(p.sold)
			total = domain.IntValue(p.sold * p.baseline)
		}
		values := []domain.CellValue{
			domain.StringValue(p.supplier),
			domain.StringValue(p.productID),
			domain.StringValue(p.name),
			domain.IntValue(p.sold),
			qty,
			domain.IntValue(p.avgPrice),
			domain.IntValue(p.salePrice),
			domain.IntValue(p.baseline),
			domain.IntValue(p.baseline),
			total,
			domain.StringValue(sheet.FlagNo),
		}
		row := make([]*domain.Cell, len(values))
		for c, v := range values {
			row[c] = &domain.Cell{Value: v, Key: sheet.ExpectedKeys[c]}
		}
		grid = append(grid, row)
	}
	return grid
}

// NewSeeded returns a store with demo companies, ledgers, daily sales, three
// purchase sheets around today and the dev user accounts. Open sheets are
// seeded with blank quantities and totals.
func NewSeeded(logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	s := New()
	now := s.now().UTC()
	today := domain.DateOf(now)
	users, err := seedUsers(logger, now)
	if err != nil {
		return nil, err
	}
	s.usersByUsername = users

	buyers := []domain.Company{
		{ID: 1, Kind: domain.CompanyKindBuy, Name: "남도농산", BizNo: "123-45-67890", PaymentPeriod: "01", Phone: "061-123-4567", Address: "전라남도 나주시 농산로 12", BankName: "농협", BankNum: "301-1234-5678-91", BankHolder: "남도농산", TaxInvoiceEmail: "tax@namdo.example", InventoryValue: decimal.NewFromInt(1250000)},
		{ID: 2, Kind: domain.CompanyKindBuy, Name: "청과상회", BizNo: "234-56-78901", PaymentPeriod: "03", Phone: "02-555-0101", Address: "서울특별시 송파구 가락로 5", BankName: "국민", BankNum: "123401-04-567890", BankHolder: "김청과", TaxInvoiceEmail: "bill@cheonggwa.example", InventoryValue: decimal.NewFromInt(830000)},
		{ID: 3, Kind: domain.CompanyKindBuy, Name: "하나유통", BizNo: "345-67-89012", PaymentPeriod: "06", Phone: "031-777-2020", Address: "경기도 이천시 물류로 88", BankName: "신한", BankNum: "110-222-333444", BankHolder: "하나유통", Memo: "매입시 즉시 지급", InventoryValue: decimal.NewFromInt(410000)},
	}
	partners := []domain.Company{
		{ID: 101, Kind: domain.CompanyKindPartner, Name: "그린팜", BizNo: "456-78-90123", PaymentPeriod: "02", Phone: "033-100-2000", Address: "강원도 평창군 고원길 3", BankName: "기업", BankNum: "012-345678-01-011", BankHolder: "그린팜", CommissionRate: decimal.NewFromInt(10), TaxInvoiceEmail: "greenfarm@example.com", InventoryValue: decimal.NewFromInt(2200000)},
		{ID: 102, Kind: domain.CompanyKindPartner, Name: "싱싱채소", BizNo: "567-89-01234", PaymentPeriod: "05", Phone: "054-300-4000", Address: "경상북도 안동시 채소로 7", BankName: "우리", BankNum: "1002-123-456789", BankHolder: "이싱싱", CommissionRate: decimal.NewFromInt(12), InventoryValue: decimal.NewFromInt(960000)},
	}
	for _, c := range append(buyers, partners...) {
		s.AddCompany(c)
	}

	for i, c := range append(buyers, partners...) {
		base := int64(300000 + 100000*i)
		s.insertLedgerEntryLocked(domain.LedgerEntry{
			CompanyID: c.ID, Kind: c.Kind, Type: domain.EntryTypePurchase,
			ProcessDate:           domain.DateOf(now.AddDate(0, 0, -45)),
			PurchaseTaxFreeAmount: decimal.NewFromInt(base),
			PurchaseAmount:        decimal.NewFromInt(base),
			InvoiceTotal:          decimal.NewFromInt(base),
			Memo:                  "야채 매입",
		})
		s.insertLedgerEntryLocked(domain.LedgerEntry{
			CompanyID: c.ID, Kind: c.Kind, Type: domain.EntryTypePayment,
			ProcessDate:   domain.DateOf(now.AddDate(0, 0, -30)),
			PaymentAmount: decimal.NewFromInt(base / 2),
			Memo:          "결제 입력(admin) | 1차 결제",
		})
		s.insertLedgerEntryLocked(domain.LedgerEntry{
			CompanyID: c.ID, Kind: c.Kind, Type: domain.EntryTypeReturn,
			ProcessDate:    domain.DateOf(now.AddDate(0, 0, -20)),
			DiscountAmount: decimal.NewFromInt(base / 10),
			Memo:           "품질 불량 반품",
		})
		s.insertLedgerEntryLocked(domain.LedgerEntry{
			CompanyID: c.ID, Kind: c.Kind, Type: domain.EntryTypePurchase,
			ProcessDate:           domain.DateOf(now.AddDate(0, 0, -7)),
			PurchaseTaxAmount:     decimal.NewFromInt(base / 5),
			PurchaseTaxFreeAmount: decimal.NewFromInt(base),
			PurchaseAmount:        decimal.NewFromInt(base + base/5),
			InvoiceTotal:          decimal.NewFromInt(base + base/5),
			Memo:                  "야채 매입",
		})
	}

	for day := 29; day >= 0; day-- {
		date := domain.DateOf(now.AddDate(0, 0, -day))
		for i, p := range partners {
			revenue := int64(400000 + 15000*(29-day) + 120000*i)
			s.dailySales = append(s.dailySales, domain.DailySales{
				Date:                 date,
				PartnerID:            p.ID,
				Revenue:              decimal.NewFromInt(revenue),
				PartialCancelRevenue: decimal.NewFromInt(revenue / 50),
				VAT:                  decimal.NewFromInt(revenue / 11),
				AppRevenue:           decimal.NewFromInt(revenue * 7 / 10),
				ExternalRevenue:      decimal.NewFromInt(revenue * 3 / 10),
				TaxAmount:            decimal.NewFromInt(revenue * 2 / 10),
				TaxFreeAmount:        decimal.NewFromInt(revenue * 8 / 10),
				PurchaseAmount:       decimal.NewFromInt(revenue * 62 / 100),
				OrderCount:           int64(40 + day%7 + 10*i),
				UniqueUsers:          int64(30 + day%5 + 8*i),
				InventoryAsset:       p.InventoryValue,
			})
		}
	}

	committedAt := now.Add(-20 * time.Hour)
	for offset, committed := range map[int]bool{-1: true, 0: false, 1: false} {
		date := domain.DateOf(today.AddDate(0, 0, offset)).String()
		sheetRecord := domain.PurchaseSheet{
			EstimatedDeliveryDate:  date,
			OrderAggregationPeriod: domain.DateOf(today.AddDate(0, 0, offset-2)).String() + " ~ " + domain.DateOf(today.AddDate(0, 0, offset-1)).String(),
			TableData:              seedGrid(committed),
		}
		if committed {
			at := committedAt
			sheetRecord.CommittedAt = &at
			sheetRecord.CommittedBy = "admin"
		}
		s.sheets[date] = sheetRecord
	}

	return s, nil
}
