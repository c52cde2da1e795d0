package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"settlehub/internal/domain"
	"settlehub/internal/store"
	"settlehub/internal/xid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	paymentMemoSep  = "|"
)

func (s *Service) ListCompanies(ctx context.Context, kind domain.CompanyKind, filter domain.CompanyFilter) (domain.CompanyListResponse, error) {
	if err := validateKind(kind); err != nil {
		return domain.CompanyListResponse{}, err
	}
	companies, err := s.repo.ListCompanies(ctx, kind, filter)
	if err != nil {
		return domain.CompanyListResponse{}, err
	}
	return domain.CompanyListResponse{Companies: companies}, nil
}

func (s *Service) GetCompany(ctx context.Context, kind domain.CompanyKind, id int64) (domain.Company, error) {
	if err := validateKind(kind); err != nil {
		return domain.Company{}, err
	}
	company, err := s.repo.GetCompany(ctx, kind, id)
	if err != nil {
		return domain.Company{}, err
	}
	return *company, nil
}

// LedgerDetails lists a company's ledger between start and end. The first
// row is a synthetic carry-over holding the balance before start, and every
// row carries the running balance.
func (s *Service) LedgerDetails(ctx context.Context, kind domain.CompanyKind, id int64, rawStart, rawEnd string) (domain.LedgerDetailsResponse, error) {
	company, err := s.GetCompany(ctx, kind, id)
	if err != nil {
		return domain.LedgerDetailsResponse{}, err
	}
	start, end, err := s.dateRange(rawStart, rawEnd, 30)
	if err != nil {
		return domain.LedgerDetailsResponse{}, err
	}

	entries, err := s.repo.ListLedgerEntries(ctx, store.LedgerFilter{Kind: kind, CompanyID: id, Until: end})
	if err != nil {
		return domain.LedgerDetailsResponse{}, err
	}

	balance := decimal.Zero
	inRange := make([]domain.LedgerEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.ProcessDate.Before(start) {
			balance = balance.Add(balanceDelta(entry))
			continue
		}
		inRange = append(inRange, entry)
	}

	items := make([]domain.LedgerEntry, 0, len(inRange)+1)
	items = append(items, domain.LedgerEntry{
		CompanyID:   id,
		Kind:        kind,
		Type:        domain.EntryTypeCarryOver,
		ProcessDate: start,
		Balance:     balance,
	})
	for _, entry := range inRange {
		balance = balance.Add(balanceDelta(entry))
		entry.Balance = balance
		items = append(items, entry)
	}

	return domain.LedgerDetailsResponse{
		Company:   company,
		StartDate: start.String(),
		EndDate:   end.String(),
		Items:     items,
	}, nil
}

func balanceDelta(entry domain.LedgerEntry) decimal.Decimal {
	return entry.PurchaseAmount.Sub(entry.DiscountAmount).Sub(entry.PaymentAmount)
}

func (s *Service) CreatePayment(ctx context.Context, kind domain.CompanyKind, companyID int64, req domain.PaymentRequest) (domain.PaymentResponse, error) {
	if err := validateKind(kind); err != nil {
		return domain.PaymentResponse{}, err
	}
	if err := s.validateStruct(req); err != nil {
		return domain.PaymentResponse{}, err
	}
	processDate, err := s.paymentDate(req.ProcessDate)
	if err != nil {
		return domain.PaymentResponse{}, err
	}

	actor := actorName(ctx)
	entry := domain.LedgerEntry{
		Kind:          kind,
		CompanyID:     companyID,
		Type:          domain.EntryTypePayment,
		ProcessDate:   processDate,
		PaymentAmount: req.Amount,
		Memo:          paymentMemo(fmt.Sprintf("결제 입력(%s)", actor), req.Notes),
	}
	created, err := s.repo.CreateLedgerEntry(ctx, entry, s.ledgerLog(actor, fmt.Sprintf("결제 등록: %s원 (%s)", req.Amount.String(), processDate.String())))
	if err != nil {
		return domain.PaymentResponse{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"kind": kind, "company_id": companyID, "detail_id": created.DetailID, "actor": actor,
	}).Info("payment created")
	return domain.PaymentResponse{Entry: *created}, nil
}

// UpdatePayment changes amount, date and notes of a payment entry. The memo
// prefix naming who entered the payment is kept.
func (s *Service) UpdatePayment(ctx context.Context, kind domain.CompanyKind, companyID int64, detailID int64, req domain.PaymentRequest) (domain.PaymentResponse, error) {
	if err := validateKind(kind); err != nil {
		return domain.PaymentResponse{}, err
	}
	if err := s.validateStruct(req); err != nil {
		return domain.PaymentResponse{}, err
	}
	existing, err := s.repo.GetLedgerEntry(ctx, kind, companyID, detailID)
	if err != nil {
		return domain.PaymentResponse{}, err
	}
	if existing.Type != domain.EntryTypePayment {
		return domain.PaymentResponse{}, ErrNotEditable
	}

	actor := actorName(ctx)
	updated := *existing
	if strings.TrimSpace(req.ProcessDate) != "" {
		updated.ProcessDate, err = parseDate("process_date", req.ProcessDate)
		if err != nil {
			return domain.PaymentResponse{}, err
		}
	}
	updated.PaymentAmount = req.Amount

	prefix := fmt.Sprintf("결제 입력(%s)", actor)
	if idx := strings.LastIndex(existing.Memo, paymentMemoSep); idx >= 0 {
		prefix = strings.TrimSpace(existing.Memo[:idx])
	}
	updated.Memo = paymentMemo(prefix, req.Notes)

	description := fmt.Sprintf("결제 수정: %s원 → %s원", existing.PaymentAmount.String(), req.Amount.String())
	if !existing.ProcessDate.Equal(updated.ProcessDate.Time) {
		description += fmt.Sprintf(", 처리일 %s → %s", existing.ProcessDate.String(), updated.ProcessDate.String())
	}
	saved, err := s.repo.UpdateLedgerEntry(ctx, updated, s.ledgerLog(actor, description))
	if err != nil {
		return domain.PaymentResponse{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"kind": kind, "company_id": companyID, "detail_id": detailID, "actor": actor,
	}).Info("payment updated")
	return domain.PaymentResponse{Entry: *saved}, nil
}

func (s *Service) DeletePayment(ctx context.Context, kind domain.CompanyKind, companyID int64, detailID int64) error {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	if err := validateKind(kind); err != nil {
		return err
	}
	existing, err := s.repo.GetLedgerEntry(ctx, kind, companyID, detailID)
	if err != nil {
		return err
	}
	if existing.Type != domain.EntryTypePayment {
		return ErrNotEditable
	}

	description := fmt.Sprintf("결제 삭제: %s원 (%s)", existing.PaymentAmount.String(), existing.ProcessDate.String())
	if err := s.repo.DeleteLedgerEntry(ctx, kind, companyID, detailID, s.ledgerLog(actor.Username, description)); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"kind": kind, "company_id": companyID, "detail_id": detailID, "actor": actor.Username,
	}).Info("payment deleted")
	return nil
}

func (s *Service) LedgerLogs(ctx context.Context, kind domain.CompanyKind, companyID int64, detailID int64) (domain.LedgerLogResponse, error) {
	if err := validateKind(kind); err != nil {
		return domain.LedgerLogResponse{}, err
	}
	logs, err := s.repo.ListLedgerLogs(ctx, kind, companyID, detailID)
	if err != nil {
		return domain.LedgerLogResponse{}, err
	}
	return domain.LedgerLogResponse{Items: logs}, nil
}

// IntegratedSettlement builds one settlement row per company of the selected
// kinds for the period, then sorts and pages the rows.
func (s *Service) IntegratedSettlement(ctx context.Context, query domain.IntegratedQuery) (domain.IntegratedPage, error) {
	start, end := query.StartDate, query.EndDate
	if end.IsZero() {
		end = s.today()
	}
	if start.IsZero() {
		start = domain.NewDate(end.Year(), end.Month(), 1)
	}
	if start.After(end) {
		return domain.IntegratedPage{}, invalidInput("start_date must not be after end_date")
	}
	size := query.Size
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	page := max(query.Page, 1)

	kinds := query.Types
	if len(kinds) == 0 {
		kinds = []domain.CompanyKind{domain.CompanyKindBuy, domain.CompanyKindPartner}
	}

	sales, err := s.repo.ListDailySales(ctx, start, end, nil)
	if err != nil {
		return domain.IntegratedPage{}, err
	}
	salesByPartner := make(map[int64]decimal.Decimal)
	for _, row := range sales {
		salesByPartner[row.PartnerID] = salesByPartner[row.PartnerID].Add(row.Revenue)
	}

	rows := make([]domain.IntegratedRow, 0, 64)
	for _, kind := range kinds {
		if err := validateKind(kind); err != nil {
			return domain.IntegratedPage{}, err
		}
		companies, err := s.repo.ListCompanies(ctx, kind, domain.CompanyFilter{Name: query.Name, PaymentPeriods: query.PaymentPeriods})
		if err != nil {
			return domain.IntegratedPage{}, err
		}
		entries, err := s.repo.ListLedgerEntries(ctx, store.LedgerFilter{Kind: kind, Until: end})
		if err != nil {
			return domain.IntegratedPage{}, err
		}
		byCompany := make(map[int64][]domain.LedgerEntry)
		for _, entry := range entries {
			byCompany[entry.CompanyID] = append(byCompany[entry.CompanyID], entry)
		}
		for _, company := range companies {
			rows = append(rows, integratedRow(company, byCompany[company.ID], salesByPartner, start))
		}
	}

	sortIntegratedRows(rows, query.Sort)

	total := len(rows)
	from := total
	if page-1 < (total+size-1)/size {
		from = (page - 1) * size
	}
	to := min(from+size, total)
	return domain.IntegratedPage{
		Items: rows[from:to],
		Total: total,
		Page:  page,
		Size:  size,
	}, nil
}

func integratedRow(company domain.Company, entries []domain.LedgerEntry, salesByPartner map[int64]decimal.Decimal, start domain.Date) domain.IntegratedRow {
	row := domain.IntegratedRow{
		CompanyID:       company.ID,
		Name:            company.Name,
		Type:            company.Kind,
		TypeLabel:       company.Kind.Label(),
		PaymentDate:     domain.PaymentPeriods[company.PaymentPeriod],
		BizNo:           company.BizNo,
		CommissionRate:  company.CommissionRate,
		InventoryValue:  company.InventoryValue,
		TaxInvoiceEmail: company.TaxInvoiceEmail,
		Memo:            company.Memo,
	}

	for _, entry := range entries {
		if entry.ProcessDate.Before(start) {
			row.PreviousBalance = row.PreviousBalance.Add(balanceDelta(entry))
			continue
		}
		row.SalesAmount = row.SalesAmount.Add(entry.SalesAmount)
		row.TaxPurchase = row.TaxPurchase.Add(entry.PurchaseTaxAmount)
		row.TaxFreePurchase = row.TaxFreePurchase.Add(entry.PurchaseTaxFreeAmount)
		row.PurchaseAmount = row.PurchaseAmount.Add(entry.PurchaseAmount)
		row.DiscountAmount = row.DiscountAmount.Add(entry.DiscountAmount)
		row.PaymentAmount = row.PaymentAmount.Add(entry.PaymentAmount)
		row.InvoiceTotal = row.InvoiceTotal.Add(entry.InvoiceTotal)
	}
	for _, entry := range entries {
		switch entry.Type {
		case domain.EntryTypePurchase:
			if entry.ProcessDate.After(row.LastPurchaseDate) {
				row.LastPurchaseDate = entry.ProcessDate
			}
		case domain.EntryTypePayment:
			if entry.ProcessDate.After(row.LastPaymentDate) {
				row.LastPaymentDate = entry.ProcessDate
			}
		}
	}

	if company.Kind == domain.CompanyKindPartner {
		row.SalesAmount = row.SalesAmount.Add(salesByPartner[company.ID])
		row.AppFee = row.SalesAmount.Mul(company.CommissionRate).Div(decimal.NewFromInt(100)).Round(0)
		row.ExpectedSettlement = row.SalesAmount.Sub(row.AppFee).Sub(row.OtherFee)
	} else {
		row.ExpectedSettlement = row.PurchaseAmount.Sub(row.DiscountAmount)
	}
	row.Balance = row.PreviousBalance.Add(row.PurchaseAmount).Sub(row.DiscountAmount).Sub(row.PaymentAmount)
	return row
}

// sortIntegratedRows orders by a field name, descending with a leading "-".
// Unknown fields keep the default order of type then company id.
func sortIntegratedRows(rows []domain.IntegratedRow, sortBy string) {
	desc := strings.HasPrefix(sortBy, "-")
	field := strings.TrimPrefix(sortBy, "-")

	compare := func(a, b domain.IntegratedRow) int {
		if c := strings.Compare(string(a.Type), string(b.Type)); c != 0 {
			return c
		}
		return cmpInt64(a.CompanyID, b.CompanyID)
	}
	byField := map[string]func(a, b domain.IntegratedRow) int{
		"b_nm":               func(a, b domain.IntegratedRow) int { return strings.Compare(a.Name, b.Name) },
		"balance":            func(a, b domain.IntegratedRow) int { return a.Balance.Cmp(b.Balance) },
		"purchase_amount":    func(a, b domain.IntegratedRow) int { return a.PurchaseAmount.Cmp(b.PurchaseAmount) },
		"payment_amount":     func(a, b domain.IntegratedRow) int { return a.PaymentAmount.Cmp(b.PaymentAmount) },
		"sales_amount":       func(a, b domain.IntegratedRow) int { return a.SalesAmount.Cmp(b.SalesAmount) },
		"last_purchase_date": func(a, b domain.IntegratedRow) int { return a.LastPurchaseDate.Compare(b.LastPurchaseDate.Time) },
		"last_payment_date":  func(a, b domain.IntegratedRow) int { return a.LastPaymentDate.Compare(b.LastPaymentDate.Time) },
	}
	if fn, ok := byField[field]; ok {
		primary := fn
		fallback := compare
		compare = func(a, b domain.IntegratedRow) int {
			c := primary(a, b)
			if desc {
				c = -c
			}
			if c != 0 {
				return c
			}
			return fallback(a, b)
		}
	}
	slices.SortStableFunc(rows, compare)
}

func (s *Service) paymentDate(raw string) (domain.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return s.today(), nil
	}
	return parseDate("process_date", raw)
}

func (s *Service) ledgerLog(actor string, description string) domain.LedgerLog {
	return domain.LedgerLog{
		ID:              xid.New("log"),
		Actor:           actor,
		Description:     description,
		StatusChangedAt: s.now().UTC(),
	}
}

func paymentMemo(prefix string, notes string) string {
	return fmt.Sprintf("%s %s %s", prefix, paymentMemoSep, strings.TrimSpace(notes))
}

func cmpInt64(a int64, b int64) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}
