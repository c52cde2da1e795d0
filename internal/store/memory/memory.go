package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"settlehub/internal/domain"
	"settlehub/internal/store"
)

type Store struct {
	mu              sync.RWMutex
	now             func() time.Time
	sheets          map[string]domain.PurchaseSheet
	companies       map[domain.CompanyKind]map[int64]domain.Company
	ledger          map[int64]domain.LedgerEntry
	nextDetailID    int64
	ledgerLogs      []domain.LedgerLog
	dailySales      []domain.DailySales
	usersByUsername map[string]domain.UserAccount
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:             time.Now,
		sheets:          make(map[string]domain.PurchaseSheet),
		companies:       map[domain.CompanyKind]map[int64]domain.Company{domain.CompanyKindBuy: {}, domain.CompanyKindPartner: {}},
		ledger:          make(map[int64]domain.LedgerEntry),
		ledgerLogs:      make([]domain.LedgerLog, 0, 64),
		dailySales:      make([]domain.DailySales, 0, 64),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

func (s *Store) ListOpenPurchaseDates(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dates := make([]string, 0, len(s.sheets))
	for date, sheet := range s.sheets {
		if sheet.CommittedAt != nil {
			continue
		}
		dates = append(dates, date)
	}
	slices.Sort(dates)
	return dates, nil
}

func (s *Store) GetPurchaseSheet(_ context.Context, date string) (*domain.PurchaseSheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sheet, exists := s.sheets[date]
	if !exists {
		return nil, store.ErrNotFound
	}
	dup := clonePurchaseSheet(sheet)
	return &dup, nil
}

func (s *Store) SavePurchaseSheet(_ context.Context, sheet domain.PurchaseSheet) error {
	if _, err := domain.ParseDate(sheet.EstimatedDeliveryDate); err != nil {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.sheets[sheet.EstimatedDeliveryDate]; exists && existing.CommittedAt != nil {
		return store.ErrAlreadyCommitted
	}
	s.sheets[sheet.EstimatedDeliveryDate] = clonePurchaseSheet(sheet)
	return nil
}

func (s *Store) CommitPurchaseSheet(_ context.Context, commit store.PurchaseCommit) (*domain.PurchaseSheet, error) {
	if len(commit.Logs) != len(commit.Entries) {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sheet, exists := s.sheets[commit.Date]
	if !exists {
		return nil, store.ErrNotFound
	}
	if sheet.CommittedAt != nil {
		return nil, store.ErrAlreadyCommitted
	}
	for _, entry := range commit.Entries {
		if _, ok := s.companies[entry.Kind][entry.CompanyID]; !ok {
			return nil, store.ErrNotFound
		}
	}

	committedAt := commit.CommittedAt.UTC()
	sheet.TableData = commit.Grid.Clone()
	sheet.CommittedBy = commit.CommittedBy
	sheet.CommittedAt = &committedAt
	s.sheets[commit.Date] = sheet

	for i, entry := range commit.Entries {
		created := s.insertLedgerEntryLocked(entry)
		log := commit.Logs[i]
		log.Kind = created.Kind
		log.CompanyID = created.CompanyID
		log.DetailID = created.DetailID
		s.ledgerLogs = append(s.ledgerLogs, log)
	}

	dup := clonePurchaseSheet(sheet)
	return &dup, nil
}

func (s *Store) ListCompanies(_ context.Context, kind domain.CompanyKind, filter domain.CompanyFilter) ([]domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name := strings.ToLower(strings.TrimSpace(filter.Name))
	companies := make([]domain.Company, 0, len(s.companies[kind]))
	for _, company := range s.companies[kind] {
		if name != "" && !strings.Contains(strings.ToLower(company.Name), name) {
			continue
		}
		if len(filter.PaymentPeriods) > 0 && !slices.Contains(filter.PaymentPeriods, company.PaymentPeriod) {
			continue
		}
		companies = append(companies, company)
	}
	slices.SortFunc(companies, func(a, b domain.Company) int {
		return cmpInt64(a.ID, b.ID)
	})
	return companies, nil
}

func (s *Store) GetCompany(_ context.Context, kind domain.CompanyKind, id int64) (*domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	company, exists := s.companies[kind][id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &company, nil
}

func (s *Store) ListLedgerEntries(_ context.Context, filter store.LedgerFilter) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.LedgerEntry, 0, len(s.ledger))
	for _, entry := range s.ledger {
		if filter.Kind != "" && entry.Kind != filter.Kind {
			continue
		}
		if filter.CompanyID != 0 && entry.CompanyID != filter.CompanyID {
			continue
		}
		if !filter.Until.IsZero() && entry.ProcessDate.After(filter.Until) {
			continue
		}
		entries = append(entries, entry)
	}
	slices.SortFunc(entries, compareLedgerEntry)
	return entries, nil
}

func (s *Store) GetLedgerEntry(_ context.Context, kind domain.CompanyKind, companyID int64, detailID int64) (*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.ledger[detailID]
	if !exists || entry.Kind != kind || entry.CompanyID != companyID {
		return nil, store.ErrNotFound
	}
	return &entry, nil
}

func (s *Store) CreateLedgerEntry(_ context.Context, entry domain.LedgerEntry, log domain.LedgerLog) (*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.companies[entry.Kind][entry.CompanyID]; !ok {
		return nil, store.ErrNotFound
	}
	created := s.insertLedgerEntryLocked(entry)
	log.Kind = created.Kind
	log.CompanyID = created.CompanyID
	log.DetailID = created.DetailID
	s.ledgerLogs = append(s.ledgerLogs, log)
	return &created, nil
}

func (s *Store) UpdateLedgerEntry(_ context.Context, entry domain.LedgerEntry, log domain.LedgerLog) (*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.ledger[entry.DetailID]
	if !exists || existing.Kind != entry.Kind || existing.CompanyID != entry.CompanyID {
		return nil, store.ErrNotFound
	}
	entry.CreatedAt = existing.CreatedAt
	entry.UpdatedAt = s.now().UTC()
	s.ledger[entry.DetailID] = entry

	log.Kind = entry.Kind
	log.CompanyID = entry.CompanyID
	log.DetailID = entry.DetailID
	s.ledgerLogs = append(s.ledgerLogs, log)
	return &entry, nil
}

func (s *Store) DeleteLedgerEntry(_ context.Context, kind domain.CompanyKind, companyID int64, detailID int64, log domain.LedgerLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.ledger[detailID]
	if !exists || existing.Kind != kind || existing.CompanyID != companyID {
		return store.ErrNotFound
	}
	delete(s.ledger, detailID)

	log.Kind = kind
	log.CompanyID = companyID
	log.DetailID = detailID
	s.ledgerLogs = append(s.ledgerLogs, log)
	return nil
}

func (s *Store) ListLedgerLogs(_ context.Context, kind domain.CompanyKind, companyID int64, detailID int64) ([]domain.LedgerLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.LedgerLog, 0)
	for _, log := range s.ledgerLogs {
		if log.Kind != kind || log.CompanyID != companyID {
			continue
		}
		if detailID != 0 && log.DetailID != detailID {
			continue
		}
		logs = append(logs, log)
	}
	slices.SortStableFunc(logs, func(a, b domain.LedgerLog) int {
		return b.StatusChangedAt.Compare(a.StatusChangedAt)
	})
	return logs, nil
}

func (s *Store) ListDailySales(_ context.Context, start, end domain.Date, partnerID *int64) ([]domain.DailySales, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.DailySales, 0)
	for _, row := range s.dailySales {
		if row.Date.Before(start) || row.Date.After(end) {
			continue
		}
		if partnerID != nil && row.PartnerID != *partnerID {
			continue
		}
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b domain.DailySales) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		return cmpInt64(a.PartnerID, b.PartnerID)
	})
	return rows, nil
}

// AddCompany and AddDailySales load reference data that other systems own.
func (s *Store) AddCompany(company domain.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.companies[company.Kind] == nil {
		s.companies[company.Kind] = make(map[int64]domain.Company)
	}
	s.companies[company.Kind][company.ID] = company
}

func (s *Store) AddDailySales(rows ...domain.DailySales) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dailySales = append(s.dailySales, rows...)
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleStaff
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) insertLedgerEntryLocked(entry domain.LedgerEntry) domain.LedgerEntry {
	s.nextDetailID++
	now := s.now().UTC()
	entry.DetailID = s.nextDetailID
	entry.CreatedAt = now
	entry.UpdatedAt = now
	s.ledger[entry.DetailID] = entry
	return entry
}

func compareLedgerEntry(a, b domain.LedgerEntry) int {
	if c := a.ProcessDate.Compare(b.ProcessDate.Time); c != 0 {
		return c
	}
	return cmpInt64(a.DetailID, b.DetailID)
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

func clonePurchaseSheet(src domain.PurchaseSheet) domain.PurchaseSheet {
	dup := src
	dup.TableData = src.TableData.Clone()
	if src.CommittedAt != nil {
		at := *src.CommittedAt
		dup.CommittedAt = &at
	}
	return dup
}
