package store

import (
	"context"
	"errors"
	"time"

	"settlehub/internal/domain"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")
	ErrAlreadyCommitted = errors.New("purchase sheet already committed")
)

// PurchaseCommit is persisted atomically: the sheet is closed and the
// purchase ledger entries derived from it are written together.
type PurchaseCommit struct {
	Date        string
	Grid        domain.Grid
	CommittedBy string
	CommittedAt time.Time
	Entries     []domain.LedgerEntry
	Logs        []domain.LedgerLog
}

// LedgerFilter selects ledger entries. A zero Kind or CompanyID matches all,
// and a zero Until has no upper bound.
type LedgerFilter struct {
	Kind      domain.CompanyKind
	CompanyID int64
	Until     domain.Date
}

type PurchaseSheetStore interface {
	ListOpenPurchaseDates(ctx context.Context) ([]string, error)
	GetPurchaseSheet(ctx context.Context, date string) (*domain.PurchaseSheet, error)
	SavePurchaseSheet(ctx context.Context, sheet domain.PurchaseSheet) error
	CommitPurchaseSheet(ctx context.Context, commit PurchaseCommit) (*domain.PurchaseSheet, error)
}

type SettlementStore interface {
	ListCompanies(ctx context.Context, kind domain.CompanyKind, filter domain.CompanyFilter) ([]domain.Company, error)
	GetCompany(ctx context.Context, kind domain.CompanyKind, id int64) (*domain.Company, error)
	ListLedgerEntries(ctx context.Context, filter LedgerFilter) ([]domain.LedgerEntry, error)
	GetLedgerEntry(ctx context.Context, kind domain.CompanyKind, companyID int64, detailID int64) (*domain.LedgerEntry, error)
	CreateLedgerEntry(ctx context.Context, entry domain.LedgerEntry, log domain.LedgerLog) (*domain.LedgerEntry, error)
	UpdateLedgerEntry(ctx context.Context, entry domain.LedgerEntry, log domain.LedgerLog) (*domain.LedgerEntry, error)
	DeleteLedgerEntry(ctx context.Context, kind domain.CompanyKind, companyID int64, detailID int64, log domain.LedgerLog) error
	ListLedgerLogs(ctx context.Context, kind domain.CompanyKind, companyID int64, detailID int64) ([]domain.LedgerLog, error)
}

type DashboardStore interface {
	ListDailySales(ctx context.Context, start, end domain.Date, partnerID *int64) ([]domain.DailySales, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

type Repository interface {
	PurchaseSheetStore
	SettlementStore
	DashboardStore
	UserStore
}
