package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"settlehub/internal/domain"
	"settlehub/internal/store"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates missing tables. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) ListOpenPurchaseDates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT estimated_delivery_date
		FROM purchase_sheets
		WHERE committed_at IS NULL
		ORDER BY estimated_delivery_date
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dates := make([]string, 0, 16)
	for rows.Next() {
		var date time.Time
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		dates = append(dates, domain.DateOf(date).String())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dates, nil
}

func (s *Store) GetPurchaseSheet(ctx context.Context, date string) (*domain.PurchaseSheet, error) {
	day, err := domain.ParseDate(date)
	if err != nil {
		return nil, store.ErrInvalidInput
	}

	var (
		sheet       domain.PurchaseSheet
		rawGrid     []byte
		committedBy sql.NullString
		committedAt sql.NullTime
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT order_aggregation_period, table_data, committed_by, committed_at
		FROM purchase_sheets
		WHERE estimated_delivery_date = $1
	`, day.Time).Scan(&sheet.OrderAggregationPeriod, &rawGrid, &committedBy, &committedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(rawGrid, &sheet.TableData); err != nil {
		return nil, fmt.Errorf("decode table_data for %s: %w", date, err)
	}
	sheet.EstimatedDeliveryDate = day.String()
	sheet.CommittedBy = committedBy.String
	if committedAt.Valid {
		at := committedAt.Time.UTC()
		sheet.CommittedAt = &at
	}
	return &sheet, nil
}

func (s *Store) SavePurchaseSheet(ctx context.Context, sheet domain.PurchaseSheet) error {
	day, err := domain.ParseDate(sheet.EstimatedDeliveryDate)
	if err != nil {
		return store.ErrInvalidInput
	}
	grid := sheet.TableData
	if grid == nil {
		grid = domain.Grid{}
	}
	payload, err := json.Marshal(grid)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO purchase_sheets (estimated_delivery_date, order_aggregation_period, table_data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (estimated_delivery_date) DO UPDATE
		SET order_aggregation_period = EXCLUDED.order_aggregation_period,
			table_data = EXCLUDED.table_data,
			updated_at = now()
		WHERE purchase_sheets.committed_at IS NULL
	`, day.Time, sheet.OrderAggregationPeriod, payload)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrAlreadyCommitted
	}
	return nil
}

func (s *Store) CommitPurchaseSheet(ctx context.Context, commit store.PurchaseCommit) (*domain.PurchaseSheet, error) {
	if len(commit.Logs) != len(commit.Entries) {
		return nil, store.ErrInvalidInput
	}
	day, err := domain.ParseDate(commit.Date)
	if err != nil {
		return nil, store.ErrInvalidInput
	}
	payload, err := json.Marshal(commit.Grid)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var committedAt sql.NullTime
	err = tx.QueryRowContext(ctx, `
		SELECT committed_at FROM purchase_sheets WHERE estimated_delivery_date = $1 FOR UPDATE
	`, day.Time).Scan(&committedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if committedAt.Valid {
		return nil, store.ErrAlreadyCommitted
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE purchase_sheets
		SET table_data = $2, committed_by = $3, committed_at = $4, updated_at = now()
		WHERE estimated_delivery_date = $1
	`, day.Time, payload, commit.CommittedBy, commit.CommittedAt.UTC()); err != nil {
		return nil, err
	}

	for i, entry := range commit.Entries {
		created, err := insertLedgerEntry(ctx, tx, entry)
		if err != nil {
			return nil, err
		}
		if err := insertLedgerLog(ctx, tx, created, commit.Logs[i]); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetPurchaseSheet(ctx, commit.Date)
}

func (s *Store) ListCompanies(ctx context.Context, kind domain.CompanyKind, filter domain.CompanyFilter) ([]domain.Company, error) {
	query := companySelect + ` WHERE kind = $1`
	args := []any{string(kind)}
	if name := strings.TrimSpace(filter.Name); name != "" {
		args = append(args, "%"+name+"%")
		query += fmt.Sprintf(" AND b_nm ILIKE $%d", len(args))
	}
	if len(filter.PaymentPeriods) > 0 {
		args = append(args, filter.PaymentPeriods)
		query += fmt.Sprintf(" AND payment_period = ANY($%d)", len(args))
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := make([]domain.Company, 0, 32)
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, company)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return companies, nil
}

func (s *Store) GetCompany(ctx context.Context, kind domain.CompanyKind, id int64) (*domain.Company, error) {
	row := s.db.QueryRowContext(ctx, companySelect+` WHERE kind = $1 AND id = $2`, string(kind), id)
	company, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &company, nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, filter store.LedgerFilter) ([]domain.LedgerEntry, error) {
	query := ledgerSelect + ` WHERE true`
	args := make([]any, 0, 3)
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if filter.CompanyID != 0 {
		args = append(args, filter.CompanyID)
		query += fmt.Sprintf(" AND company_id = $%d", len(args))
	}
	if !filter.Until.IsZero() {
		args = append(args, filter.Until.Time)
		query += fmt.Sprintf(" AND process_date <= $%d", len(args))
	}
	query += " ORDER BY process_date, detail_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0, 64)
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) GetLedgerEntry(ctx context.Context, kind domain.CompanyKind, companyID int64, detailID int64) (*domain.LedgerEntry, error) {
	row := s.db.QueryRowContext(ctx, ledgerSelect+` WHERE kind = $1 AND company_id = $2 AND detail_id = $3`, string(kind), companyID, detailID)
	entry, err := scanLedgerEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (s *Store) CreateLedgerEntry(ctx context.Context, entry domain.LedgerEntry, log domain.LedgerLog) (*domain.LedgerEntry, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	created, err := insertLedgerEntry(ctx, tx, entry)
	if err != nil {
		return nil, err
	}
	if err := insertLedgerLog(ctx, tx, created, log); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Store) UpdateLedgerEntry(ctx context.Context, entry domain.LedgerEntry, log domain.LedgerLog) (*domain.LedgerEntry, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		UPDATE ledger_entries
		SET type = $4, process_date = $5, purchase_tax_amount = $6, purchase_tax_free_amount = $7,
			purchase_amount = $8, sales_amount = $9, discount_amount = $10, payment_amount = $11,
			invoice_total = $12, memo = $13, updated_at = now()
		WHERE kind = $1 AND company_id = $2 AND detail_id = $3
		RETURNING `+ledgerColumns,
		string(entry.Kind), entry.CompanyID, entry.DetailID, entry.Type, entry.ProcessDate.Time,
		entry.PurchaseTaxAmount, entry.PurchaseTaxFreeAmount, entry.PurchaseAmount, entry.SalesAmount,
		entry.DiscountAmount, entry.PaymentAmount, entry.InvoiceTotal, entry.Memo,
	)
	updated, err := scanLedgerEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := insertLedgerLog(ctx, tx, updated, log); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteLedgerEntry(ctx context.Context, kind domain.CompanyKind, companyID int64, detailID int64, log domain.LedgerLog) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM ledger_entries WHERE kind = $1 AND company_id = $2 AND detail_id = $3
	`, string(kind), companyID, detailID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	deleted := domain.LedgerEntry{Kind: kind, CompanyID: companyID, DetailID: detailID}
	if err := insertLedgerLog(ctx, tx, deleted, log); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ListLedgerLogs(ctx context.Context, kind domain.CompanyKind, companyID int64, detailID int64) ([]domain.LedgerLog, error) {
	query := `
		SELECT id, kind, company_id, detail_id, actor, description, status_changed_at
		FROM ledger_logs
		WHERE kind = $1 AND company_id = $2`
	args := []any{string(kind), companyID}
	if detailID != 0 {
		args = append(args, detailID)
		query += " AND detail_id = $3"
	}
	query += " ORDER BY status_changed_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.LedgerLog, 0, 16)
	for rows.Next() {
		var (
			log     domain.LedgerLog
			rawKind string
		)
		if err := rows.Scan(&log.ID, &rawKind, &log.CompanyID, &log.DetailID, &log.Actor, &log.Description, &log.StatusChangedAt); err != nil {
			return nil, err
		}
		log.Kind = domain.CompanyKind(rawKind)
		log.StatusChangedAt = log.StatusChangedAt.UTC()
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) ListDailySales(ctx context.Context, start, end domain.Date, partnerID *int64) ([]domain.DailySales, error) {
	query := `
		SELECT sales_date, partner_company_id, revenue, partial_cancel_revenue, vat, app_revenue,
			external_revenue, tax_amount, tax_free_amount, purchase_amount, order_count, unique_users, inventory_asset
		FROM daily_sales
		WHERE sales_date BETWEEN $1 AND $2`
	args := []any{start.Time, end.Time}
	if partnerID != nil {
		args = append(args, *partnerID)
		query += " AND partner_company_id = $3"
	}
	query += " ORDER BY sales_date, partner_company_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.DailySales, 0, 64)
	for rows.Next() {
		var (
			row  domain.DailySales
			date time.Time
		)
		if err := rows.Scan(&date, &row.PartnerID, &row.Revenue, &row.PartialCancelRevenue, &row.VAT, &row.AppRevenue,
			&row.ExternalRevenue, &row.TaxAmount, &row.TaxFreeAmount, &row.PurchaseAmount, &row.OrderCount,
			&row.UniqueUsers, &row.InventoryAsset); err != nil {
			return nil, err
		}
		row.Date = domain.DateOf(date)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = domain.RoleStaff
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, active, created_at)
		VALUES ($1, $2, $3, true, $4)
	`, username, user.Password, user.Role, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password_hash, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE username = $1`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

const companySelect = `
	SELECT kind, id, b_nm, b_no, payment_period, phone, address, bank_name, bank_num, bank_holder,
		memo, tax_invoice_email, commission_rate, inventory_value
	FROM companies`

const ledgerColumns = `detail_id, kind, company_id, type, process_date, purchase_tax_amount, purchase_tax_free_amount,
		purchase_amount, sales_amount, discount_amount, payment_amount, invoice_total, memo, created_at, updated_at`

const ledgerSelect = `SELECT ` + ledgerColumns + ` FROM ledger_entries`

type rowScanner interface {
	Scan(dest ...any) error
}

type execQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanCompany(row rowScanner) (domain.Company, error) {
	var (
		company domain.Company
		rawKind string
	)
	err := row.Scan(&rawKind, &company.ID, &company.Name, &company.BizNo, &company.PaymentPeriod, &company.Phone,
		&company.Address, &company.BankName, &company.BankNum, &company.BankHolder, &company.Memo,
		&company.TaxInvoiceEmail, &company.CommissionRate, &company.InventoryValue)
	company.Kind = domain.CompanyKind(rawKind)
	return company, err
}

func scanLedgerEntry(row rowScanner) (domain.LedgerEntry, error) {
	var (
		entry       domain.LedgerEntry
		rawKind     string
		processDate time.Time
	)
	err := row.Scan(&entry.DetailID, &rawKind, &entry.CompanyID, &entry.Type, &processDate,
		&entry.PurchaseTaxAmount, &entry.PurchaseTaxFreeAmount, &entry.PurchaseAmount, &entry.SalesAmount,
		&entry.DiscountAmount, &entry.PaymentAmount, &entry.InvoiceTotal, &entry.Memo, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	entry.Kind = domain.CompanyKind(rawKind)
	entry.ProcessDate = domain.DateOf(processDate)
	entry.CreatedAt = entry.CreatedAt.UTC()
	entry.UpdatedAt = entry.UpdatedAt.UTC()
	return entry, nil
}

func insertLedgerEntry(ctx context.Context, q execQuerier, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	row := q.QueryRowContext(ctx, `
		INSERT INTO ledger_entries (
			kind, company_id, type, process_date, purchase_tax_amount, purchase_tax_free_amount,
			purchase_amount, sales_amount, discount_amount, payment_amount, invoice_total, memo,
			created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())
		RETURNING `+ledgerColumns,
		string(entry.Kind), entry.CompanyID, entry.Type, entry.ProcessDate.Time, entry.PurchaseTaxAmount,
		entry.PurchaseTaxFreeAmount, entry.PurchaseAmount, entry.SalesAmount, entry.DiscountAmount,
		entry.PaymentAmount, entry.InvoiceTotal, entry.Memo,
	)
	created, err := scanLedgerEntry(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.LedgerEntry{}, store.ErrNotFound
		}
		return domain.LedgerEntry{}, err
	}
	return created, nil
}

func insertLedgerLog(ctx context.Context, q execQuerier, entry domain.LedgerEntry, log domain.LedgerLog) error {
	if log.StatusChangedAt.IsZero() {
		log.StatusChangedAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO ledger_logs (id, kind, company_id, detail_id, actor, description, status_changed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, log.ID, string(entry.Kind), entry.CompanyID, entry.DetailID, log.Actor, log.Description, log.StatusChangedAt)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
