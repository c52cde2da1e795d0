package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"settlehub/internal/domain"
	"settlehub/internal/lock"
	"settlehub/internal/sheet"
	"settlehub/internal/store"
	"settlehub/internal/xid"
)

func (s *Service) AvailablePurchaseDates(ctx context.Context) (domain.AvailableDatesResponse, error) {
	dates, err := s.repo.ListOpenPurchaseDates(ctx)
	if err != nil {
		return domain.AvailableDatesResponse{}, err
	}
	return domain.AvailableDatesResponse{AvailableDate: dates}, nil
}

// LoadPurchaseSheet returns the stored sheet for a delivery date. Sheets whose
// column keys are out of order are rejected with *sheet.KeyMismatchError.
func (s *Service) LoadPurchaseSheet(ctx context.Context, rawDate string) (domain.PurchaseSheetResponse, error) {
	date, err := parseDate("estimated_delivery_date", rawDate)
	if err != nil {
		return domain.PurchaseSheetResponse{}, err
	}
	record, err := s.repo.GetPurchaseSheet(ctx, date.String())
	if err != nil {
		return domain.PurchaseSheetResponse{}, err
	}
	if err := sheet.CheckColumnKeys(record.TableData); err != nil {
		s.logger.WithFields(logrus.Fields{"date": date.String(), "reason": err.Error()}).Warn("purchase sheet column order mismatch")
		return domain.PurchaseSheetResponse{}, err
	}

	open, err := s.isDateOpen(ctx, date.String())
	if err != nil {
		return domain.PurchaseSheetResponse{}, err
	}
	return domain.PurchaseSheetResponse{
		EstimatedDeliveryDate:  date.String(),
		OrderAggregationPeriod: record.OrderAggregationPeriod,
		AllReadOnly:            !open,
		TableData:              sheet.ApplyReadOnly(record.TableData, !open),
	}, nil
}

// ReconcilePurchaseSheet applies one spreadsheet edit. When the client sends
// no previous grid the stored sheet is used.
func (s *Service) ReconcilePurchaseSheet(ctx context.Context, req domain.ReconcileRequest) (domain.ReconcileResponse, error) {
	date, err := parseDate("estimated_delivery_date", req.EstimatedDeliveryDate)
	if err != nil {
		return domain.ReconcileResponse{}, err
	}
	open, err := s.isDateOpen(ctx, date.String())
	if err != nil {
		return domain.ReconcileResponse{}, err
	}

	previous := req.PreviousTableData
	if len(previous) == 0 {
		record, err := s.repo.GetPurchaseSheet(ctx, date.String())
		if err != nil {
			return domain.ReconcileResponse{}, err
		}
		previous = sheet.ApplyReadOnly(record.TableData, !open)
	}

	next := sheet.Reconcile(previous, req.TableData, !open)
	return domain.ReconcileResponse{
		AllReadOnly: !open,
		TableData:   next,
		Summary:     sheet.Summarize(next),
	}, nil
}

func (s *Service) ValidatePurchaseSheet(_ context.Context, grid domain.Grid) domain.ValidationResult {
	return sheet.Check(grid)
}

func (s *Service) SummarizePurchaseSheet(_ context.Context, grid domain.Grid) domain.SummaryResponse {
	return domain.SummaryResponse{Suppliers: sheet.Summarize(grid)}
}

// CommitPurchaseSheet persists the submitted sheet once per delivery date and
// books a purchase ledger entry for every supplier that is a known direct
// purchase company.
func (s *Service) CommitPurchaseSheet(ctx context.Context, req domain.SheetRequest) (domain.CommitResponse, error) {
	date, err := parseDate("estimated_delivery_date", req.EstimatedDeliveryDate)
	if err != nil {
		return domain.CommitResponse{}, err
	}
	if len(req.TableData) == 0 {
		return domain.CommitResponse{}, invalidInput("table_data is required")
	}
	if err := sheet.Validate(req.TableData); err != nil {
		return domain.CommitResponse{}, err
	}

	held, err := s.locker.Obtain(ctx, "purchase-commit:"+date.String(), s.commitLockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return domain.CommitResponse{}, ErrCommitInProgress
		}
		return domain.CommitResponse{}, fmt.Errorf("obtain commit lock: %w", err)
	}
	defer func() {
		if err := held.Release(context.WithoutCancel(ctx)); err != nil {
			s.logError("CommitPurchaseSheet", "release commit lock", date.String(), err)
		}
	}()

	record, err := s.repo.GetPurchaseSheet(ctx, date.String())
	if err != nil {
		return domain.CommitResponse{}, err
	}
	open, err := s.isDateOpen(ctx, date.String())
	if err != nil {
		return domain.CommitResponse{}, err
	}
	if record.CommittedAt != nil || !open {
		return domain.CommitResponse{}, ErrDateClosed
	}
	if len(req.TableData) != len(record.TableData) {
		return domain.CommitResponse{}, invalidInput("table_data has %d rows, sheet has %d", len(req.TableData), len(record.TableData))
	}

	grid := sheet.Protect(record.TableData, req.TableData)
	if err := sheet.Validate(grid); err != nil {
		return domain.CommitResponse{}, err
	}

	actor := actorName(ctx)
	entries, logs, err := s.purchaseEntries(ctx, date, grid, actor)
	if err != nil {
		return domain.CommitResponse{}, err
	}

	_, err = s.repo.CommitPurchaseSheet(ctx, store.PurchaseCommit{
		Date:        date.String(),
		Grid:        grid,
		CommittedBy: actor,
		CommittedAt: s.now().UTC(),
		Entries:     entries,
		Logs:        logs,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyCommitted) {
			return domain.CommitResponse{}, ErrDateClosed
		}
		s.logError("CommitPurchaseSheet", "persist commit", date.String(), err)
		return domain.CommitResponse{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"date":    date.String(),
		"actor":   actor,
		"rows":    len(grid),
		"entries": len(entries),
	}).Info("purchase sheet committed")

	return domain.CommitResponse{
		Type:    domain.PurchaseSuccessMessage,
		Payload: domain.CommitPayload{Date: date.String()},
	}, nil
}

func (s *Service) purchaseEntries(ctx context.Context, date domain.Date, grid domain.Grid, actor string) ([]domain.LedgerEntry, []domain.LedgerLog, error) {
	summary := sheet.Summarize(grid)
	if len(summary) == 0 {
		return nil, nil, nil
	}
	companies, err := s.repo.ListCompanies(ctx, domain.CompanyKindBuy, domain.CompanyFilter{})
	if err != nil {
		return nil, nil, err
	}
	byName := make(map[string]domain.Company, len(companies))
	for _, c := range companies {
		byName[c.Name] = c
	}

	now := s.now().UTC()
	entries := make([]domain.LedgerEntry, 0, len(summary))
	logs := make([]domain.LedgerLog, 0, len(summary))
	for _, sum := range summary {
		company, ok := byName[sum.Supplier]
		if !ok {
			s.logger.WithFields(logrus.Fields{"date": date.String(), "supplier": sum.Supplier}).Warn("supplier has no direct purchase company; ledger entry skipped")
			continue
		}
		entries = append(entries, domain.LedgerEntry{
			Kind:                  domain.CompanyKindBuy,
			CompanyID:             company.ID,
			Type:                  domain.EntryTypePurchase,
			ProcessDate:           date,
			PurchaseTaxFreeAmount: sum.Total,
			PurchaseAmount:        sum.Total,
			InvoiceTotal:          sum.Total,
			Memo:                  fmt.Sprintf("야채 매입 %s (%d개 상품)", date.String(), sum.ProductCount),
		})
		logs = append(logs, domain.LedgerLog{
			ID:              xid.New("log"),
			Actor:           actor,
			Description:     fmt.Sprintf("야채 매입 생성: %s원", sum.Total.String()),
			StatusChangedAt: now,
		})
	}
	return entries, logs, nil
}

func (s *Service) isDateOpen(ctx context.Context, date string) (bool, error) {
	dates, err := s.repo.ListOpenPurchaseDates(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(dates, date), nil
}
