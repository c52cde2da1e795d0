package service

import (
	"bytes"
	"context"
	"fmt"

	"settlehub/internal/domain"
	"settlehub/internal/export"
)

// Export is a rendered xlsx workbook.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

func (s *Service) ExportPurchaseSheet(ctx context.Context, rawDate string) (Export, error) {
	date, err := parseDate("estimated_delivery_date", rawDate)
	if err != nil {
		return Export{}, err
	}
	record, err := s.repo.GetPurchaseSheet(ctx, date.String())
	if err != nil {
		return Export{}, err
	}

	var buf bytes.Buffer
	if err := export.PurchaseSheet(&buf, *record, s.SummarizePurchaseSheet(ctx, record.TableData).Suppliers); err != nil {
		s.logError("ExportPurchaseSheet", "render xlsx", date.String(), err)
		return Export{}, fmt.Errorf("render purchase sheet: %w", err)
	}
	return Export{
		Filename:    fmt.Sprintf("vegetable-purchase-%s.xlsx", date.String()),
		ContentType: export.ContentType,
		Body:        buf.Bytes(),
	}, nil
}

func (s *Service) ExportLedger(ctx context.Context, kind domain.CompanyKind, id int64, rawStart, rawEnd string) (Export, error) {
	details, err := s.LedgerDetails(ctx, kind, id, rawStart, rawEnd)
	if err != nil {
		return Export{}, err
	}

	var buf bytes.Buffer
	if err := export.Ledger(&buf, details); err != nil {
		s.logError("ExportLedger", "render xlsx", map[string]any{"kind": kind, "company_id": id}, err)
		return Export{}, fmt.Errorf("render ledger: %w", err)
	}
	return Export{
		Filename:    fmt.Sprintf("ledger-%s-%d-%s-%s.xlsx", kind, id, details.StartDate, details.EndDate),
		ContentType: export.ContentType,
		Body:        buf.Bytes(),
	}, nil
}
