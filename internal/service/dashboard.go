package service

import (
	"context"
	"errors"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"

	"settlehub/internal/cache"
	"settlehub/internal/domain"
	"settlehub/internal/store"
)

var hundred = decimal.NewFromInt(100)

// Dashboard aggregates partner daily sales into KPI cards and a per-day
// chart. Results are cached per period and partner.
func (s *Service) Dashboard(ctx context.Context, rawStart, rawEnd string, partnerID *int64) (domain.DashboardResponse, error) {
	start, end, err := s.dateRange(rawStart, rawEnd, 6)
	if err != nil {
		return domain.DashboardResponse{}, err
	}

	key := cache.DashboardKey(start, end, partnerID)
	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logError("Dashboard", "cache get", key, err)
	} else if ok {
		return *cached, nil
	}

	resp := domain.DashboardResponse{ChartData: []domain.DashboardChartPoint{}}
	if partnerID != nil {
		partner, err := s.repo.GetCompany(ctx, domain.CompanyKindPartner, *partnerID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.DashboardResponse{}, invalidInput("unknown partner_id %d", *partnerID)
			}
			return domain.DashboardResponse{}, err
		}
		id, name := partner.ID, partner.Name
		resp.PartnerCompanyID = &id
		resp.PartnerCompanyName = &name
	}

	rows, err := s.repo.ListDailySales(ctx, start, end, partnerID)
	if err != nil {
		return domain.DashboardResponse{}, err
	}
	aggregateDashboard(&resp, rows)

	if err := s.cache.Set(ctx, key, &resp, s.dashboardTTL); err != nil {
		s.logError("Dashboard", "cache set", key, err)
	}
	return resp, nil
}

func aggregateDashboard(resp *domain.DashboardResponse, rows []domain.DailySales) {
	type day struct {
		sales    decimal.Decimal
		purchase decimal.Decimal
	}
	days := make(map[string]*day)
	var dates []string
	var latest domain.Date
	inventoryByPartner := make(map[int64]decimal.Decimal)
	latestByPartner := make(map[int64]domain.Date)
	var orders int64
	var purchase decimal.Decimal

	for _, row := range rows {
		resp.Revenue = resp.Revenue.Add(row.Revenue)
		resp.PartialCancelRevenue = resp.PartialCancelRevenue.Add(row.PartialCancelRevenue)
		resp.VAT = resp.VAT.Add(row.VAT)
		resp.AppRevenue = resp.AppRevenue.Add(row.AppRevenue)
		resp.ExternalRevenue = resp.ExternalRevenue.Add(row.ExternalRevenue)
		resp.TotalTaxAmount = resp.TotalTaxAmount.Add(row.TaxAmount)
		resp.TotalTaxFreeAmount = resp.TotalTaxFreeAmount.Add(row.TaxFreeAmount)
		resp.UniqueUserCount += row.UniqueUsers
		orders += row.OrderCount
		purchase = purchase.Add(row.PurchaseAmount)

		if row.Date.After(latest) {
			latest = row.Date
		}
		if !row.Date.Before(latestByPartner[row.PartnerID]) {
			latestByPartner[row.PartnerID] = row.Date
			inventoryByPartner[row.PartnerID] = row.InventoryAsset
		}

		key := row.Date.String()
		d, ok := days[key]
		if !ok {
			d = &day{}
			days[key] = d
			dates = append(dates, key)
		}
		d.sales = d.sales.Add(row.Revenue)
		d.purchase = d.purchase.Add(row.PurchaseAmount)
	}

	for _, row := range rows {
		if row.Date.String() == latest.String() {
			resp.RealtimeRevenue = resp.RealtimeRevenue.Add(row.Revenue)
		}
	}
	for _, inventory := range inventoryByPartner {
		resp.InventoryAsset = resp.InventoryAsset.Add(inventory)
	}

	resp.SalesRevenue = resp.Revenue.Sub(resp.PartialCancelRevenue)
	resp.TotalRevenue = resp.SalesRevenue.Add(resp.VAT)
	if orders > 0 {
		resp.AverageOrderAmount = resp.SalesRevenue.Div(decimal.NewFromInt(orders)).Round(0)
	}
	if resp.SalesRevenue.IsPositive() {
		resp.GrossProfitMargin = resp.SalesRevenue.Sub(purchase).Mul(hundred).Div(resp.SalesRevenue).Round(2)
	}

	slices.Sort(dates)
	for _, date := range dates {
		d := days[date]
		point := domain.DashboardChartPoint{Date: date, SalesAmount: d.sales, PurchaseAmount: d.purchase}
		if d.sales.IsPositive() {
			point.CostToSalesRatio = d.purchase.Mul(hundred).Div(d.sales).Round(2)
		}
		resp.ChartData = append(resp.ChartData, point)
	}
}

func (s *Service) Partners(ctx context.Context) (domain.PartnerListResponse, error) {
	companies, err := s.repo.ListCompanies(ctx, domain.CompanyKindPartner, domain.CompanyFilter{})
	if err != nil {
		return domain.PartnerListResponse{}, err
	}
	partners := make([]domain.PartnerCompany, 0, len(companies))
	for _, c := range companies {
		partners = append(partners, domain.PartnerCompany{PartnerCompanyID: c.ID, Name: c.Name})
	}
	return domain.PartnerListResponse{Partners: partners, TotalCount: len(partners)}, nil
}

// ParsePartnerID reads the optional partner_id query value.
func ParsePartnerID(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, invalidInput("partner_id must be a positive integer")
	}
	return &id, nil
}
