package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UserSummary struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// PurchaseSheet is the bulk vegetable purchase entry for one delivery date.
type PurchaseSheet struct {
	EstimatedDeliveryDate  string     `json:"estimated_delivery_date"`
	OrderAggregationPeriod string     `json:"order_aggregation_period"`
	TableData              Grid       `json:"table_data"`
	CommittedBy            string     `json:"committed_by,omitempty"`
	CommittedAt            *time.Time `json:"committed_at,omitempty"`
}

type PurchaseSheetResponse struct {
	EstimatedDeliveryDate  string `json:"estimated_delivery_date"`
	OrderAggregationPeriod string `json:"order_aggregation_period"`
	AllReadOnly            bool   `json:"all_read_only"`
	TableData              Grid   `json:"table_data"`
}

type AvailableDatesResponse struct {
	AvailableDate []string `json:"available_date"`
}

type ReconcileRequest struct {
	EstimatedDeliveryDate string `json:"estimated_delivery_date"`
	PreviousTableData     Grid   `json:"previous_table_data"`
	TableData             Grid   `json:"table_data"`
}

type ReconcileResponse struct {
	AllReadOnly bool              `json:"all_read_only"`
	TableData   Grid              `json:"table_data"`
	Summary     []SupplierSummary `json:"summary"`
}

type SheetRequest struct {
	EstimatedDeliveryDate string `json:"estimated_delivery_date"`
	TableData             Grid   `json:"table_data"`
}

type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Row     int    `json:"row,omitempty"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message,omitempty"`
}

type SupplierSummary struct {
	Supplier     string          `json:"supplier"`
	Total        decimal.Decimal `json:"total"`
	ProductCount int             `json:"product_count"`
}

type SummaryResponse struct {
	Suppliers []SupplierSummary `json:"suppliers"`
}

const PurchaseSuccessMessage = "VEG_PURCHASE_SUCCESS"

type CommitPayload struct {
	Date string `json:"date"`
}

// CommitResponse mirrors the message the dashboard forwards to its parent window.
type CommitResponse struct {
	Type    string        `json:"type"`
	Payload CommitPayload `json:"payload"`
}

type CompanyKind string

const (
	CompanyKindBuy     CompanyKind = "buy"
	CompanyKindPartner CompanyKind = "partner"
)

func (k CompanyKind) Valid() bool {
	return k == CompanyKindBuy || k == CompanyKindPartner
}

// Label is the Korean purchase type shown in the integrated settlement grid.
func (k CompanyKind) Label() string {
	switch k {
	case CompanyKindBuy:
		return "직매입"
	case CompanyKindPartner:
		return "위탁매입"
	default:
		return string(k)
	}
}

type Company struct {
	ID              int64           `json:"company_id"`
	Kind            CompanyKind     `json:"type"`
	Name            string          `json:"b_nm"`
	BizNo           string          `json:"b_no"`
	PaymentPeriod   string          `json:"payment_period"`
	Phone           string          `json:"phone"`
	Address         string          `json:"address"`
	BankName        string          `json:"bank_name"`
	BankNum         string          `json:"bank_num"`
	BankHolder      string          `json:"bank_holder"`
	Memo            string          `json:"memo"`
	TaxInvoiceEmail string          `json:"tax_invoice_email"`
	CommissionRate  decimal.Decimal `json:"commission_rate"`
	InventoryValue  decimal.Decimal `json:"total_product_inventory_value"`
}

type CompanyFilter struct {
	Name           string
	PaymentPeriods []string
}

type CompanyListResponse struct {
	Companies []Company `json:"companies"`
}

// Ledger entry types as shown on the settlement screens.
const (
	EntryTypeCarryOver = "전기이월"
	EntryTypeReturn    = "반품"
	EntryTypePurchase  = "매입"
	EntryTypePayment   = "결제"
)

type LedgerEntry struct {
	DetailID              int64           `json:"detail_id"`
	CompanyID             int64           `json:"company_id"`
	Kind                  CompanyKind     `json:"-"`
	Type                  string          `json:"type"`
	ProcessDate           Date            `json:"process_date"`
	PurchaseTaxAmount     decimal.Decimal `json:"purchase_tax_amount"`
	PurchaseTaxFreeAmount decimal.Decimal `json:"purchase_tax_free_amount"`
	PurchaseAmount        decimal.Decimal `json:"purchase_amount"`
	SalesAmount           decimal.Decimal `json:"sales_amount"`
	DiscountAmount        decimal.Decimal `json:"discount_amount"`
	PaymentAmount         decimal.Decimal `json:"payment_amount"`
	InvoiceTotal          decimal.Decimal `json:"invoice_total"`
	Balance               decimal.Decimal `json:"balance"`
	Memo                  string          `json:"memo"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

type LedgerDetailsResponse struct {
	Company   Company       `json:"company"`
	StartDate string        `json:"start_date"`
	EndDate   string        `json:"end_date"`
	Items     []LedgerEntry `json:"items"`
}

type PaymentRequest struct {
	ProcessDate string          `json:"process_date" validate:"omitempty,datetime=2006-01-02"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Notes       string          `json:"notes" validate:"max=500"`
}

type PaymentResponse struct {
	Entry LedgerEntry `json:"entry"`
}

type LedgerLog struct {
	ID              string      `json:"id"`
	Kind            CompanyKind `json:"-"`
	CompanyID       int64       `json:"company_id"`
	DetailID        int64       `json:"detail_id"`
	Actor           string      `json:"actor"`
	Description     string      `json:"description"`
	StatusChangedAt time.Time   `json:"status_changed_at"`
}

type LedgerLogResponse struct {
	Items []LedgerLog `json:"items"`
}

type IntegratedQuery struct {
	StartDate      Date
	EndDate        Date
	Page           int
	Size           int
	Name           string
	Types          []CompanyKind
	PaymentPeriods []string
	Sort           string
}

type IntegratedRow struct {
	CompanyID          int64           `json:"company_id"`
	Name               string          `json:"b_nm"`
	Type               CompanyKind     `json:"type"`
	TypeLabel          string          `json:"type_label"`
	PaymentDate        string          `json:"payment_date"`
	BizNo              string          `json:"b_no"`
	PreviousBalance    decimal.Decimal `json:"previous_balance"`
	SalesAmount        decimal.Decimal `json:"sales_amount"`
	TaxPurchase        decimal.Decimal `json:"tax_purchase"`
	TaxFreePurchase    decimal.Decimal `json:"tax_free_purchase"`
	PurchaseAmount     decimal.Decimal `json:"purchase_amount"`
	CommissionRate     decimal.Decimal `json:"commission_rate"`
	AppFee             decimal.Decimal `json:"app_fee"`
	OtherFee           decimal.Decimal `json:"other_fee"`
	ExpectedSettlement decimal.Decimal `json:"expected_settlement"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	PaymentAmount      decimal.Decimal `json:"payment_amount"`
	InvoiceTotal       decimal.Decimal `json:"invoice_total"`
	Balance            decimal.Decimal `json:"balance"`
	LastPurchaseDate   Date            `json:"last_purchase_date"`
	LastPaymentDate    Date            `json:"last_payment_date"`
	InventoryValue     decimal.Decimal `json:"total_product_inventory_value"`
	TaxInvoiceEmail    string          `json:"tax_invoice_email"`
	Memo               string          `json:"memo"`
}

type IntegratedPage struct {
	Items []IntegratedRow `json:"items"`
	Total int             `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}

// DailySales is one day of sales activity for a consignment partner.
type DailySales struct {
	Date                 Date            `json:"date"`
	PartnerID            int64           `json:"partner_company_id"`
	Revenue              decimal.Decimal `json:"revenue"`
	PartialCancelRevenue decimal.Decimal `json:"partial_cancel_revenue"`
	VAT                  decimal.Decimal `json:"vat"`
	AppRevenue           decimal.Decimal `json:"app_revenue"`
	ExternalRevenue      decimal.Decimal `json:"external_revenue"`
	TaxAmount            decimal.Decimal `json:"tax_amount"`
	TaxFreeAmount        decimal.Decimal `json:"tax_free_amount"`
	PurchaseAmount       decimal.Decimal `json:"purchase_amount"`
	OrderCount           int64           `json:"order_count"`
	UniqueUsers          int64           `json:"unique_users"`
	InventoryAsset       decimal.Decimal `json:"inventory_asset"`
}

type DashboardChartPoint struct {
	Date             string          `json:"date"`
	SalesAmount      decimal.Decimal `json:"sales_amount"`
	PurchaseAmount   decimal.Decimal `json:"purchase_amount"`
	CostToSalesRatio decimal.Decimal `json:"cost_to_sales_ratio"`
}

type DashboardResponse struct {
	PartnerCompanyID     *int64                `json:"partner_company_id"`
	PartnerCompanyName   *string               `json:"partner_company_name"`
	RealtimeRevenue      decimal.Decimal       `json:"realtime_revenue"`
	TotalRevenue         decimal.Decimal       `json:"total_revenue"`
	UniqueUserCount      int64                 `json:"unique_user_count"`
	AverageOrderAmount   decimal.Decimal       `json:"average_order_amount"`
	InventoryAsset       decimal.Decimal       `json:"inventory_asset"`
	Revenue              decimal.Decimal       `json:"revenue"`
	PartialCancelRevenue decimal.Decimal       `json:"partial_cancel_revenue"`
	VAT                  decimal.Decimal       `json:"vat"`
	SalesRevenue         decimal.Decimal       `json:"sales_revenue"`
	AppRevenue           decimal.Decimal       `json:"app_revenue"`
	ExternalRevenue      decimal.Decimal       `json:"external_revenue"`
	TotalTaxAmount       decimal.Decimal       `json:"total_tax_amount"`
	TotalTaxFreeAmount   decimal.Decimal       `json:"total_tax_free_amount"`
	GrossProfitMargin    decimal.Decimal       `json:"gross_profit_margin"`
	ChartData            []DashboardChartPoint `json:"chart_data"`
}

type PartnerCompany struct {
	PartnerCompanyID int64  `json:"partner_company_id"`
	Name             string `json:"b_nm"`
}

type PartnerListResponse struct {
	Partners   []PartnerCompany `json:"partners"`
	TotalCount int              `json:"total_count"`
}

// PaymentPeriods maps payment_period codes to their display labels.
var PaymentPeriods = map[string]string{
	"01": "월 결제",
	"02": "15일 결제",
	"03": "주 결제",
	"04": "선금 지급",
	"05": "말일 결제",
	"06": "매입시 지급",
}
