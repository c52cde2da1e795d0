// Package sheet holds the rules of the bulk vegetable purchase sheet: column
// roles, edit reconciliation, pre-commit validation and supplier summaries.
package sheet

// Column positions of a purchase sheet row.
const (
	ColSupplier = iota
	ColProductID
	ColProductName
	ColSoldQuantity
	ColPurchaseQuantity
	ColAverageSalePrice
	ColSetSalePrice
	ColBaselinePrice
	ColPurchasePrice
	ColTotal
	ColBaselineModified

	ColumnCount
)

const (
	FlagYes = "Y"
	FlagNo  = "N"
)

// ReadOnlyColumns are sourced from upstream systems and never accept edits.
var ReadOnlyColumns = []int{
	ColSupplier,
	ColProductID,
	ColProductName,
	ColSoldQuantity,
	ColAverageSalePrice,
	ColSetSalePrice,
	ColBaselinePrice,
}

var readOnlyMask = func() [ColumnCount]bool {
	var mask [ColumnCount]bool
	for _, col := range ReadOnlyColumns {
		mask[col] = true
	}
	return mask
}()

// ExpectedKeys is the column key order the loader accepts.
var ExpectedKeys = [ColumnCount]string{
	"buy_company_name",
	"product_id",
	"product_name",
	"sell_count",
	"buy_count",
	"avg_price",
	"set_sale_price",
	"master_purchase_price",
	"purchase_price",
	"total_purchase_price",
	"flag",
}

var Headers = [ColumnCount]string{
	"매입사",
	"상품ID",
	"상품명",
	"판매수량",
	"매입수량",
	"평균판매금액",
	"판매설정금액",
	"기준매입단가",
	"매입단가",
	"합계금액",
	"기준매입단가 수정여부",
}

func IsReadOnly(col int) bool {
	return col >= 0 && col < ColumnCount && readOnlyMask[col]
}
