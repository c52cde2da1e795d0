package sheet

import (
	"strings"

	"github.com/shopspring/decimal"

	"settlehub/internal/domain"
)

// Summarize totals column 9 per supplier and counts distinct product ids.
// Continuation rows leave the supplier blank and belong to the nearest
// supplier above them. Only rows with a positive total are counted.
func Summarize(grid domain.Grid) []domain.SupplierSummary {
	type acc struct {
		total    decimal.Decimal
		products map[string]struct{}
	}
	order := make([]string, 0)
	bySupplier := make(map[string]*acc)
	lastSupplier := ""

	for r, row := range grid {
		supplier := strings.TrimSpace(cellText(row, ColSupplier))
		productID := strings.TrimSpace(cellText(row, ColProductID))
		amount := cellNumber(row, ColTotal)

		if r == 0 && supplier == "" {
			continue
		}
		effective := supplier
		if effective == "" {
			effective = lastSupplier
		}

		if effective != "" && amount.IsPositive() {
			a, ok := bySupplier[effective]
			if !ok {
				a = &acc{total: decimal.Zero, products: make(map[string]struct{})}
				bySupplier[effective] = a
				order = append(order, effective)
			}
			a.total = a.total.Add(amount)
			if productID != "" {
				a.products[productID] = struct{}{}
			}
		}

		if supplier != "" {
			lastSupplier = supplier
		}
	}

	out := make([]domain.SupplierSummary, 0, len(order))
	for _, name := range order {
		a := bySupplier[name]
		out = append(out, domain.SupplierSummary{
			Supplier:     name,
			Total:        a.total,
			ProductCount: len(a.products),
		})
	}
	return out
}

func cellText(row []*domain.Cell, col int) string {
	cell := cellAt(row, col)
	if cell == nil {
		return ""
	}
	return truthyString(cell.Value)
}
