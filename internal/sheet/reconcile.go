package sheet

import (
	"strings"

	"github.com/shopspring/decimal"

	"settlehub/internal/domain"
)

// Reconcile merges an edit produced by the spreadsheet widget into the
// previous sheet. The result never has more rows or columns than previous,
// read-only columns keep their previous cells, and the total and
// baseline-modified columns are re-derived from quantity and unit price.
//
// When allReadOnly is set every edit is discarded and a copy of previous is
// returned.
func Reconcile(previous, incoming domain.Grid, allReadOnly bool) domain.Grid {
	if allReadOnly {
		return previous.Clone()
	}
	return mergeGrid(previous, incoming, true)
}

// Protect clamps a submitted sheet to the shape of previous and restores the
// read-only columns without re-deriving totals, so totals the user typed after
// changing quantity or price survive.
func Protect(previous, incoming domain.Grid) domain.Grid {
	return mergeGrid(previous, incoming, false)
}

func mergeGrid(previous, incoming domain.Grid, derive bool) domain.Grid {
	if len(previous) == 0 {
		return domain.Grid{}
	}

	rows := incoming
	if len(rows) > len(previous) {
		rows = rows[:len(previous)]
	}
	targetCols := previous.MaxColumns()

	next := make(domain.Grid, len(rows))
	for r, row := range rows {
		merged := mergeRow(previous[r], row, targetCols)
		if derive {
			deriveTotals(previous[r], merged)
		}
		next[r] = merged
	}
	return next
}

func mergeRow(prevRow, row []*domain.Cell, targetCols int) []*domain.Cell {
	if len(row) > targetCols {
		row = row[:targetCols]
	}
	merged := make([]*domain.Cell, targetCols)
	for c := 0; c < targetCols; c++ {
		prevCell := cellAt(prevRow, c)
		incomingCell := cellAt(row, c)

		switch {
		case IsReadOnly(c), incomingCell == nil:
			merged[c] = cloneCell(prevCell)
		case prevCell != nil:
			cell := *prevCell
			cell.Value = normalizeValue(c, incomingCell.Value)
			merged[c] = &cell
		default:
			cell := *incomingCell
			cell.Value = normalizeValue(c, incomingCell.Value)
			cell.ReadOnly = IsReadOnly(c)
			merged[c] = &cell
		}
	}
	return merged
}

func deriveTotals(prevRow, merged []*domain.Cell) {
	if len(merged) <= ColBaselineModified {
		return
	}
	prevQty := cellNumber(prevRow, ColPurchaseQuantity)
	prevPrice := cellNumber(prevRow, ColPurchasePrice)
	prevTotal := cellNumber(prevRow, ColTotal)

	qty := cellNumber(merged, ColPurchaseQuantity)
	price := cellNumber(merged, ColPurchasePrice)
	currentTotal := cellNumber(merged, ColTotal)

	switch {
	case !qty.Equal(prevQty) || !price.Equal(prevPrice):
		total := decimal.Zero
		if !qty.IsZero() && price.IsPositive() {
			total = qty.Mul(price)
		}
		merged[ColTotal] = withValue(cellAt(prevRow, ColTotal), domain.NumberValue(total))
		merged[ColBaselineModified] = withValue(cellAt(prevRow, ColBaselineModified), domain.StringValue(FlagYes))
	case !currentTotal.Equal(prevTotal):
		merged[ColTotal] = withValue(cellAt(prevRow, ColTotal), domain.NumberValue(currentTotal))
		merged[ColBaselineModified] = withValue(cellAt(prevRow, ColBaselineModified), domain.StringValue(FlagYes))
	}
}

// normalizeValue upper-cases and trims text typed into the flag column.
func normalizeValue(col int, v domain.CellValue) domain.CellValue {
	if col != ColBaselineModified {
		return v
	}
	if s, ok := v.Str(); ok {
		return domain.StringValue(strings.ToUpper(strings.TrimSpace(s)))
	}
	return v
}

func withValue(base *domain.Cell, v domain.CellValue) *domain.Cell {
	cell := domain.Cell{}
	if base != nil {
		cell = *base
	}
	cell.Value = v
	return &cell
}

func cloneCell(cell *domain.Cell) *domain.Cell {
	if cell == nil {
		return nil
	}
	out := *cell
	return &out
}

// ApplyReadOnly marks cells of read-only columns, or every cell when the
// delivery date is no longer open for entry.
func ApplyReadOnly(grid domain.Grid, allReadOnly bool) domain.Grid {
	out := grid.Clone()
	for _, row := range out {
		for c, cell := range row {
			if cell == nil {
				continue
			}
			cell.ReadOnly = allReadOnly || IsReadOnly(c)
		}
	}
	return out
}
