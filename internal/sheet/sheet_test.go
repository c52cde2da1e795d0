package sheet

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settlehub/internal/domain"
)

func str(s string) *domain.Cell {
	return &domain.Cell{Value: domain.StringValue(s)}
}

func num(n int64) *domain.Cell {
	return &domain.Cell{Value: domain.IntValue(n)}
}

func null() *domain.Cell {
	return &domain.Cell{Value: domain.NullValue()}
}

// widgetRow is the reference row used across scenarios.
func widgetRow() []*domain.Cell {
	row := []*domain.Cell{
		str("A"), str("P1"), str("Widget"), num(10), num(5), num(1000),
		num(1100), num(200), num(200), num(1000), str("N"),
	}
	for c, cell := range row {
		cell.Key = ExpectedKeys[c]
		cell.ReadOnly = IsReadOnly(c)
	}
	return row
}

// edit returns a row of ColumnCount absent cells with the given overrides.
func edit(overrides map[int]*domain.Cell) []*domain.Cell {
	row := make([]*domain.Cell, ColumnCount)
	for c, cell := range overrides {
		row[c] = cell
	}
	return row
}

func assertNumber(t *testing.T, want int64, cell *domain.Cell) {
	t.Helper()
	require.NotNil(t, cell)
	n, ok := cell.Value.Num()
	require.True(t, ok, "expected numeric value, got %q", cell.Value.String())
	assert.True(t, decimal.NewFromInt(want).Equal(n), "want %d, got %s", want, n)
}

func assertString(t *testing.T, want string, cell *domain.Cell) {
	t.Helper()
	require.NotNil(t, cell)
	s, ok := cell.Value.Str()
	require.True(t, ok, "expected string value")
	assert.Equal(t, want, s)
}

func TestReconcileQuantityChangeRecomputesTotal(t *testing.T) {
	prev := domain.Grid{widgetRow()}
	next := Reconcile(prev, domain.Grid{edit(map[int]*domain.Cell{ColPurchaseQuantity: num(8)})}, false)

	require.Len(t, next, 1)
	assertNumber(t, 8, next[0][ColPurchaseQuantity])
	assertNumber(t, 1600, next[0][ColTotal])
	assertString(t, "Y", next[0][ColBaselineModified])
	assert.Equal(t, "total_purchase_price", next[0][ColTotal].Key)
	assert.Equal(t, "flag", next[0][ColBaselineModified].Key)
}

func TestReconcileDirectTotalEditFlipsFlag(t *testing.T) {
	prev := domain.Grid{widgetRow()}
	next := Reconcile(prev, domain.Grid{edit(map[int]*domain.Cell{ColTotal: num(1234)})}, false)

	assertNumber(t, 1234, next[0][ColTotal])
	assertString(t, "Y", next[0][ColBaselineModified])
	assertNumber(t, 5, next[0][ColPurchaseQuantity])
}

func TestReconcileDirectTotalEditAsTextIsStoredAsNumber(t *testing.T) {
	prev := domain.Grid{widgetRow()}
	next := Reconcile(prev, domain.Grid{edit(map[int]*domain.Cell{ColTotal: str("1234")})}, false)

	assertNumber(t, 1234, next[0][ColTotal])
	assertString(t, "Y", next[0][ColBaselineModified])
}

func TestReconcileTotalEqualToPreviousIsNotAChange(t *testing.T) {
	prev := domain.Grid{widgetRow()}
	next := Reconcile(prev, domain.Grid{edit(map[int]*domain.Cell{ColTotal: str("1000")})}, false)

	assertString(t, "1000", next[0][ColTotal])
	assertString(t, "N", next[0][ColBaselineModified])
}

func TestReconcileReadOnlyColumnsKeepPreviousValue(t *testing.T) {
	prev := domain.Grid{widgetRow()}
	incoming := edit(map[int]*domain.Cell{})
	for _, c := range ReadOnlyColumns {
		incoming[c] = str("tampered")
	}

	next := Reconcile(prev, domain.Grid{incoming}, false)

	for _, c := range ReadOnlyColumns {
		assert.True(t, prev[0][c].Value.Equal(next[0][c].Value), "column %d changed", c)
		assert.True(t, next[0][c].ReadOnly)
	}
	assertString(t, "A", next[0][ColSupplier])
	assertString(t, "N", next[0][ColBaselineModified])
}

func TestReconcileDoesNotGrowShape(t *testing.T) {
	prev := domain.Grid{widgetRow(), widgetRow()}
	wide := append(widgetRow(), str("extra"), str("extra"))
	incoming := domain.Grid{wide, widgetRow(), widgetRow(), widgetRow()}

	for _, allReadOnly := range []bool{false, true} {
		next := Reconcile(prev, incoming, allReadOnly)
		assert.LessOrEqual(t, len(next), len(prev))
		for _, row := range next {
			assert.LessOrEqual(t, len(row), ColumnCount)
		}
	}
}

func TestReconcileAllReadOnlyReturnsPrevious(t *testing.T) {
	prev := domain.Grid{widgetRow(), widgetRow()}
	incoming := domain.Grid{edit(map[int]*domain.Cell{
		ColPurchaseQuantity: num(99),
		ColTotal:            num(1),
		ColBaselineModified: str("y"),
	})}

	next := Reconcile(prev, incoming, true)

	require.Len(t, next, len(prev))
	for r := range prev {
		for c := range prev[r] {
			assert.Equal(t, *prev[r][c], *next[r][c])
		}
	}
	next[0][ColSupplier].Value = domain.StringValue("changed")
	assertString(t, "A", prev[0][ColSupplier])
}

func TestReconcileFlagEditPersistsNormalized(t *testing.T) {
	prev := domain.Grid{widgetRow()}
	prev[0][ColBaselineModified].Value = domain.StringValue("Y")

	next := Reconcile(prev, domain.Grid{edit(map[int]*domain.Cell{ColBaselineModified: str("  n ")})}, false)

	assertString(t, "N", next[0][ColBaselineModified])
	assertNumber(t, 1000, next[0][ColTotal])
}

func TestReconcileResetQuantityCountsAsChange(t *testing.T) {
	tests := []struct {
		name string
		cell *domain.Cell
	}{
		{name: "zero", cell: num(0)},
		{name: "blank", cell: str("")},
		{name: "null", cell: null()},
		{name: "text", cell: str("abc")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := domain.Grid{widgetRow()}
			next := Reconcile(prev, domain.Grid{edit(map[int]*domain.Cell{ColPurchaseQuantity: tt.cell})}, false)

			assertNumber(t, 0, next[0][ColTotal])
			assertString(t, "Y", next[0][ColBaselineModified])
		})
	}
}

func TestReconcileNonPositivePriceYieldsZeroTotal(t *testing.T) {
	prev := domain.Grid{widgetRow()}
	next := Reconcile(prev, domain.Grid{edit(map[int]*domain.Cell{ColPurchasePrice: num(-10)})}, false)

	assertNumber(t, 0, next[0][ColTotal])
	assertString(t, "Y", next[0][ColBaselineModified])
}

func TestReconcileSameNumberAsTextIsNotAChange(t *testing.T) {
	prev := domain.Grid{widgetRow()}
	next := Reconcile(prev, domain.Grid{edit(map[int]*domain.Cell{ColPurchaseQuantity: str("5")})}, false)

	assertString(t, "5", next[0][ColPurchaseQuantity])
	assertNumber(t, 1000, next[0][ColTotal])
	assertString(t, "N", next[0][ColBaselineModified])
}

func TestReconcileFractionalPriceIsExact(t *testing.T) {
	prev := domain.Grid{widgetRow()}
	next := Reconcile(prev, domain.Grid{edit(map[int]*domain.Cell{
		ColPurchaseQuantity: str("3"),
		ColPurchasePrice:    str("0.1"),
	})}, false)

	n, ok := next[0][ColTotal].Value.Num()
	require.True(t, ok)
	assert.Equal(t, "0.3", n.String())
}

func TestReconcileShorterIncomingKeepsPreviousCells(t *testing.T) {
	prev := domain.Grid{widgetRow()}
	short := []*domain.Cell{nil, nil, nil, nil, num(6)}

	next := Reconcile(prev, domain.Grid{short}, false)

	require.Len(t, next[0], ColumnCount)
	assertNumber(t, 6, next[0][ColPurchaseQuantity])
	assertNumber(t, 200, next[0][ColPurchasePrice])
	assertNumber(t, 1200, next[0][ColTotal])
}

func TestReconcileMissingPreviousCellCreatesEditableCell(t *testing.T) {
	row := widgetRow()
	row[ColPurchasePrice] = nil
	prev := domain.Grid{row}

	next := Reconcile(prev, domain.Grid{edit(map[int]*domain.Cell{ColPurchasePrice: num(300)})}, false)

	require.NotNil(t, next[0][ColPurchasePrice])
	assert.False(t, next[0][ColPurchasePrice].ReadOnly)
	assertNumber(t, 1500, next[0][ColTotal])
}

func TestReconcileMissingPreviousCellTakesColumnReadOnlyRule(t *testing.T) {
	row := widgetRow()
	row[ColPurchaseQuantity] = nil
	prev := domain.Grid{row}

	incoming := num(4)
	incoming.ReadOnly = true
	next := Reconcile(prev, domain.Grid{edit(map[int]*domain.Cell{ColPurchaseQuantity: incoming})}, false)

	require.NotNil(t, next[0][ColPurchaseQuantity])
	assert.Equal(t, IsReadOnly(ColPurchaseQuantity), next[0][ColPurchaseQuantity].ReadOnly)
	assertNumber(t, 800, next[0][ColTotal])
}

func TestReconcileHugeExponentIsNotExpanded(t *testing.T) {
	prev := domain.Grid{widgetRow()}
	next := Reconcile(prev, domain.Grid{edit(map[int]*domain.Cell{ColPurchaseQuantity: str("1e50000000")})}, false)

	assertString(t, "1e50000000", next[0][ColPurchaseQuantity])
	assertNumber(t, 0, next[0][ColTotal])

	body, err := json.Marshal(next)
	require.NoError(t, err)
	assert.Less(t, len(body), 4096)
}

func TestReconcileEmptyPrevious(t *testing.T) {
	next := Reconcile(nil, domain.Grid{widgetRow()}, false)
	assert.Empty(t, next)
}

func TestReconcileDoesNotMutateInputs(t *testing.T) {
	prev := domain.Grid{widgetRow()}
	incoming := domain.Grid{edit(map[int]*domain.Cell{ColPurchaseQuantity: num(8)})}

	_ = Reconcile(prev, incoming, false)

	assertNumber(t, 5, prev[0][ColPurchaseQuantity])
	assertNumber(t, 1000, prev[0][ColTotal])
	assertString(t, "N", prev[0][ColBaselineModified])
}

func TestApplyReadOnly(t *testing.T) {
	row := widgetRow()
	for _, cell := range row {
		cell.ReadOnly = false
	}
	row[3] = nil
	grid := domain.Grid{row}

	open := ApplyReadOnly(grid, false)
	for c, cell := range open[0] {
		if cell == nil {
			continue
		}
		assert.Equal(t, IsReadOnly(c), cell.ReadOnly, "column %d", c)
	}
	assert.Nil(t, open[0][3])

	closed := ApplyReadOnly(grid, true)
	for _, cell := range closed[0] {
		if cell != nil {
			assert.True(t, cell.ReadOnly)
		}
	}
	assert.False(t, grid[0][ColSupplier].ReadOnly)
}

func TestProtectRestoresReadOnlyWithoutDeriving(t *testing.T) {
	prev := domain.Grid{widgetRow()}
	incoming := domain.Grid{widgetRow(), widgetRow()}
	incoming[0][ColSupplier] = str("B")
	incoming[0][ColPurchaseQuantity] = num(8)
	incoming[0][ColTotal] = num(1500)
	incoming[0][ColBaselineModified] = str(" y")

	next := Protect(prev, incoming)

	require.Len(t, next, 1)
	assertString(t, "A", next[0][ColSupplier])
	assertNumber(t, 8, next[0][ColPurchaseQuantity])
	assertNumber(t, 1500, next[0][ColTotal])
	assertString(t, "Y", next[0][ColBaselineModified])
}
