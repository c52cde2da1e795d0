package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settlehub/internal/domain"
)

func summaryRow(supplier, productID string, total *domain.Cell) []*domain.Cell {
	row := widgetRow()
	row[ColSupplier] = str(supplier)
	row[ColProductID] = str(productID)
	row[ColTotal] = total
	return row
}

func TestSummarizeCarriesSupplierForward(t *testing.T) {
	grid := domain.Grid{
		summaryRow("농협", "P1", num(1000)),
		summaryRow("", "P2", num(500)),
		summaryRow("", "P1", num(250)),
		summaryRow("청과", "P9", str("700")),
		summaryRow("", "P8", num(0)),
		summaryRow("", "", num(300)),
	}

	got := Summarize(grid)

	require.Len(t, got, 2)
	assert.Equal(t, "농협", got[0].Supplier)
	assert.Equal(t, "1750", got[0].Total.String())
	assert.Equal(t, 2, got[0].ProductCount)
	assert.Equal(t, "청과", got[1].Supplier)
	assert.Equal(t, "1000", got[1].Total.String())
	assert.Equal(t, 1, got[1].ProductCount)
}

func TestSummarizeSkipsLeadingBlankSupplier(t *testing.T) {
	grid := domain.Grid{
		summaryRow("", "P1", num(1000)),
		summaryRow("", "P2", num(500)),
		summaryRow("A", "P3", num(100)),
	}

	got := Summarize(grid)

	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Supplier)
	assert.Equal(t, "100", got[0].Total.String())
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Empty(t, Summarize(nil))
}
