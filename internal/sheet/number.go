package sheet

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"settlehub/internal/domain"
)

var numericPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseNumber reads the leading decimal literal of a cell value the way a
// lenient spreadsheet parser does: "12kg" is 12, "abc" and null do not parse.
func ParseNumber(v domain.CellValue) (decimal.Decimal, bool) {
	if n, ok := v.Num(); ok {
		return n, true
	}
	s, ok := v.Str()
	if !ok {
		return decimal.Zero, false
	}
	literal := numericPrefix.FindString(strings.TrimLeft(s, " \t\n\r\v\f"))
	if literal == "" {
		return decimal.Zero, false
	}
	literal = strings.TrimPrefix(literal, "+")
	// "5." is accepted by the prefix rule but not by decimal.
	literal = strings.Replace(literal, ".e", "e", 1)
	literal = strings.Replace(literal, ".E", "E", 1)
	literal = strings.TrimSuffix(literal, ".")
	n, err := domain.ParseDecimal(literal)
	if err != nil {
		return decimal.Zero, false
	}
	return n, true
}

// Coerce is ParseNumber with failures absorbed as zero.
func Coerce(v domain.CellValue) decimal.Decimal {
	n, _ := ParseNumber(v)
	return n
}

func cellNumber(row []*domain.Cell, col int) decimal.Decimal {
	cell := cellAt(row, col)
	if cell == nil {
		return decimal.Zero
	}
	return Coerce(cell.Value)
}

func cellAt(row []*domain.Cell, col int) *domain.Cell {
	if col < 0 || col >= len(row) {
		return nil
	}
	return row[col]
}
