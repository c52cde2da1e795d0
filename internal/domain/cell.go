package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxExponent bounds the decimal exponent of a cell number. Larger literals
// such as "1e50000000" would expand to millions of digits when rendered.
const MaxExponent = 30

var ErrNumberOutOfRange = errors.New("number out of range")

// ParseDecimal parses a decimal literal and rejects exponents beyond MaxExponent.
func ParseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if exp := d.Exponent(); exp > MaxExponent || exp < -MaxExponent {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNumberOutOfRange, s)
	}
	return d, nil
}

type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueString
	ValueNumber
)

// CellValue is the scalar held by a spreadsheet cell: a string, a number or null.
// The zero value is null.
type CellValue struct {
	kind ValueKind
	str  string
	num  decimal.Decimal
}

func NullValue() CellValue {
	return CellValue{}
}

func StringValue(s string) CellValue {
	return CellValue{kind: ValueString, str: s}
}

func NumberValue(d decimal.Decimal) CellValue {
	return CellValue{kind: ValueNumber, num: d}
}

func IntValue(n int64) CellValue {
	return NumberValue(decimal.NewFromInt(n))
}

func FloatValue(f float64) CellValue {
	return NumberValue(decimal.NewFromFloat(f))
}

func (v CellValue) Kind() ValueKind {
	return v.kind
}

func (v CellValue) IsNull() bool {
	return v.kind == ValueNull
}

func (v CellValue) Str() (string, bool) {
	return v.str, v.kind == ValueString
}

func (v CellValue) Num() (decimal.Decimal, bool) {
	return v.num, v.kind == ValueNumber
}

// String renders the value the way a browser would stringify it; null renders empty.
func (v CellValue) String() string {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueNumber:
		return v.num.String()
	default:
		return ""
	}
}

func (v CellValue) Equal(other CellValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case ValueString:
		return v.str == other.str
	case ValueNumber:
		return v.num.Equal(other.num)
	default:
		return true
	}
}

func (v CellValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.str)
	case ValueNumber:
		return []byte(v.num.String()), nil
	default:
		return []byte("null"), nil
	}
}

func (v *CellValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*v = NullValue()
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case bytes.Equal(trimmed, []byte("true")) || bytes.Equal(trimmed, []byte("false")):
		*v = StringValue(string(trimmed))
	default:
		d, err := ParseDecimal(string(trimmed))
		if err != nil {
			return fmt.Errorf("cell value %s: %w", trimmed, err)
		}
		*v = NumberValue(d)
	}
	return nil
}

// Cell is one matrix position of a purchase sheet. Key is only used to check
// column ordering when a sheet is loaded.
type Cell struct {
	Value    CellValue `json:"value"`
	ReadOnly bool      `json:"readOnly,omitempty"`
	Key      string    `json:"key,omitempty"`
}

// Grid is a row-major matrix of cells. A nil cell means the position is absent.
type Grid [][]*Cell

func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	out := make(Grid, len(g))
	for r, row := range g {
		if row == nil {
			continue
		}
		cloned := make([]*Cell, len(row))
		for c, cell := range row {
			if cell == nil {
				continue
			}
			copyCell := *cell
			cloned[c] = &copyCell
		}
		out[r] = cloned
	}
	return out
}

// MaxColumns returns the longest row length in the grid.
func (g Grid) MaxColumns() int {
	maxCols := 0
	for _, row := range g {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	return maxCols
}
