package sheet

import (
	"fmt"

	"settlehub/internal/domain"
)

// KeyMismatchError means a loaded sheet's columns are not in the expected
// order. Row and Column are 1-indexed.
type KeyMismatchError struct {
	Row      int
	Column   int
	Expected string
	Actual   string
}

func (e *KeyMismatchError) Error() string {
	return fmt.Sprintf("%d행 %d열 컬럼 키가 예상(%s)과 다릅니다: %s", e.Row, e.Column, e.Expected, e.Actual)
}

// CheckColumnKeys compares every present cell key with ExpectedKeys and
// stops at the first mismatch. Cells without a key are not checked.
func CheckColumnKeys(grid domain.Grid) error {
	for r, row := range grid {
		for c, expected := range ExpectedKeys {
			cell := cellAt(row, c)
			if cell == nil || cell.Key == "" {
				continue
			}
			if cell.Key != expected {
				return &KeyMismatchError{Row: r + 1, Column: c + 1, Expected: expected, Actual: cell.Key}
			}
		}
	}
	return nil
}
