package sheet

import (
	"fmt"
	"strings"

	"settlehub/internal/domain"
)

// ValidationError reports the first offending cell of a sheet. Row and Column
// are 1-indexed for display.
type ValidationError struct {
	Row     int
	Column  int
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type namedColumn struct {
	index int
	name  string
}

var requiredColumns = []namedColumn{
	{ColPurchaseQuantity, "매입수량"},
	{ColPurchasePrice, "매입단가"},
	{ColTotal, "합계금액"},
	{ColBaselineModified, "기준매입단가수정여부"},
}

var numericColumns = requiredColumns[:3]

// Validate scans the sheet row by row and returns the first violation as a
// *ValidationError, or nil when the sheet may be committed.
func Validate(grid domain.Grid) error {
	for r, row := range grid {
		for _, col := range requiredColumns {
			if isBlank(cellAt(row, col.index)) {
				return &ValidationError{
					Row:     r + 1,
					Column:  col.index + 1,
					Message: fmt.Sprintf("%d행 %s 항목이 비어있습니다.", r+1, col.name),
				}
			}
		}

		for _, col := range numericColumns {
			n, ok := ParseNumber(cellAt(row, col.index).Value)
			if !ok || n.IsNegative() {
				return &ValidationError{
					Row:     r + 1,
					Column:  col.index + 1,
					Message: fmt.Sprintf("%d행 %s 항목은 0 이상의 숫자만 입력 가능합니다.", r+1, col.name),
				}
			}
		}

		flag := strings.ToUpper(strings.TrimSpace(truthyString(cellAt(row, ColBaselineModified).Value)))
		if flag != FlagYes && flag != FlagNo {
			return &ValidationError{
				Row:     r + 1,
				Column:  ColBaselineModified + 1,
				Message: fmt.Sprintf("%d행 기준매입단가 수정여부는 \"Y\" 또는 \"N\" 값만 입력 가능합니다.", r+1),
			}
		}
	}
	return nil
}

// Check is Validate shaped for API responses.
func Check(grid domain.Grid) domain.ValidationResult {
	err := Validate(grid)
	if err == nil {
		return domain.ValidationResult{Valid: true}
	}
	verr := err.(*ValidationError)
	return domain.ValidationResult{
		Valid:   false,
		Row:     verr.Row,
		Column:  verr.Column,
		Message: verr.Message,
	}
}

func isBlank(cell *domain.Cell) bool {
	if cell == nil || cell.Value.IsNull() {
		return true
	}
	s, ok := cell.Value.Str()
	return ok && s == ""
}

// truthyString renders a value, treating zero and null as empty text.
func truthyString(v domain.CellValue) string {
	if n, ok := v.Num(); ok && n.IsZero() {
		return ""
	}
	return v.String()
}
