package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellValueJSONRoundTrip(t *testing.T) {
	var row []CellValue
	require.NoError(t, json.Unmarshal([]byte(`["대파", 1200, 1.5e3, null, true]`), &row))

	require.Len(t, row, 5)
	assert.Equal(t, "대파", row[0].String())
	n, ok := row[2].Num()
	require.True(t, ok)
	assert.Equal(t, "1500", n.String())
	assert.True(t, row[3].IsNull())
	assert.Equal(t, "true", row[4].String())

	body, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `["대파", 1200, 1500, null, "true"]`, string(body))
}

func TestCellValueRejectsHugeExponent(t *testing.T) {
	for _, in := range []string{`1e50000000`, `1e-40`, `-3E31`} {
		var v CellValue
		err := json.Unmarshal([]byte(in), &v)
		assert.ErrorIs(t, err, ErrNumberOutOfRange, "input %s", in)
	}

	var v CellValue
	require.NoError(t, json.Unmarshal([]byte(`1e30`), &v))
	n, ok := v.Num()
	require.True(t, ok)
	assert.Len(t, n.String(), 31)
}

func TestParseDecimal(t *testing.T) {
	d, err := ParseDecimal("0.25")
	require.NoError(t, err)
	assert.Equal(t, "0.25", d.String())

	_, err = ParseDecimal("12kg")
	assert.Error(t, err)

	_, err = ParseDecimal("9e999")
	assert.ErrorIs(t, err, ErrNumberOutOfRange)
}
