package operations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OnlyArkMani/Flowboard/internal/dataprocessing"
)

func TestCoerceNumericColumns(t *testing.T) {
	g := &dataprocessing.Grid{
		Columns: []string{"student_id", "student_name", "score"},
		Rows: [][]string{
			{"S1001", "Alice", " 92 "},
			{"S1002", "Bob", "88%"},
			{"S1003", "Cara", "1,050"},
		},
	}

	numeric := coerceNumericColumns(g)

	require.Contains(t, numeric, "score")
	assert.Equal(t, []float64{92, 88, 1050}, numeric["score"])
	assert.Equal(t, "92", g.Rows[0][2])
	assert.Equal(t, "88", g.Rows[1][2])
	assert.Equal(t, "1050", g.Rows[2][2])

	// Identifier columns are never coerced, names never qualify.
	assert.NotContains(t, numeric, "student_id")
	assert.NotContains(t, numeric, "student_name")
	assert.Equal(t, "S1001", g.Rows[0][0])
}

func TestCoerceHintedColumnUsesLowerThreshold(t *testing.T) {
	// 2 of 5 non-empty values parse (40%): enough for a hinted column,
	// not for an unhinted one.
	rows := [][]string{
		{"90", "90"},
		{"85", "85"},
		{"absent", "absent"},
		{"absent", "absent"},
		{"absent", "absent"},
	}
	g := &dataprocessing.Grid{Columns: []string{"marks", "remarks"}, Rows: rows}

	numeric := coerceNumericColumns(g)

	assert.Contains(t, numeric, "marks")
	assert.NotContains(t, numeric, "remarks")
}

func TestCoerceIdentifierExclusionYieldsToNumericHint(t *testing.T) {
	g := &dataprocessing.Grid{
		Columns: []string{"roll_no", "total_points_id"},
		Rows: [][]string{
			{"1001", "12"},
			{"1002", "15"},
		},
	}

	numeric := coerceNumericColumns(g)

	// roll_no looks like an identifier and has no numeric hint.
	assert.NotContains(t, numeric, "roll_no")
	// total_points_id carries both hints; the numeric hint wins.
	assert.Contains(t, numeric, "total_points_id")
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		input  string
		want   float64
		wantOK bool
	}{
		{input: "92", want: 92, wantOK: true},
		{input: " 92.5 ", want: 92.5, wantOK: true},
		{input: "1,234", want: 1234, wantOK: true},
		{input: "88%", want: 88, wantOK: true},
		{input: "abc", wantOK: false},
		{input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseNumeric(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
