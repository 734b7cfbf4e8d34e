package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLooksLikeIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "typical id", token: "S1023", want: true},
		{name: "hyphenated id", token: "ADM-2024-17", want: true},
		{name: "plain word", token: "Alice", want: false},
		{name: "pure number", token: "95", want: false},
		{name: "contains space", token: "S10 23", want: false},
		{name: "too long", token: "S" + "1234567890123456789012345", want: false},
		{name: "empty", token: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, looksLikeIdentifier(tt.token))
		})
	}
}

func TestStitchLines(t *testing.T) {
	lines := []string{
		"Student ID  Name  Score",
		"S1001",
		"Alice Johnson",
		"92",
		"S1002",
		"Bob Lee",
		"88",
	}

	got := stitchLines(lines)

	assert.Equal(t, []string{
		"Student ID  Name  Score",
		"S1001  Alice Johnson  92",
		"S1002  Bob Lee  88",
	}, got)
}

func TestStitchLinesSkipsBlankLines(t *testing.T) {
	got := stitchLines([]string{"", "S1001", "", "Alice", "  "})
	assert.Equal(t, []string{"S1001  Alice"}, got)
}

func TestScoreHeaderRow(t *testing.T) {
	tests := []struct {
		name      string
		cells     []string
		wantScore int
		wantHits  int
	}{
		{
			name:      "keyword heavy header",
			cells:     []string{"Student ID", "Name", "Score"},
			wantScore: 3*3 + 3,
			wantHits:  3,
		},
		{
			name:      "numeric data row",
			cells:     []string{"S1001", "Alice", "92"},
			wantScore: 2 - 2,
			wantHits:  0,
		},
		{
			name:      "empty cells ignored",
			cells:     []string{"", "Name", ""},
			wantScore: 3 + 1,
			wantHits:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, hits := scoreHeaderRow(tt.cells)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantHits, hits)
		})
	}
}

func TestSelectHeaderPromotesBuriedHeader(t *testing.T) {
	rows := [][]string{
		{"Annual Results 2024"},
		{"Student ID", "Name", "Score"},
		{"S1001", "Alice", "92"},
	}
	assert.Equal(t, 1, selectHeader(rows))
}

func TestSelectHeaderKeepsFirstRowWithoutClearWinner(t *testing.T) {
	rows := [][]string{
		{"alpha", "beta", "gamma"},
		{"delta", "epsilon", "zeta"},
	}
	assert.Equal(t, 0, selectHeader(rows))
}

func TestAlignRow(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		width  int
		want   []string
	}{
		{
			name:   "pads short rows",
			tokens: []string{"S1001", "Alice"},
			width:  4,
			want:   []string{"S1001", "Alice", "", ""},
		},
		{
			name:   "merges split name",
			tokens: []string{"S1001", "Alice", "Johnson", "10A", "92"},
			width:  4,
			want:   []string{"S1001", "Alice Johnson", "10A", "92"},
		},
		{
			name:   "moves stray identifier to front",
			tokens: []string{"Alice", "S1001", "92"},
			width:  3,
			want:   []string{"S1001", "Alice", "92"},
		},
		{
			name:   "exact width untouched",
			tokens: []string{"S1001", "Alice", "92"},
			width:  3,
			want:   []string{"S1001", "Alice", "92"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, alignRow(tt.tokens, tt.width))
		})
	}
}

func TestReconcileRowsPure(t *testing.T) {
	header := []string{"Student ID", "Name", "Score"}
	rows := [][]string{
		{"S1001", "Alice", "Johnson", "92"},
		{"S1002", "Bob", "88"},
	}
	headerCopy := append([]string(nil), header...)

	outHeader, outRows, ok := reconcileRows(header, rows)

	require.True(t, ok)
	assert.Equal(t, headerCopy, header, "input header must not be mutated")
	assert.Equal(t, []string{"Student ID", "Name", "Score"}, outHeader)
	assert.Equal(t, [][]string{
		{"S1001", "Alice Johnson", "92"},
		{"S1002", "Bob", "88"},
	}, outRows)
}

func TestReconcileRowsRejectsDivergentTokenization(t *testing.T) {
	header := []string{"a", "b", "c"}
	rows := [][]string{
		{"1", "2", "3", "4", "5", "6", "7"},
		{"1", "2", "3", "4", "5", "6", "7", "8"},
	}
	_, _, ok := reconcileRows(header, rows)
	assert.False(t, ok)
}

func TestSniffDelimited(t *testing.T) {
	tests := []struct {
		name string
		text string
		want [][]string
	}{
		{
			name: "semicolon",
			text: "a;b;c\n1;2;3",
			want: [][]string{{"a", "b", "c"}, {"1", "2", "3"}},
		},
		{
			name: "pipe",
			text: "a|b\n1|2",
			want: [][]string{{"a", "b"}, {"1", "2"}},
		},
		{
			name: "no delimiter",
			text: "plain text only\nmore text",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sniffDelimited(tt.text))
		})
	}
}

func TestInferFixedWidth(t *testing.T) {
	lines := []string{
		"Student    Name       Score",
		"S1001      Alice      92",
		"S1002      Bob        88",
	}

	rows := inferFixedWidth(lines)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Student", "Name", "Score"}, rows[0])
	assert.Equal(t, []string{"S1001", "Alice", "92"}, rows[1])
}

func TestDropSparseColumns(t *testing.T) {
	g := &Grid{
		Columns: []string{"student_id", "column_2", "score"},
		Rows: [][]string{
			{"S1", "", "90"},
			{"S2", "", "85"},
			{"S3", "", "70"},
			{"S4", "", "65"},
			{"S5", "", "88"},
			{"S6", "", "91"},
			{"S7", "x", "77"},
		},
	}

	dropSparseColumns(g)

	assert.Equal(t, []string{"student_id", "score"}, g.Columns)
	assert.Equal(t, []string{"S1", "90"}, g.Rows[0])
}

func TestDropSparseColumnsKeepsNamedColumns(t *testing.T) {
	g := &Grid{
		Columns: []string{"student_id", "remarks"},
		Rows: [][]string{
			{"S1", ""},
			{"S2", ""},
		},
	}

	dropSparseColumns(g)

	assert.Equal(t, []string{"student_id", "remarks"}, g.Columns)
}

func TestGridFromRowsHeaderOnly(t *testing.T) {
	grid, ok := gridFromRows([][]string{{"Student ID", "Name", "Score"}})

	require.True(t, ok)
	assert.Equal(t, []string{"Student ID", "Name", "Score"}, grid.Columns)
	assert.Empty(t, grid.Rows)
}
