package dataprocessing

import (
	"strings"
)

// Grid is the uniform row/column representation every loader produces.
// Columns are ordered labels; every row is an ordered sequence of string
// cells. Cell typing (numeric coercion etc.) happens downstream.
type Grid struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the index of the named column using case-insensitive
// comparison, or -1 when the column is not present.
func (g *Grid) ColumnIndex(name string) int {
	for i, col := range g.Columns {
		if strings.EqualFold(strings.TrimSpace(col), strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}

// Cell returns the cell at (row, col), or "" when the row is shorter than
// the column count.
func (g *Grid) Cell(row, col int) string {
	if row < 0 || row >= len(g.Rows) {
		return ""
	}
	r := g.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Column returns all cell values of one column in row order. Rows shorter
// than the column index contribute "".
func (g *Grid) Column(col int) []string {
	values := make([]string, len(g.Rows))
	for i := range g.Rows {
		values[i] = g.Cell(i, col)
	}
	return values
}

// AppendRow appends a row, padding or truncating it to the column count.
func (g *Grid) AppendRow(row []string) {
	g.Rows = append(g.Rows, padRow(row, len(g.Columns)))
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	clone := &Grid{
		Columns: append([]string(nil), g.Columns...),
		Rows:    make([][]string, len(g.Rows)),
	}
	for i, row := range g.Rows {
		clone.Rows[i] = append([]string(nil), row...)
	}
	return clone
}

// padRow pads or truncates a row to the given width.
func padRow(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

// mostCommonRowLength returns the most frequent row length, preferring the
// larger length on ties. Zero when there are no rows.
func mostCommonRowLength(rows [][]string) int {
	counts := make(map[int]int)
	for _, row := range rows {
		counts[len(row)]++
	}
	best, bestCount := 0, 0
	for length, count := range counts {
		if count > bestCount || (count == bestCount && length > best) {
			best, bestCount = length, count
		}
	}
	return best
}
