package dataprocessing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// minCellGapPoints is the smallest horizontal gap treated as a cell
// boundary regardless of the page's character width.
const minCellGapPoints = 4.0

// loadPDF extracts the table from the first page of a PDF. Positioned text
// fragments are clustered into cells by horizontal gaps; when that fails the
// page text is run through the line-based reconstruction chain.
func loadPDF(path string) (*Grid, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	if reader.NumPage() < 1 {
		return nil, ErrNoTableFound
	}
	page := reader.Page(1)
	if page.V.IsNull() {
		return nil, ErrNoTableFound
	}

	textRows, err := page.GetTextByRow()
	if err != nil || len(textRows) == 0 {
		return nil, ErrNoTableFound
	}

	if rows := cellsFromTextRows(textRows); rows != nil {
		if grid, ok := gridFromRows(rows); ok {
			return grid, nil
		}
	}

	// Positional clustering failed; fall back to treating each visual row
	// as a text line and reconstructing from those.
	lines := make([]string, 0, len(textRows))
	for _, row := range textRows {
		lines = append(lines, rowText(row))
	}
	if grid, ok := reconstructFromText(lines); ok {
		return grid, nil
	}
	return nil, ErrNoTableFound
}

// cellsFromTextRows clusters each visual row's positioned fragments into
// cells, splitting where the horizontal gap clearly exceeds normal glyph
// spacing. Returns nil when the page never produces more than one cell per
// row.
func cellsFromTextRows(textRows pdf.Rows) [][]string {
	gap := cellGapThreshold(textRows)
	rows := make([][]string, 0, len(textRows))
	multiCell := false

	for _, row := range textRows {
		frags := append([]pdf.Text(nil), row.Content...)
		sort.Slice(frags, func(i, j int) bool { return frags[i].X < frags[j].X })

		var cells []string
		var cell strings.Builder
		prevEnd := 0.0
		for i, frag := range frags {
			if i > 0 && frag.X-prevEnd > gap {
				cells = append(cells, strings.TrimSpace(cell.String()))
				cell.Reset()
			}
			cell.WriteString(frag.S)
			prevEnd = frag.X + frag.W
		}
		if cell.Len() > 0 {
			cells = append(cells, strings.TrimSpace(cell.String()))
		}
		if len(cells) > 1 {
			multiCell = true
		}
		rows = append(rows, cells)
	}

	if !multiCell {
		return nil
	}
	return trimCells(rows)
}

// cellGapThreshold derives the gap that separates cells from the median
// glyph width on the page.
func cellGapThreshold(textRows pdf.Rows) float64 {
	var widths []float64
	for _, row := range textRows {
		for _, frag := range row.Content {
			if frag.W > 0 {
				widths = append(widths, frag.W/float64(max(len(frag.S), 1)))
			}
		}
	}
	if len(widths) == 0 {
		return minCellGapPoints
	}
	sort.Float64s(widths)
	gap := 2.5 * widths[len(widths)/2]
	if gap < minCellGapPoints {
		gap = minCellGapPoints
	}
	return gap
}

// rowText flattens one visual row into a plain text line, inserting spaces
// at fragment gaps.
func rowText(row *pdf.Row) string {
	frags := append([]pdf.Text(nil), row.Content...)
	sort.Slice(frags, func(i, j int) bool { return frags[i].X < frags[j].X })

	var b strings.Builder
	prevEnd := 0.0
	for i, frag := range frags {
		if i > 0 && frag.X-prevEnd > 1.0 {
			b.WriteByte(' ')
		}
		b.WriteString(frag.S)
		prevEnd = frag.X + frag.W
	}
	return b.String()
}
