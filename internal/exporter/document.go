package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OnlyArkMani/Flowboard/internal/dataprocessing"
)

const (
	documentRowsPerPage = 40
	documentMaxColWidth = 28
)

// DocumentOptions configures the rendered report document.
type DocumentOptions struct {
	Title     string
	MetaLines []string
}

// WriteDocument renders the grid as a paginated plain-text report: title and
// meta lines, a padded column header repeated per page, the row grid, and a
// page footer.
func WriteDocument(path string, grid *dataprocessing.Grid, opts DocumentOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	widths := columnWidths(grid)
	pages := (len(grid.Rows) + documentRowsPerPage - 1) / documentRowsPerPage
	if pages == 0 {
		pages = 1
	}

	var b strings.Builder
	for page := 0; page < pages; page++ {
		if page > 0 {
			b.WriteString("\f")
		}
		b.WriteString(opts.Title)
		b.WriteString("\n")
		b.WriteString(strings.Repeat("=", max(len(opts.Title), 1)))
		b.WriteString("\n")
		for _, meta := range opts.MetaLines {
			b.WriteString(meta)
			b.WriteString("\n")
		}
		b.WriteString("\n")

		writePaddedRow(&b, grid.Columns, widths)
		divider := make([]string, len(widths))
		for i, w := range widths {
			divider[i] = strings.Repeat("-", w)
		}
		writePaddedRow(&b, divider, widths)

		start := page * documentRowsPerPage
		end := min(start+documentRowsPerPage, len(grid.Rows))
		for _, row := range grid.Rows[start:end] {
			writePaddedRow(&b, row, widths)
		}

		b.WriteString(fmt.Sprintf("\nPage %d of %d\n", page+1, pages))
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

func columnWidths(grid *dataprocessing.Grid) []int {
	widths := make([]int, len(grid.Columns))
	for i, col := range grid.Columns {
		widths[i] = min(len(col), documentMaxColWidth)
	}
	for _, row := range grid.Rows {
		for i := range widths {
			if i < len(row) && len(row[i]) > widths[i] {
				widths[i] = min(len(row[i]), documentMaxColWidth)
			}
		}
	}
	return widths
}

func writePaddedRow(b *strings.Builder, cells []string, widths []int) {
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		if len(cell) > w {
			runes := []rune(cell)
			if len(runes) > w {
				cell = string(runes[:w])
			}
		}
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(cell)
		if pad := w - len(cell); pad > 0 && i < len(widths)-1 {
			b.WriteString(strings.Repeat(" ", pad))
		}
	}
	b.WriteString("\n")
}
