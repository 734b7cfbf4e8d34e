// Package exporter renders transformed grids into the report artifacts a
// published job exposes: CSV exports, an Excel workbook and a paginated
// plain-text document.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/OnlyArkMani/Flowboard/internal/dataprocessing"
)

// CSVWriter provides CSV export functionality.
type CSVWriter struct{}

// NewCSVWriter creates a new CSV writer instance.
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

// WriteGrid writes the full grid to a CSV file, header first.
func (w *CSVWriter) WriteGrid(path string, grid *dataprocessing.Grid) error {
	records := make([][]string, 0, len(grid.Rows)+1)
	records = append(records, grid.Columns)
	for _, row := range grid.Rows {
		rec := make([]string, len(grid.Columns))
		copy(rec, row)
		records = append(records, rec)
	}
	return w.write(path, records)
}

// WriteFields writes ordered field/value pairs, used for structural
// summaries and the one-row fallback report.
func (w *CSVWriter) WriteFields(path string, pairs [][2]string) error {
	records := make([][]string, 0, len(pairs)+1)
	records = append(records, []string{"field", "value"})
	for _, pair := range pairs {
		records = append(records, []string{pair[0], pair[1]})
	}
	return w.write(path, records)
}

func (w *CSVWriter) write(path string, records [][]string) error {
	slog.Info("Writing CSV file",
		slog.String("path", path),
		slog.Int("record_count", len(records)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	writer.Flush()
	return writer.Error()
}
