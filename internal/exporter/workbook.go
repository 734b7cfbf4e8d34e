package exporter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/OnlyArkMani/Flowboard/internal/dataprocessing"
)

const workbookSheet = "Report"

// WriteWorkbook renders the grid into a single-sheet Excel workbook with a
// bold header row.
func WriteWorkbook(path string, grid *dataprocessing.Grid) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(workbookSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	header := make([]interface{}, len(grid.Columns))
	for i, col := range grid.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(workbookSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil && len(grid.Columns) > 0 {
		endCell, _ := excelize.CoordinatesToCellName(len(grid.Columns), 1)
		f.SetCellStyle(workbookSheet, "A1", endCell, boldStyle)
	}

	for r, row := range grid.Rows {
		cells := make([]interface{}, len(grid.Columns))
		for i := range grid.Columns {
			if i < len(row) {
				cells[i] = row[i]
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(workbookSheet, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
