package incident

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/OnlyArkMani/Flowboard/internal/dataprocessing"
	"github.com/OnlyArkMani/Flowboard/internal/exporter"
)

// Score clipping bounds for RepairClipScore.
const (
	scoreFloor = 0.0
	scoreCeil  = 100.0
)

// repairResult reports one applied repair.
type repairResult struct {
	Action  RepairAction
	Changed bool
	NewPath string
	Note    string
}

// resolveRepairs returns the ordered repair actions for a matched failure:
// the rule's declared list when present, otherwise a keyword mapping over
// the error text. A missing-columns failure intentionally resolves to no
// repair, since inventing blank columns is not a safe fix.
func resolveRepairs(rule *KnownErrorRule, errText string) []RepairAction {
	if rule != nil && len(rule.Fix.Repairs) > 0 {
		return rule.Fix.Repairs
	}

	lower := strings.ToLower(errText)
	switch {
	case strings.Contains(lower, "no columns detected"):
		return []RepairAction{RepairPromoteHeader}
	case strings.Contains(lower, "unicode") || strings.Contains(lower, "codec can't decode"):
		return []RepairAction{RepairReEncode}
	case strings.Contains(lower, "unsupported file type"):
		return []RepairAction{RepairResaveNormalized}
	case strings.Contains(lower, "duplicate rows detected"):
		return []RepairAction{RepairDropDuplicates}
	case strings.Contains(lower, "score must be between") || strings.Contains(lower, "value out of range"):
		return []RepairAction{RepairClipScore}
	default:
		return nil
	}
}

// applyRepair executes one repair against the file at path, writing any
// changed output to a derived path rather than clobbering the original.
func applyRepair(action RepairAction, path string, attempt int) (repairResult, error) {
	result := repairResult{Action: action, NewPath: path}

	switch action {
	case RepairPromoteHeader:
		text, err := readDecoded(path)
		if err != nil {
			return result, err
		}
		grid, ok := dataprocessing.PromoteFirstRow(text)
		if !ok {
			result.Note = "no candidate header row found"
			return result, nil
		}
		newPath := derivedPath(path, attempt, ".csv")
		if err := exporter.NewCSVWriter().WriteGrid(newPath, grid); err != nil {
			return result, err
		}
		result.Changed = true
		result.NewPath = newPath
		result.Note = fmt.Sprintf("promoted first row to header (%d columns)", len(grid.Columns))

	case RepairReEncode:
		raw, err := os.ReadFile(path)
		if err != nil {
			return result, err
		}
		text, err := dataprocessing.DecodeText(raw)
		if err != nil {
			result.Note = "no candidate encoding decoded the file"
			return result, nil
		}
		newPath := derivedPath(path, attempt, filepath.Ext(path))
		if err := os.WriteFile(newPath, []byte(text), 0644); err != nil {
			return result, err
		}
		result.Changed = text != string(raw)
		result.NewPath = newPath
		result.Note = "re-encoded file as UTF-8"

	case RepairResaveNormalized:
		grid, err := dataprocessing.Load(path)
		if err != nil {
			text, readErr := readDecoded(path)
			if readErr != nil {
				return result, readErr
			}
			var ok bool
			grid, ok = dataprocessing.ReconstructText(text)
			if !ok {
				result.Note = "could not reconstruct a table from the file"
				return result, nil
			}
		}
		newPath := derivedPath(path, attempt, ".csv")
		if err := exporter.NewCSVWriter().WriteGrid(newPath, grid); err != nil {
			return result, err
		}
		result.Changed = true
		result.NewPath = newPath
		result.Note = "re-saved as a normalized CSV"

	case RepairDropDuplicates:
		grid, err := dataprocessing.Load(path)
		if err != nil {
			return result, err
		}
		removed := dropDuplicateRows(grid)
		if removed == 0 {
			result.Note = "no duplicate rows found"
			return result, nil
		}
		newPath := derivedPath(path, attempt, ".csv")
		if err := exporter.NewCSVWriter().WriteGrid(newPath, grid); err != nil {
			return result, err
		}
		result.Changed = true
		result.NewPath = newPath
		result.Note = fmt.Sprintf("dropped %d duplicate row(s)", removed)

	case RepairClipScore:
		grid, err := dataprocessing.Load(path)
		if err != nil {
			return result, err
		}
		clipped := clipScoreColumn(grid)
		if clipped == 0 {
			result.Note = "no out-of-range scores found"
			return result, nil
		}
		newPath := derivedPath(path, attempt, ".csv")
		if err := exporter.NewCSVWriter().WriteGrid(newPath, grid); err != nil {
			return result, err
		}
		result.Changed = true
		result.NewPath = newPath
		result.Note = fmt.Sprintf("clipped %d score(s) into [%g, %g]", clipped, scoreFloor, scoreCeil)

	default:
		result.Note = "unknown repair action"
	}
	return result, nil
}

func readDecoded(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return dataprocessing.DecodeText(raw)
}

// derivedPath builds the rewrite target for a repair attempt.
func derivedPath(path string, attempt int, ext string) string {
	dir := filepath.Dir(path)
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(dir, stem+"_fixed"+strconv.Itoa(attempt)+ext)
}

// dropDuplicateRows removes rows sharing a student_id with an earlier row,
// falling back to whole-row identity when the column is missing. Returns
// the number of rows removed.
func dropDuplicateRows(g *dataprocessing.Grid) int {
	idIdx := g.ColumnIndex(dataprocessing.ColumnStudentID)
	seen := make(map[string]bool, len(g.Rows))
	var kept [][]string
	removed := 0

	for _, row := range g.Rows {
		var key string
		if idIdx >= 0 && idIdx < len(row) && strings.TrimSpace(row[idIdx]) != "" {
			key = strings.ToLower(strings.TrimSpace(row[idIdx]))
		} else {
			key = strings.Join(row, "\x1f")
		}
		if seen[key] {
			removed++
			continue
		}
		seen[key] = true
		kept = append(kept, row)
	}
	g.Rows = kept
	return removed
}

// clipScoreColumn clamps the score column into the permitted range.
// Returns the number of values changed.
func clipScoreColumn(g *dataprocessing.Grid) int {
	idx := g.ColumnIndex(dataprocessing.ColumnScore)
	if idx < 0 {
		return 0
	}
	clipped := 0
	for _, row := range g.Rows {
		if idx >= len(row) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
		if err != nil {
			continue
		}
		switch {
		case v < scoreFloor:
			row[idx] = strconv.FormatFloat(scoreFloor, 'f', -1, 64)
			clipped++
		case v > scoreCeil:
			row[idx] = strconv.FormatFloat(scoreCeil, 'f', -1, 64)
			clipped++
		}
	}
	return clipped
}
