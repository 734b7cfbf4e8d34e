package operations

import (
	"math"
	"strings"
	"time"

	"github.com/OnlyArkMani/Flowboard/internal/dataprocessing"
)

// buildSummary computes the structural summary of a transformed grid.
func buildSummary(g *dataprocessing.Grid, numeric map[string][]float64, planNote string) *RunSummary {
	summary := &RunSummary{
		RowCount:        len(g.Rows),
		ColumnCount:     len(g.Columns),
		Columns:         append([]string(nil), g.Columns...),
		MissingCellRate: finiteOrNil(missingCellRate(g)),
		DuplicateRows:   duplicateRowCount(g),
		PlanApplied:     planNote,
		GeneratedAt:     time.Now().UTC(),
	}

	if len(numeric) > 0 {
		summary.NumericColumns = make(map[string]NumericColumnSummary, len(numeric))
		for col, values := range numeric {
			summary.NumericColumns[col] = describeColumn(values)
		}
	}
	return summary
}

func missingCellRate(g *dataprocessing.Grid) float64 {
	total := len(g.Rows) * len(g.Columns)
	if total == 0 {
		return 0
	}
	missing := 0
	for _, row := range g.Rows {
		for i := range g.Columns {
			if i >= len(row) || strings.TrimSpace(row[i]) == "" {
				missing++
			}
		}
	}
	return float64(missing) / float64(total)
}

// duplicateRowCount counts rows beyond the first occurrence of an identical
// cell sequence.
func duplicateRowCount(g *dataprocessing.Grid) int {
	seen := make(map[string]bool, len(g.Rows))
	dups := 0
	for _, row := range g.Rows {
		key := strings.Join(row, "\x1f")
		if seen[key] {
			dups++
			continue
		}
		seen[key] = true
	}
	return dups
}

func describeColumn(values []float64) NumericColumnSummary {
	out := NumericColumnSummary{Count: len(values)}
	if len(values) == 0 {
		return out
	}

	sum, minV, maxV := 0.0, values[0], values[0]
	for _, v := range values {
		sum += v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(values)))

	out.Mean = finiteOrNil(mean)
	out.Min = finiteOrNil(minV)
	out.Max = finiteOrNil(maxV)
	out.Std = finiteOrNil(std)
	return out
}

// finiteOrNil keeps the summary JSON-safe: non-finite values become null.
func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
