package operations

import (
	"strconv"
	"strings"

	"github.com/OnlyArkMani/Flowboard/internal/dataprocessing"
)

// Numeric coercion acceptance thresholds. Tunable heuristics; the defaults
// are deliberate and should not be re-derived.
const (
	// hintedCoercionThreshold applies to columns whose label carries a
	// numeric-domain hint.
	hintedCoercionThreshold = 0.3
	// unhintedCoercionThreshold applies to every other column.
	unhintedCoercionThreshold = 0.6
)

var numericHints = []string{"score", "marks", "total", "percent", "gpa", "points"}

var identifierHints = []string{"id", "roll", "admission", "registration", "enroll"}

// hasNumericHint reports whether a normalized label names a numeric domain.
func hasNumericHint(label string) bool {
	label = dataprocessing.NormalizeLabel(label)
	for _, hint := range numericHints {
		if strings.Contains(label, hint) {
			return true
		}
	}
	return false
}

// hasIdentifierHint reports whether a normalized label suggests an
// identifier column.
func hasIdentifierHint(label string) bool {
	label = dataprocessing.NormalizeLabel(label)
	for _, hint := range identifierHints {
		if strings.Contains(label, hint) {
			return true
		}
	}
	return false
}

// parseNumeric parses a cell as a number after trimming whitespace,
// thousands separators and a percent suffix.
func parseNumeric(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// coerceNumericColumns finds the columns that should be treated as numeric
// and rewrites their cells in canonical numeric form. A column qualifies
// when enough of its non-empty values parse: 30% with a numeric name hint,
// 60% without. Identifier-looking columns are excluded unless they also
// carry a numeric hint. Returns the numeric values per qualifying column.
func coerceNumericColumns(g *dataprocessing.Grid) map[string][]float64 {
	numeric := make(map[string][]float64)
	for idx, label := range g.Columns {
		if hasIdentifierHint(label) && !hasNumericHint(label) {
			continue
		}
		threshold := unhintedCoercionThreshold
		if hasNumericHint(label) {
			threshold = hintedCoercionThreshold
		}

		nonEmpty, parsed := 0, 0
		values := make([]float64, 0, len(g.Rows))
		for _, row := range g.Rows {
			if idx >= len(row) || strings.TrimSpace(row[idx]) == "" {
				continue
			}
			nonEmpty++
			if v, ok := parseNumeric(row[idx]); ok {
				parsed++
				values = append(values, v)
			}
		}
		if nonEmpty == 0 || float64(parsed) < threshold*float64(nonEmpty) {
			continue
		}

		for _, row := range g.Rows {
			if idx >= len(row) {
				continue
			}
			if v, ok := parseNumeric(row[idx]); ok {
				row[idx] = formatNumeric(v)
			}
		}
		numeric[label] = values
	}
	return numeric
}

// formatNumeric renders a coerced value without a trailing .0 for integers.
func formatNumeric(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
