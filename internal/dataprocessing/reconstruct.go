package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Heuristic constants for header selection and column coercion. The values
// are deliberate tuning points, not derived quantities.
const (
	// headerScoreMargin is how much a candidate row must beat the nominal
	// first row by before it is promoted to header.
	headerScoreMargin = 2
	// headerCandidateRows bounds how deep the header search looks.
	headerCandidateRows = 5
	// sparseColumnMinDensity is the non-empty cell density below which an
	// auto-generated column is treated as reconstruction noise.
	sparseColumnMinDensity = 0.15
)

// headerKeywords is the domain vocabulary used to score header candidates.
var headerKeywords = map[string]bool{
	"student": true, "id": true, "roll": true, "admission": true,
	"name": true, "score": true, "marks": true, "grade": true,
	"percent": true, "subject": true, "class": true, "section": true,
	"course": true,
}

var (
	identifierRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9/_-]*$`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
	tokenSplitRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// looksLikeIdentifier reports whether a token resembles a bare row
// identifier: starts with letters, contains a digit, no embedded whitespace,
// and short enough to be an ID rather than prose.
func looksLikeIdentifier(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" || len(token) > 20 {
		return false
	}
	if strings.ContainsAny(token, " \t") {
		return false
	}
	if !identifierRe.MatchString(token) {
		return false
	}
	return strings.ContainsAny(token, "0123456789")
}

// looksNumeric reports whether a cell parses as a number after stripping
// thousands separators and percent signs.
func looksNumeric(cell string) bool {
	s := strings.TrimSpace(cell)
	if s == "" {
		return false
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// stitchLines groups raw text lines into one logical line per identifier:
// a line that is a bare ID-like token absorbs every following non-identifier
// line until the next identifier line. Lines seen before the first
// identifier (typically the header) pass through untouched.
func stitchLines(lines []string) []string {
	var out []string
	var current *strings.Builder

	flush := func() {
		if current != nil {
			out = append(out, current.String())
			current = nil
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if looksLikeIdentifier(line) {
			flush()
			current = &strings.Builder{}
			current.WriteString(line)
			continue
		}
		if current != nil {
			current.WriteString("  ")
			current.WriteString(line)
			continue
		}
		out = append(out, line)
	}
	flush()
	return out
}

// buildCandidateRows turns stitched lines into token rows. When most lines
// contain commas the block is parsed as CSV; otherwise each line is split on
// runs of two or more spaces, falling back to single-whitespace tokenization
// when that yields at most one column.
func buildCandidateRows(lines []string) [][]string {
	if len(lines) == 0 {
		return nil
	}

	withCommas := 0
	for _, line := range lines {
		if strings.Contains(line, ",") {
			withCommas++
		}
	}
	if withCommas*2 > len(lines) {
		reader := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true
		if records, err := reader.ReadAll(); err == nil && len(records) > 0 {
			return trimCells(records)
		}
	}

	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		tokens := multiSpaceRe.Split(line, -1)
		if len(tokens) <= 1 {
			tokens = strings.Fields(line)
		}
		rows = append(rows, tokens)
	}
	return trimCells(rows)
}

// sniffDelimited tries the delimiters comma, semicolon, pipe and tab in
// order, then falls back to whichever splits the text into the most columns.
// It returns nil when no delimiter produces at least two columns.
func sniffDelimited(text string) [][]string {
	candidates := []rune{',', ';', '|', '\t'}
	var best [][]string
	bestWidth := 1

	for _, delim := range candidates {
		rows := parseDelimited(text, delim)
		if rows == nil {
			continue
		}
		width := mostCommonRowLength(rows)
		if width > 1 && best == nil {
			return trimCells(rows)
		}
		if width > bestWidth {
			best, bestWidth = rows, width
		}
	}
	if best != nil {
		return trimCells(best)
	}
	return nil
}

// parseDelimited parses text with a fixed delimiter, tolerating ragged rows.
func parseDelimited(text string, delim rune) [][]string {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil || len(rows) == 0 {
		return nil
	}
	return rows
}

// inferFixedWidth splits lines at character columns that are blank across
// (almost) every non-empty line. It returns nil when no column boundaries
// can be found.
func inferFixedWidth(lines []string) [][]string {
	var nonEmpty []string
	maxLen := 0
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " ")
		if strings.TrimSpace(trimmed) == "" {
			continue
		}
		nonEmpty = append(nonEmpty, trimmed)
		if len(trimmed) > maxLen {
			maxLen = len(trimmed)
		}
	}
	if len(nonEmpty) < 2 || maxLen == 0 {
		return nil
	}

	// A position is a separator when it is a space in at least 90% of lines.
	blankCount := make([]int, maxLen)
	for _, line := range nonEmpty {
		for i := 0; i < maxLen; i++ {
			if i >= len(line) || line[i] == ' ' {
				blankCount[i]++
			}
		}
	}
	threshold := (len(nonEmpty)*9 + 9) / 10

	var boundaries [][2]int // [start,end) of content segments
	inSegment := false
	start := 0
	for i := 0; i < maxLen; i++ {
		blank := blankCount[i] >= threshold
		if !blank && !inSegment {
			inSegment = true
			start = i
		}
		if blank && inSegment {
			inSegment = false
			boundaries = append(boundaries, [2]int{start, i})
		}
	}
	if inSegment {
		boundaries = append(boundaries, [2]int{start, maxLen})
	}
	if len(boundaries) < 2 {
		return nil
	}

	rows := make([][]string, 0, len(nonEmpty))
	for _, line := range nonEmpty {
		row := make([]string, len(boundaries))
		for i, b := range boundaries {
			start, end := b[0], b[1]
			if start >= len(line) {
				row[i] = ""
				continue
			}
			if end > len(line) {
				end = len(line)
			}
			row[i] = strings.TrimSpace(line[start:end])
		}
		rows = append(rows, row)
	}
	return rows
}

// scoreHeaderRow scores a header candidate: three points per domain keyword
// hit, one per alphabetic cell, minus two per numeric cell.
func scoreHeaderRow(cells []string) (score, keywordHits int) {
	alpha, numeric := 0, 0
	for _, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if looksNumeric(cell) {
			numeric++
			continue
		}
		hasLetter := strings.IndexFunc(cell, func(r rune) bool {
			return r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z'
		}) >= 0
		if hasLetter {
			alpha++
		}
		hit := false
		for _, token := range tokenSplitRe.Split(strings.ToLower(cell), -1) {
			if headerKeywords[token] {
				hit = true
				break
			}
		}
		if hit {
			keywordHits++
		}
	}
	return 3*keywordHits + alpha - 2*numeric, keywordHits
}

// selectHeader picks the header row among the first candidates. A non-first
// row only wins when its score beats the nominal header by the configured
// margin.
func selectHeader(rows [][]string) int {
	if len(rows) == 0 {
		return 0
	}
	nominalScore, _ := scoreHeaderRow(rows[0])
	bestIdx, bestScore := 0, nominalScore
	limit := headerCandidateRows
	if limit > len(rows) {
		limit = len(rows)
	}
	for i := 1; i < limit; i++ {
		score, _ := scoreHeaderRow(rows[i])
		if score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx != 0 && bestScore-nominalScore < headerScoreMargin {
		return 0
	}
	return bestIdx
}

// alignRow reshapes a token row to the expected width. A misplaced ID-like
// token is moved to position 0; oversized rows shrink by merging adjacent
// tokens that are not both numeric (protecting the first token and the last
// two while more than two tokens remain); undersized rows are padded.
func alignRow(tokens []string, width int) []string {
	if width <= 0 {
		return tokens
	}
	out := append([]string(nil), tokens...)

	// Move a stray identifier to the front.
	if len(out) > 1 && !looksLikeIdentifier(out[0]) {
		for i := 1; i < len(out); i++ {
			if looksLikeIdentifier(out[i]) {
				id := out[i]
				copy(out[1:i+1], out[0:i])
				out[0] = id
				break
			}
		}
	}

	for len(out) > width {
		idx := pickMergeIndex(out)
		out[idx] = out[idx] + " " + out[idx+1]
		out = append(out[:idx+1], out[idx+2:]...)
	}

	for len(out) < width {
		out = append(out, "")
	}
	return out
}

// pickMergeIndex chooses which adjacent token pair to merge when shrinking a
// row. The first token and the last two are protected while alternatives
// remain, and pairs with fewer numeric members win; ties go to the earliest
// pair, which keeps split names merging left to right.
func pickMergeIndex(tokens []string) int {
	numericCost := func(i int) int {
		cost := 0
		if looksNumeric(tokens[i]) {
			cost++
		}
		if looksNumeric(tokens[i+1]) {
			cost++
		}
		return cost
	}
	bestIn := func(lo, hi int) int {
		best, bestCost := -1, 3
		for i := lo; i <= hi && i < len(tokens)-1; i++ {
			if cost := numericCost(i); cost < bestCost {
				best, bestCost = i, cost
			}
		}
		return best
	}

	// Pairs clear of the first token and the last two, then pairs clear of
	// the first and last, then anything.
	if i := bestIn(1, len(tokens)-4); i >= 0 {
		return i
	}
	if i := bestIn(1, len(tokens)-3); i >= 0 {
		return i
	}
	if i := bestIn(0, len(tokens)-2); i >= 0 {
		return i
	}
	return len(tokens) / 2
}

// reconcileRows aligns data rows against the chosen header. When the header
// width disagrees with the dominant data width by more than two columns and
// the header is not keyword-confident, the data width wins. The ok result is
// false when the evidence is too thin to trust the reconciliation.
func reconcileRows(header []string, rows [][]string) (outHeader []string, outRows [][]string, ok bool) {
	score, keywordHits := scoreHeaderRow(header)
	expected := len(header)
	common := mostCommonRowLength(rows)
	if common <= 1 {
		// Single-token rows under a wide header mean the tokenization failed;
		// let the caller try the next strategy.
		if len(header) > 1 {
			return header, rows, false
		}
		return header, rows, true
	}

	diff := expected - common
	if diff < 0 {
		diff = -diff
	}
	headerConfident := keywordHits >= 2 || score >= 2
	if diff > 2 && !headerConfident {
		expected = common
	}

	// Too many wildly divergent rows means the tokenization is wrong and
	// merging would only manufacture data.
	divergent := 0
	for _, row := range rows {
		d := len(row) - expected
		if d < 0 {
			d = -d
		}
		if d > 2 {
			divergent++
		}
	}
	if divergent*2 > len(rows) {
		return header, rows, false
	}

	outHeader = alignRow(header, expected)
	outRows = make([][]string, len(rows))
	for i, row := range rows {
		outRows[i] = alignRow(row, expected)
	}
	return outHeader, outRows, true
}

// gridFromRows builds a Grid out of candidate rows: header selection, row
// reconciliation and auto-naming of blank header cells.
func gridFromRows(rows [][]string) (*Grid, bool) {
	rows = dropEmptyRows(rows)
	if len(rows) == 0 {
		return nil, false
	}

	headerIdx := selectHeader(rows)
	header := rows[headerIdx]
	// Rows above a promoted header are page furniture, not data.
	data := append([][]string(nil), rows[headerIdx+1:]...)

	// A header with no data rows is still a valid table shape; row emptiness
	// is judged by the validation stage, not here.
	if len(data) > 0 {
		var ok bool
		header, data, ok = reconcileRows(header, data)
		if !ok {
			return nil, false
		}
	}

	grid := &Grid{Columns: nameColumns(header), Rows: data}
	dropSparseColumns(grid)
	if len(grid.Columns) == 0 {
		return nil, false
	}
	return grid, true
}

// nameColumns fills blank or duplicate-blank header cells with generated
// column_N labels.
func nameColumns(header []string) []string {
	out := make([]string, len(header))
	for i, cell := range header {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			cell = fmt.Sprintf("column_%d", i+1)
		}
		out[i] = cell
	}
	return out
}

// dropSparseColumns removes auto-generated column_N columns whose non-empty
// cell density is below the noise threshold.
func dropSparseColumns(g *Grid) {
	if len(g.Rows) == 0 {
		return
	}
	keep := make([]bool, len(g.Columns))
	for i, col := range g.Columns {
		if !strings.HasPrefix(col, "column_") {
			keep[i] = true
			continue
		}
		nonEmpty := 0
		for r := range g.Rows {
			if strings.TrimSpace(g.Cell(r, i)) != "" {
				nonEmpty++
			}
		}
		keep[i] = float64(nonEmpty) >= sparseColumnMinDensity*float64(len(g.Rows))
	}

	var columns []string
	for i, col := range g.Columns {
		if keep[i] {
			columns = append(columns, col)
		}
	}
	if len(columns) == len(g.Columns) {
		return
	}
	rows := make([][]string, len(g.Rows))
	for r, row := range g.Rows {
		var next []string
		for i := range g.Columns {
			if keep[i] {
				cell := ""
				if i < len(row) {
					cell = row[i]
				}
				next = append(next, cell)
			}
		}
		rows[r] = next
	}
	g.Columns = columns
	g.Rows = rows
}

// dropEmptyRows removes rows whose cells are all blank.
func dropEmptyRows(rows [][]string) [][]string {
	var out [][]string
	for _, row := range rows {
		empty := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out
}

// trimCells trims surrounding whitespace from every cell.
func trimCells(rows [][]string) [][]string {
	for _, row := range rows {
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
	}
	return rows
}

// ReconstructText runs the full line-based reconstruction chain over raw
// text and returns the resulting grid, if one can be formed.
func ReconstructText(text string) (*Grid, bool) {
	grid, ok := reconstructFromText(strings.Split(text, "\n"))
	if ok {
		grid.Columns = CanonicalizeColumns(grid.Columns)
	}
	return grid, ok
}

// PromoteFirstRow builds a grid that takes the first candidate row as the
// header unconditionally, bypassing header scoring. Used by remediation
// when normal loading found no columns.
func PromoteFirstRow(text string) (*Grid, bool) {
	rows := dropEmptyRows(buildCandidateRows(stitchLines(strings.Split(text, "\n"))))
	if len(rows) == 0 {
		return nil, false
	}
	grid := &Grid{Columns: CanonicalizeColumns(nameColumns(rows[0]))}
	for _, row := range rows[1:] {
		grid.AppendRow(row)
	}
	return grid, true
}

// reconstructFromText is the text-based fallback chain: stitch, tokenize,
// then delimiter sniffing and fixed-width inference over the raw block.
func reconstructFromText(lines []string) (*Grid, bool) {
	stitched := stitchLines(lines)
	if rows := buildCandidateRows(stitched); rows != nil {
		if grid, ok := gridFromRows(rows); ok {
			return grid, true
		}
	}

	text := strings.Join(stitched, "\n")
	if rows := sniffDelimited(text); rows != nil {
		if grid, ok := gridFromRows(rows); ok {
			return grid, true
		}
	}

	if rows := inferFixedWidth(stitched); rows != nil {
		if grid, ok := gridFromRows(rows); ok {
			return grid, true
		}
	}
	return nil, false
}
