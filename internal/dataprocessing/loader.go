package dataprocessing

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Sentinel load failures. The exact message text matters: incident
// classification matches on it downstream.
type loadError struct{ msg string }

func (e *loadError) Error() string { return e.msg }

var (
	ErrNoColumns    = &loadError{"No columns detected"}
	ErrNoRows       = &loadError{"No rows detected"}
	ErrNoTableFound = &loadError{"No table found in first PDF page"}
)

// ErrUnsupportedType builds the failure for a file extension the loader has
// no strategy for.
func ErrUnsupportedType(ext string) error {
	return &loadError{fmt.Sprintf("Unsupported file type: %s", ext)}
}

// ErrFileNotFound builds the failure for a missing source file.
func ErrFileNotFound(path string) error {
	return &loadError{fmt.Sprintf("File not found: %s", path)}
}

// delimitedExtensions maps text extensions to their preferred delimiter;
// zero means sniff.
var delimitedExtensions = map[string]rune{
	".csv": ',',
	".txt": 0,
	".tsv": '\t',
}

var spreadsheetExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
}

// SupportedExtension reports whether the loader has a strategy for ext
// (lowercased, with leading dot).
func SupportedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	if _, ok := delimitedExtensions[ext]; ok {
		return true
	}
	return spreadsheetExtensions[ext] || ext == ".pdf"
}

// Load reads a tabular file into a Grid, dispatching on extension. Column
// labels are canonicalized before the grid is returned. A grid with zero
// data rows is a valid result; emptiness is judged later in the pipeline.
func Load(path string) (*Grid, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, ErrFileNotFound(path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var (
		grid *Grid
		err  error
	)
	switch {
	case spreadsheetExtensions[ext]:
		grid, err = loadSpreadsheet(path)
	case ext == ".pdf":
		grid, err = loadPDF(path)
	default:
		if _, ok := delimitedExtensions[ext]; !ok {
			return nil, ErrUnsupportedType(ext)
		}
		grid, err = loadDelimited(path, delimitedExtensions[ext])
	}
	if err != nil {
		return nil, err
	}

	grid.Columns = CanonicalizeColumns(grid.Columns)
	return grid, nil
}

// loadDelimited reads a text file, decodes it through the encoding fallback
// chain and parses it with the given delimiter (sniffed when zero).
func loadDelimited(path string, delim rune) (*Grid, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	text, err := DecodeText(raw)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	if delim != 0 {
		rows = trimCells(parseDelimited(text, delim))
		// A mis-labelled extension still sniffs its real delimiter.
		if mostCommonRowLength(rows) <= 1 && len(rows) > 1 {
			rows = nil
		}
	}
	if rows == nil {
		rows = sniffDelimited(text)
	}
	if rows == nil {
		// Single-column files split on whitespace runs instead.
		lines := strings.Split(text, "\n")
		rows = buildCandidateRows(stitchLines(lines))
	}

	rows = dropEmptyRows(rows)
	if len(rows) == 0 {
		return nil, ErrNoColumns
	}

	grid, ok := gridFromRows(rows)
	if !ok {
		return nil, ErrNoColumns
	}
	return grid, nil
}

// loadSpreadsheet reads the first sheet that contains any cells.
func loadSpreadsheet(path string) (*Grid, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		rows = dropEmptyRows(trimCells(rows))
		if len(rows) == 0 {
			continue
		}
		grid, ok := gridFromRows(rows)
		if !ok {
			return nil, ErrNoColumns
		}
		return grid, nil
	}
	return nil, ErrNoColumns
}

// textEncodings is the decode fallback order for text files.
var textEncodings = []string{"utf-8", "utf-8-sig", "latin-1", "cp1252"}

// DecodeText decodes raw file bytes, trying UTF-8 first (with and without a
// BOM) and falling back to the common single-byte encodings. Content with
// embedded NUL bytes is rejected as binary.
func DecodeText(raw []byte) (string, error) {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		return "", fmt.Errorf("codec can't decode byte 0x00 in position %d", i)
	}

	for _, name := range textEncodings {
		switch name {
		case "utf-8":
			if utf8.Valid(raw) {
				return normalizeNewlines(string(raw)), nil
			}
		case "utf-8-sig":
			trimmed := bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
			if len(trimmed) != len(raw) && utf8.Valid(trimmed) {
				return normalizeNewlines(string(trimmed)), nil
			}
		case "latin-1":
			if decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw); err == nil {
				return normalizeNewlines(string(decoded)), nil
			}
		case "cp1252":
			if decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw); err == nil {
				return normalizeNewlines(string(decoded)), nil
			}
		}
	}
	return "", fmt.Errorf("codec can't decode file contents with any of %s", strings.Join(textEncodings, ", "))
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
