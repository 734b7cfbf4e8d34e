package dataprocessing

import (
	"regexp"
	"strings"
)

// Canonical column names the rest of the pipeline keys on.
const (
	ColumnStudentID   = "student_id"
	ColumnStudentName = "student_name"
	ColumnScore       = "score"
	ColumnClass       = "class"
	ColumnSubject     = "subject"
)

var (
	stripPunctRe = regexp.MustCompile(`[^\w\s-]+`)
	separatorRe  = regexp.MustCompile(`[\s-]+`)
)

// columnAliases maps normalized labels onto the canonical vocabulary.
var columnAliases = map[string]string{
	"studentid":       ColumnStudentID,
	"student_no":      ColumnStudentID,
	"student_number":  ColumnStudentID,
	"id":              ColumnStudentID,
	"roll":            ColumnStudentID,
	"roll_no":         ColumnStudentID,
	"rollno":          ColumnStudentID,
	"roll_number":     ColumnStudentID,
	"admission":       ColumnStudentID,
	"admission_no":    ColumnStudentID,
	"admission_number": ColumnStudentID,
	"reg_no":          ColumnStudentID,
	"registration_no": ColumnStudentID,
	"enrollment_no":   ColumnStudentID,

	"name":           ColumnStudentName,
	"full_name":      ColumnStudentName,
	"candidate_name": ColumnStudentName,

	"marks":          ColumnScore,
	"mark":           ColumnScore,
	"total":          ColumnScore,
	"total_marks":    ColumnScore,
	"obtained_marks": ColumnScore,
	"percentage":     ColumnScore,
	"percent":        ColumnScore,

	"class_name": ColumnClass,
	"standard":   ColumnClass,
	"grade":      ColumnClass,

	"course":       ColumnSubject,
	"paper":        ColumnSubject,
	"subject_name": ColumnSubject,
}

// NormalizeLabel canonicalizes a single column label: whitespace collapsed,
// lowercased, punctuation stripped (word characters and hyphens survive),
// separators converted to a single underscore, leading/trailing underscores
// trimmed.
func NormalizeLabel(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = stripPunctRe.ReplaceAllString(s, "")
	s = separatorRe.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	return s
}

// CanonicalizeColumns normalizes every label and maps known synonyms onto the
// canonical vocabulary. A rename only happens when the canonical name is not
// already present and has not been claimed by an earlier rename in the same
// pass: first match wins, no collisions. The operation is idempotent.
func CanonicalizeColumns(columns []string) []string {
	normalized := make([]string, len(columns))
	present := make(map[string]bool, len(columns))
	for i, col := range columns {
		normalized[i] = NormalizeLabel(col)
		present[normalized[i]] = true
	}

	claimed := make(map[string]bool)
	out := make([]string, len(normalized))
	for i, label := range normalized {
		canonical, ok := columnAliases[label]
		if !ok || present[canonical] || claimed[canonical] {
			out[i] = label
			continue
		}
		out[i] = canonical
		claimed[canonical] = true
	}
	return out
}
