package operations

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/OnlyArkMani/Flowboard/internal/dataprocessing"
)

// Process modes accepted on intake. Unrecognized modes fall back to the
// standard transform.
const (
	ModeAppendRecord = "append_record"
	ModeDeleteRecord = "delete_record"
	ModeCustomRules  = "custom_rules"
	ModeStandard     = "transform_gradebook"
)

// ProcessingPlan is the decoded, typed form of a job's process mode plus
// configuration. Decoding happens once at the boundary; the pipeline only
// sees the tagged variants.
type ProcessingPlan interface {
	// Apply mutates the grid and returns a short human-readable
	// description of what was done.
	Apply(g *dataprocessing.Grid) (string, error)
}

// AppendPlan appends records as new rows.
type AppendPlan struct {
	Records []map[string]string
}

// DeleteRule removes rows whose column equals a value (string comparison).
type DeleteRule struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// DeletePlan removes rows matching its rules; rules apply cumulatively and
// independently.
type DeletePlan struct {
	Rules []DeleteRule
}

// CustomNotesPlan makes no structural change; notes are kept for audit.
type CustomNotesPlan struct {
	Notes string
}

// StandardPlan is the default: no mutation beyond numeric coercion.
type StandardPlan struct{}

// DecodePlan turns a process mode string and free-form configuration into a
// typed plan. The mode comparison is case-insensitive; an unrecognized mode
// decodes to StandardPlan.
func DecodePlan(mode string, config json.RawMessage) (ProcessingPlan, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeAppendRecord:
		records, err := decodeRecords(config)
		if err != nil {
			return nil, fmt.Errorf("decode append_record config: %w", err)
		}
		return &AppendPlan{Records: records}, nil
	case ModeDeleteRecord:
		rules, err := decodeDeleteRules(config)
		if err != nil {
			return nil, fmt.Errorf("decode delete_record config: %w", err)
		}
		return &DeletePlan{Rules: rules}, nil
	case ModeCustomRules:
		return &CustomNotesPlan{Notes: decodeNotes(config)}, nil
	default:
		return &StandardPlan{}, nil
	}
}

// decodeRecords accepts a single record object, a list of records, or an
// object wrapping either under "records".
func decodeRecords(config json.RawMessage) ([]map[string]string, error) {
	if len(config) == 0 {
		return nil, nil
	}

	var list []map[string]any
	if err := json.Unmarshal(config, &list); err == nil {
		return stringifyRecords(list), nil
	}

	var wrapper struct {
		Records json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(config, &wrapper); err != nil {
		return nil, err
	}
	if len(wrapper.Records) > 0 {
		return decodeRecords(wrapper.Records)
	}

	var single map[string]any
	if err := json.Unmarshal(config, &single); err != nil {
		return nil, err
	}
	delete(single, "records")
	return stringifyRecords([]map[string]any{single}), nil
}

func stringifyRecords(raw []map[string]any) []map[string]string {
	out := make([]map[string]string, 0, len(raw))
	for _, rec := range raw {
		m := make(map[string]string, len(rec))
		for k, v := range rec {
			if v == nil {
				continue
			}
			m[k] = strings.TrimSpace(fmt.Sprintf("%v", v))
		}
		out = append(out, m)
	}
	return out
}

// decodeDeleteRules accepts a single {column,value} rule, a list of rules,
// or an object wrapping a list under "rules".
func decodeDeleteRules(config json.RawMessage) ([]DeleteRule, error) {
	if len(config) == 0 {
		return nil, nil
	}

	var list []DeleteRule
	if err := json.Unmarshal(config, &list); err == nil {
		return list, nil
	}

	var wrapper struct {
		Rules  []DeleteRule `json:"rules"`
		Column string       `json:"column"`
		Value  string       `json:"value"`
	}
	if err := json.Unmarshal(config, &wrapper); err != nil {
		return nil, err
	}
	if len(wrapper.Rules) > 0 {
		return wrapper.Rules, nil
	}
	if wrapper.Column != "" {
		return []DeleteRule{{Column: wrapper.Column, Value: wrapper.Value}}, nil
	}
	return nil, nil
}

func decodeNotes(config json.RawMessage) string {
	if len(config) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(config, &s); err == nil {
		return s
	}
	var wrapper struct {
		Notes string `json:"notes"`
	}
	if err := json.Unmarshal(config, &wrapper); err == nil && wrapper.Notes != "" {
		return wrapper.Notes
	}
	return ""
}

// Apply appends every valid record as a new row. A record is valid when at
// least one of its keys maps onto a grid column.
func (p *AppendPlan) Apply(g *dataprocessing.Grid) (string, error) {
	appended := 0
	for _, rec := range p.Records {
		row := make([]string, len(g.Columns))
		matched := false
		for key, value := range rec {
			idx := g.ColumnIndex(dataprocessing.NormalizeLabel(key))
			if idx < 0 {
				idx = g.ColumnIndex(key)
			}
			if idx < 0 {
				continue
			}
			row[idx] = value
			matched = true
		}
		if !matched {
			continue
		}
		g.AppendRow(row)
		appended++
	}
	if appended == 0 {
		return "Append requested but no valid rows supplied", nil
	}
	return fmt.Sprintf("Appended %d record(s)", appended), nil
}

// Apply removes rows per rule. A rule naming a missing column is a no-op
// noted in the description.
func (p *DeletePlan) Apply(g *dataprocessing.Grid) (string, error) {
	removed := 0
	var missing []string
	for _, rule := range p.Rules {
		idx := g.ColumnIndex(rule.Column)
		if idx < 0 {
			idx = g.ColumnIndex(dataprocessing.NormalizeLabel(rule.Column))
		}
		if idx < 0 {
			missing = append(missing, rule.Column)
			continue
		}
		var kept [][]string
		for _, row := range g.Rows {
			cell := ""
			if idx < len(row) {
				cell = row[idx]
			}
			if strings.TrimSpace(cell) == strings.TrimSpace(rule.Value) {
				removed++
				continue
			}
			kept = append(kept, row)
		}
		g.Rows = kept
	}

	desc := fmt.Sprintf("Removed %d row(s) across %d rule(s)", removed, len(p.Rules))
	if len(missing) > 0 {
		desc += fmt.Sprintf("; column(s) not found: %s", strings.Join(missing, ", "))
	}
	return desc, nil
}

// Apply records the notes without touching the grid.
func (p *CustomNotesPlan) Apply(_ *dataprocessing.Grid) (string, error) {
	if strings.TrimSpace(p.Notes) == "" {
		return "Custom rules noted (no notes supplied)", nil
	}
	return "Custom rules noted: " + p.Notes, nil
}

// Apply is the default no-op beyond numeric coercion.
func (p *StandardPlan) Apply(_ *dataprocessing.Grid) (string, error) {
	return "Standard transform applied", nil
}
