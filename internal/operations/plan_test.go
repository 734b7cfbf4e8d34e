package operations

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OnlyArkMani/Flowboard/internal/dataprocessing"
)

func testGrid() *dataprocessing.Grid {
	return &dataprocessing.Grid{
		Columns: []string{"student_id", "student_name", "score"},
		Rows: [][]string{
			{"S1001", "Alice", "92"},
			{"S1002", "Bob", "88"},
			{"S1003", "Cara", "75"},
		},
	}
}

func TestDecodePlanModes(t *testing.T) {
	tests := []struct {
		name string
		mode string
		want any
	}{
		{name: "standard", mode: "transform_gradebook", want: &StandardPlan{}},
		{name: "unrecognized falls back to standard", mode: "whatever", want: &StandardPlan{}},
		{name: "case insensitive", mode: "APPEND_RECORD", want: &AppendPlan{}},
		{name: "custom rules", mode: "custom_rules", want: &CustomNotesPlan{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := DecodePlan(tt.mode, nil)
			require.NoError(t, err)
			assert.IsType(t, tt.want, plan)
		})
	}
}

func TestAppendPlanApply(t *testing.T) {
	g := testGrid()
	plan, err := DecodePlan("append_record", json.RawMessage(`{
		"records": [
			{"student_id": "S1004", "Score": 81, "student_name": "Dio"},
			{"unrelated": "x"}
		]
	}`))
	require.NoError(t, err)

	desc, err := plan.Apply(g)

	require.NoError(t, err)
	assert.Equal(t, "Appended 1 record(s)", desc)
	require.Len(t, g.Rows, 4)
	assert.Equal(t, []string{"S1004", "Dio", "81"}, g.Rows[3])
}

func TestAppendPlanSingleRecord(t *testing.T) {
	g := testGrid()
	plan, err := DecodePlan("append_record", json.RawMessage(`{"student_id": "S1004", "score": "50"}`))
	require.NoError(t, err)

	desc, err := plan.Apply(g)

	require.NoError(t, err)
	assert.Equal(t, "Appended 1 record(s)", desc)
	assert.Len(t, g.Rows, 4)
}

func TestAppendPlanNoValidRows(t *testing.T) {
	g := testGrid()
	plan := &AppendPlan{Records: []map[string]string{{"nope": "1"}}}

	desc, err := plan.Apply(g)

	require.NoError(t, err)
	assert.Equal(t, "Append requested but no valid rows supplied", desc)
	assert.Len(t, g.Rows, 3)
}

func TestDeletePlanApply(t *testing.T) {
	g := testGrid()
	plan, err := DecodePlan("delete_record", json.RawMessage(`{"column": "student_id", "value": "S1002"}`))
	require.NoError(t, err)

	desc, err := plan.Apply(g)

	require.NoError(t, err)
	assert.Equal(t, "Removed 1 row(s) across 1 rule(s)", desc)
	require.Len(t, g.Rows, 2)
	assert.Equal(t, "S1001", g.Rows[0][0])
	assert.Equal(t, "S1003", g.Rows[1][0])
}

func TestDeletePlanMultipleRulesApplyIndependently(t *testing.T) {
	g := testGrid()
	plan := &DeletePlan{Rules: []DeleteRule{
		{Column: "student_id", Value: "S1001"},
		{Column: "score", Value: "75"},
	}}

	desc, err := plan.Apply(g)

	require.NoError(t, err)
	assert.Equal(t, "Removed 2 row(s) across 2 rule(s)", desc)
	require.Len(t, g.Rows, 1)
	assert.Equal(t, "S1002", g.Rows[0][0])
}

func TestDeletePlanMissingColumnIsNoOp(t *testing.T) {
	g := testGrid()
	plan := &DeletePlan{Rules: []DeleteRule{{Column: "ghost", Value: "1"}}}

	desc, err := plan.Apply(g)

	require.NoError(t, err)
	assert.Contains(t, desc, "column(s) not found: ghost")
	assert.Len(t, g.Rows, 3)
}

func TestDeletePlanUnaffectedByOtherColumns(t *testing.T) {
	g := testGrid()
	// "92" appears in score for S1001 only; a rule on student_name must not
	// remove it.
	plan := &DeletePlan{Rules: []DeleteRule{{Column: "student_name", Value: "92"}}}

	_, err := plan.Apply(g)

	require.NoError(t, err)
	assert.Len(t, g.Rows, 3)
}

func TestCustomNotesPlanApply(t *testing.T) {
	g := testGrid()
	plan, err := DecodePlan("custom_rules", json.RawMessage(`{"notes": "late submissions excluded"}`))
	require.NoError(t, err)

	desc, err := plan.Apply(g)

	require.NoError(t, err)
	assert.Equal(t, "Custom rules noted: late submissions excluded", desc)
	assert.Len(t, g.Rows, 3)
}

func TestStandardPlanApply(t *testing.T) {
	g := testGrid()
	desc, err := (&StandardPlan{}).Apply(g)

	require.NoError(t, err)
	assert.Equal(t, "Standard transform applied", desc)
	assert.Len(t, g.Rows, 3)
}
