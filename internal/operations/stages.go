package operations

import (
	"context"
	"fmt"
	"strings"

	"github.com/OnlyArkMani/Flowboard/internal/dataprocessing"
	"github.com/OnlyArkMani/Flowboard/internal/exporter"
)

// pipelineState carries the working data between stages of one run.
type pipelineState struct {
	job             *UploadJob
	grid            *dataprocessing.Grid
	requiredColumns []string
	plan            ProcessingPlan
	planNote        string
	numeric         map[string][]float64
	summary         *RunSummary
	artifacts       ReportArtifacts
	exportPath      func(filename string) string
}

// stageFunc executes one stage and returns a short log line.
type stageFunc func(ctx context.Context, st *pipelineState) (string, error)

type stage struct {
	name string
	run  stageFunc
}

// pipelineStages is the fixed ordered stage list. The first error aborts
// the loop; later stages never run.
var pipelineStages = []stage{
	{StageStandardize, stageStandardize},
	{StageValidate, stageValidate},
	{StageTransform, stageTransform},
	{StageSummarize, stageSummarize},
	{StagePublish, stagePublish},
}

// stageStandardize loads the source file into a grid with canonical column
// labels.
func stageStandardize(_ context.Context, st *pipelineState) (string, error) {
	grid, err := dataprocessing.Load(st.job.StoredPath)
	if err != nil {
		return "", err
	}
	st.grid = grid
	return fmt.Sprintf("Loaded %d column(s), %d row(s)", len(grid.Columns), len(grid.Rows)), nil
}

// stageValidate enforces the structural contract. Violations accumulate and
// surface as one semicolon-separated message.
func stageValidate(_ context.Context, st *pipelineState) (string, error) {
	var errs []string
	if len(st.grid.Columns) == 0 {
		errs = append(errs, "No columns detected")
	}
	if len(st.grid.Rows) == 0 {
		errs = append(errs, "No rows detected")
	}

	var missing []string
	for _, required := range st.requiredColumns {
		if st.grid.ColumnIndex(required) < 0 {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		errs = append(errs, "Required columns missing: "+strings.Join(missing, ", "))
	}

	if len(errs) > 0 {
		return "", fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return fmt.Sprintf("Validated %d row(s) against %d required column(s)",
		len(st.grid.Rows), len(st.requiredColumns)), nil
}

// stageTransform coerces numeric columns, then applies the processing plan.
func stageTransform(_ context.Context, st *pipelineState) (string, error) {
	st.numeric = coerceNumericColumns(st.grid)

	plan := st.plan
	if plan == nil {
		decoded, err := DecodePlan(st.job.ProcessMode, st.job.ProcessConfig)
		if err != nil {
			return "", err
		}
		plan = decoded
	}
	note, err := plan.Apply(st.grid)
	if err != nil {
		return "", err
	}
	st.planNote = note

	// The plan may have changed rows; refresh the numeric view so the
	// summary describes what is actually published.
	st.numeric = coerceNumericColumns(st.grid)
	return fmt.Sprintf("Coerced %d numeric column(s); %s", len(st.numeric), note), nil
}

// stageSummarize builds the JSON-safe structural summary.
func stageSummarize(_ context.Context, st *pipelineState) (string, error) {
	st.summary = buildSummary(st.grid, st.numeric, st.planNote)
	rate := 0.0
	if st.summary.MissingCellRate != nil {
		rate = *st.summary.MissingCellRate
	}
	return fmt.Sprintf("Summarized %d row(s), missing-cell rate %.2f, %d duplicate(s)",
		st.summary.RowCount, rate, st.summary.DuplicateRows), nil
}

// stagePublish writes the report artifacts and records their paths.
func stagePublish(_ context.Context, st *pipelineState) (string, error) {
	base := st.job.ID
	csvPath := st.exportPath(base + "_report.csv")
	workbookPath := st.exportPath(base + "_report.xlsx")
	documentPath := st.exportPath(base + "_report.txt")

	writer := exporter.NewCSVWriter()
	if err := writer.WriteGrid(csvPath, st.grid); err != nil {
		return "", err
	}
	if err := exporter.WriteWorkbook(workbookPath, st.grid); err != nil {
		return "", err
	}

	title := "Flowboard Report - " + st.job.Filename
	meta := []string{
		fmt.Sprintf("Department: %s", orDash(st.job.Department)),
		fmt.Sprintf("Rows: %d  Columns: %d", len(st.grid.Rows), len(st.grid.Columns)),
	}
	if err := exporter.WriteDocument(documentPath, st.grid, exporter.DocumentOptions{
		Title:     title,
		MetaLines: meta,
	}); err != nil {
		return "", err
	}

	st.artifacts = ReportArtifacts{
		ExportPath:   csvPath,
		WorkbookPath: workbookPath,
		DocumentPath: documentPath,
		Summary:      st.summary,
	}
	return "Published report artifacts", nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
