package operations

import (
	"encoding/json"
	"time"
)

// Pipeline stage names, in execution order.
const (
	StageStandardize = "standardize"
	StageValidate    = "validate"
	StageTransform   = "transform"
	StageSummarize   = "summarize"
	StagePublish     = "publish"
)

// JobStatus is the lifecycle status of an upload job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusPublished  JobStatus = "published"
	JobStatusFailed     JobStatus = "failed"
)

// RunStatus is the overall outcome of one pipeline invocation.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// StepOutcome is the outcome of a single stage within a run.
type StepOutcome string

const (
	StepOutcomeSuccess StepOutcome = "success"
	StepOutcomeError   StepOutcome = "error"
)

// maxRunLogChars caps the combined run log; anything past it is discarded
// with a truncation marker.
const maxRunLogChars = 20000

// UploadJob is one submitted file plus its declared processing intent.
// Status is the single source of truth for whether a run is meaningful.
type UploadJob struct {
	ID            string          `json:"id"`
	Department    string          `json:"department,omitempty"`
	Filename      string          `json:"filename"`
	StoredPath    string          `json:"stored_path"`
	MimeHint      string          `json:"mime_hint,omitempty"`
	ProcessMode   string          `json:"process_mode"`
	ProcessConfig json.RawMessage `json:"process_config,omitempty"`
	Status        JobStatus       `json:"status"`
	Artifacts     ReportArtifacts `json:"artifacts"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ReportArtifacts are the generated outputs of a published job.
type ReportArtifacts struct {
	ExportPath   string      `json:"export_path,omitempty"`
	WorkbookPath string      `json:"workbook_path,omitempty"`
	DocumentPath string      `json:"document_path,omitempty"`
	Summary      *RunSummary `json:"summary,omitempty"`
}

// StepRecord is the accounting entry for one stage execution.
type StepRecord struct {
	Name       string        `json:"name"`
	Outcome    StepOutcome   `json:"outcome"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	Log        string        `json:"log,omitempty"`
}

// Run is one pipeline invocation. It is finalized exactly once; Finalize is
// a no-op on an already-finalized run.
type Run struct {
	ID         string       `json:"id"`
	JobID      string       `json:"job_id"`
	Status     RunStatus    `json:"status"`
	Steps      []StepRecord `json:"steps"`
	Log        string       `json:"log,omitempty"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`

	finalized bool
}

// AppendStep records one stage's accounting entry and folds its log line
// into the combined run log.
func (r *Run) AppendStep(step StepRecord) {
	if r.finalized {
		return
	}
	r.Steps = append(r.Steps, step)
	if step.Log != "" {
		r.AppendLog("[" + step.Name + "] " + step.Log)
	}
}

// AppendLog adds a line to the combined run log, enforcing the size cap.
func (r *Run) AppendLog(line string) {
	if r.finalized || len(r.Log) >= maxRunLogChars {
		return
	}
	if r.Log != "" {
		r.Log += "\n"
	}
	r.Log += line
	if len(r.Log) > maxRunLogChars {
		r.Log = r.Log[:maxRunLogChars] + "\n... [log truncated]"
	}
}

// Finalize stamps the terminal status and finish time. Only the first call
// has effect.
func (r *Run) Finalize(status RunStatus, errText string) {
	if r.finalized {
		return
	}
	now := time.Now().UTC()
	r.Status = status
	r.Error = errText
	r.FinishedAt = &now
	r.finalized = true
}

// Finalized reports whether the run has reached a terminal state.
func (r *Run) Finalized() bool { return r.finalized }

// RunSummary is the JSON-safe structural summary of a published grid. Float
// fields use pointers so non-finite values serialize as null.
type RunSummary struct {
	RowCount        int                         `json:"row_count"`
	ColumnCount     int                         `json:"column_count"`
	Columns         []string                    `json:"columns"`
	MissingCellRate *float64                    `json:"missing_cell_rate"`
	DuplicateRows   int                         `json:"duplicate_rows"`
	NumericColumns  map[string]NumericColumnSummary `json:"numeric_columns,omitempty"`
	PlanApplied     string                      `json:"plan_applied,omitempty"`
	GeneratedAt     time.Time                   `json:"generated_at"`
}

// NumericColumnSummary carries descriptive statistics for one coerced
// numeric column.
type NumericColumnSummary struct {
	Count int      `json:"count"`
	Mean  *float64 `json:"mean"`
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
	Std   *float64 `json:"std"`
}
