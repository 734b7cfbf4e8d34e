package operations

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/OnlyArkMani/Flowboard/internal/config"
	"github.com/OnlyArkMani/Flowboard/internal/dataprocessing"
	"github.com/OnlyArkMani/Flowboard/internal/exporter"
	"github.com/OnlyArkMani/Flowboard/internal/infrastructure"
)

// IncidentNotifier receives terminal run outcomes. Failure hand-off carries
// only the error's string form; classification downstream is pattern-based.
type IncidentNotifier interface {
	HandleFailure(ctx context.Context, job *UploadJob, run *Run, errText string)
	HandleSuccess(ctx context.Context, jobID string)
}

// Engine executes the pipeline for upload jobs. Stages run strictly
// sequentially within a job. A per-job single-flight lease rejects
// concurrent executions of the same job, since a manual retry can race an
// automated one on the worker pool.
type Engine struct {
	cfg       *config.Config
	jobs      JobStore
	runs      RunStore
	metrics   *infrastructure.Metrics
	incidents IncidentNotifier
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewEngine creates a pipeline engine. incidents may be nil when no
// incident handling is wired (tests).
func NewEngine(cfg *config.Config, jobs JobStore, runs RunStore, metrics *infrastructure.Metrics, incidents IncidentNotifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:       cfg,
		jobs:      jobs,
		runs:      runs,
		metrics:   metrics,
		incidents: incidents,
		logger:    logger,
		inflight:  make(map[string]struct{}),
	}
}

func (e *Engine) acquire(jobID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, held := e.inflight[jobID]; held {
		return false
	}
	e.inflight[jobID] = struct{}{}
	return true
}

func (e *Engine) release(jobID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, jobID)
}

// Execute runs the full pipeline for one job. Every invocation produces
// exactly one finalized run.
func (e *Engine) Execute(ctx context.Context, jobID string) error {
	if !e.acquire(jobID) {
		return fmt.Errorf("job %s already has a run in flight", jobID)
	}
	defer e.release(jobID)

	job, err := e.jobs.GetJob(jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}

	run := &Run{
		ID:        uuid.NewString(),
		JobID:     job.ID,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := e.runs.CreateRun(run); err != nil {
		return fmt.Errorf("create run: %w", err)
	}

	job.Status = JobStatusProcessing
	job.UpdatedAt = time.Now().UTC()
	if err := e.jobs.UpdateJob(job); err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}

	e.logger.Info("pipeline started",
		slog.String("job_id", job.ID),
		slog.String("run_id", run.ID),
		slog.String("filename", job.Filename))

	// Unsupported extensions and missing files fail before the stage loop,
	// so no step record exists for them.
	if err := e.precheck(job); err != nil {
		return e.finishFailed(ctx, job, run, err)
	}

	st := &pipelineState{
		job:             job,
		requiredColumns: e.cfg.Pipeline.RequiredColumnsFor(job.Department),
		exportPath:      e.cfg.ExportPath,
	}

	for _, stg := range pipelineStages {
		started := time.Now().UTC()
		logLine, stageErr := stg.run(ctx, st)
		finished := time.Now().UTC()

		record := StepRecord{
			Name:       stg.name,
			StartedAt:  started,
			FinishedAt: finished,
			Duration:   finished.Sub(started),
		}
		if stageErr != nil {
			record.Outcome = StepOutcomeError
			record.Log = stageErr.Error()
			run.AppendStep(record)
			e.metrics.RecordJobRun("pipeline."+stg.name, string(StepOutcomeError))
			return e.finishFailed(ctx, job, run, stageErr)
		}
		record.Outcome = StepOutcomeSuccess
		record.Log = logLine
		run.AppendStep(record)
		e.metrics.RecordJobRun("pipeline."+stg.name, string(StepOutcomeSuccess))
	}

	return e.finishSucceeded(ctx, job, run, st)
}

// precheck rejects jobs the loader could never serve before any stage runs.
func (e *Engine) precheck(job *UploadJob) error {
	ext := strings.ToLower(filepath.Ext(job.StoredPath))
	if !dataprocessing.SupportedExtension(ext) {
		return dataprocessing.ErrUnsupportedType(ext)
	}
	return nil
}

func (e *Engine) finishSucceeded(ctx context.Context, job *UploadJob, run *Run, st *pipelineState) error {
	run.Finalize(RunStatusSucceeded, "")
	if err := e.runs.UpdateRun(run); err != nil {
		e.logger.Error("finalize run failed", slog.String("run_id", run.ID), slog.String("error", err.Error()))
	}

	job.Status = JobStatusPublished
	job.Artifacts = st.artifacts
	job.UpdatedAt = time.Now().UTC()
	if err := e.jobs.UpdateJob(job); err != nil {
		return fmt.Errorf("mark job published: %w", err)
	}

	e.metrics.RecordJobRun("pipeline", string(StepOutcomeSuccess))
	e.logger.Info("pipeline succeeded",
		slog.String("job_id", job.ID),
		slog.String("run_id", run.ID),
		slog.Int("steps", len(run.Steps)))

	if e.incidents != nil {
		e.incidents.HandleSuccess(ctx, job.ID)
	}
	return nil
}

func (e *Engine) finishFailed(ctx context.Context, job *UploadJob, run *Run, cause error) error {
	run.Finalize(RunStatusFailed, cause.Error())
	if err := e.runs.UpdateRun(run); err != nil {
		e.logger.Error("finalize run failed", slog.String("run_id", run.ID), slog.String("error", err.Error()))
	}

	job.Status = JobStatusFailed
	job.UpdatedAt = time.Now().UTC()
	if err := e.jobs.UpdateJob(job); err != nil {
		e.logger.Error("mark job failed", slog.String("job_id", job.ID), slog.String("error", err.Error()))
	}

	e.metrics.RecordJobRun("pipeline", string(StepOutcomeError))
	e.logger.Warn("pipeline failed",
		slog.String("job_id", job.ID),
		slog.String("run_id", run.ID),
		slog.String("error", cause.Error()))

	if e.incidents != nil {
		e.incidents.HandleFailure(ctx, job, run, cause.Error())
	}
	return nil
}

// Regenerate rebuilds report artifacts for a job outside a pipeline run:
// best effort from the original file, with a one-row fallback summary when
// the file can no longer be loaded.
func (e *Engine) Regenerate(_ context.Context, jobID string) (string, error) {
	job, err := e.jobs.GetJob(jobID)
	if err != nil {
		return "", fmt.Errorf("load job: %w", err)
	}

	exportPath := e.cfg.ExportPath(job.ID + "_report.csv")
	writer := exporter.NewCSVWriter()

	grid, loadErr := dataprocessing.Load(job.StoredPath)
	if loadErr == nil {
		coerceNumericColumns(grid)
		if err := writer.WriteGrid(exportPath, grid); err != nil {
			return "", err
		}
	} else {
		// Fallback: a minimal one-row summary instead of an error.
		pairs := [][2]string{
			{"filename", job.Filename},
			{"status", string(job.Status)},
			{"note", "report regenerated without source data: " + loadErr.Error()},
		}
		if err := writer.WriteFields(exportPath, pairs); err != nil {
			return "", err
		}
	}

	job.Artifacts.ExportPath = exportPath
	job.UpdatedAt = time.Now().UTC()
	if err := e.jobs.UpdateJob(job); err != nil {
		return "", fmt.Errorf("update job artifacts: %w", err)
	}
	return exportPath, nil
}
