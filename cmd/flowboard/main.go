package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/OnlyArkMani/Flowboard/internal/config"
	"github.com/OnlyArkMani/Flowboard/internal/incident"
	"github.com/OnlyArkMani/Flowboard/internal/infrastructure"
	"github.com/OnlyArkMani/Flowboard/internal/operations"
	"github.com/OnlyArkMani/Flowboard/internal/services"
	"github.com/OnlyArkMani/Flowboard/internal/taskqueue"
)

func main() {
	configPath := flag.String("config", "", "path to flowboard.yaml (defaults to the executable's directory)")
	filePath := flag.String("file", "", "tabular file to process (csv, tsv, txt, xlsx, xls, pdf)")
	department := flag.String("department", "", "department the upload belongs to")
	mode := flag.String("mode", operations.ModeStandard, "process mode: transform_gradebook, append_record, delete_record, custom_rules")
	planConfig := flag.String("plan", "", "JSON process configuration, or @path to read it from a file")
	wait := flag.Duration("wait", 2*time.Minute, "how long to wait for the job to reach a terminal state")
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: flowboard -file <path> [-department D] [-mode M] [-plan JSON]")
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if _, err := infrastructure.InitializeLogger(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()
	logger := infrastructure.GetLogger()

	metrics := infrastructure.NewMetrics(prometheus.DefaultRegisterer)

	jobs := operations.NewMemoryJobStore()
	runs := operations.NewMemoryRunStore()
	rules := incident.NewMemoryRuleRepository()
	incidents := incident.NewMemoryIncidentStore()
	tickets := incident.NewMemoryTicketStore()

	if err := incident.SeedDefaults(rules); err != nil {
		logger.Error("seed known error rules", slog.String("error", err.Error()))
		os.Exit(1)
	}

	registry := taskqueue.NewRegistry()
	queue := taskqueue.NewQueue(registry, cfg.Pipeline.Workers, cfg.Pipeline.QueueDepth, logger)

	incidentEngine := incident.NewEngine(cfg, rules, incidents, tickets, jobs, queue, metrics, logger)
	pipeline := operations.NewEngine(cfg, jobs, runs, metrics, incidentEngine, logger)

	registry.Register(incident.PipelineTask, func(ctx context.Context, args ...string) error {
		if len(args) == 0 {
			return fmt.Errorf("pipeline task requires a job id")
		}
		return pipeline.Execute(ctx, args[0])
	})
	registry.Register(services.PurgeTask, services.PurgeExpiredExports(cfg, logger))

	ctx := context.Background()
	queue.Start(ctx)
	defer func() {
		if err := queue.Stop(30 * time.Second); err != nil {
			logger.Warn("queue shutdown", slog.String("error", err.Error()))
		}
	}()

	planJSON, err := resolvePlanConfig(*planConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "plan: %v\n", err)
		os.Exit(1)
	}

	intake := services.NewIntakeService(cfg, jobs, logger)
	job, err := intake.SubmitFile(*filePath, *department, *mode, planJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "submit: %v\n", err)
		os.Exit(1)
	}

	if err := queue.Enqueue(incident.PipelineTask, job.ID); err != nil {
		fmt.Fprintf(os.Stderr, "enqueue: %v\n", err)
		os.Exit(1)
	}

	final, err := awaitTerminal(jobs, job.ID, *wait)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wait: %v\n", err)
		os.Exit(1)
	}

	printOutcome(final, runs, incidents)
	if final.Status != operations.JobStatusPublished {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// resolvePlanConfig reads the plan JSON from the flag value or, with a
// leading @, from a file.
func resolvePlanConfig(value string) (json.RawMessage, error) {
	if value == "" {
		return nil, nil
	}
	if strings.HasPrefix(value, "@") {
		data, err := os.ReadFile(strings.TrimPrefix(value, "@"))
		if err != nil {
			return nil, err
		}
		value = string(data)
	}
	if !json.Valid([]byte(value)) {
		return nil, fmt.Errorf("plan configuration is not valid JSON")
	}
	return json.RawMessage(value), nil
}

// awaitTerminal polls the job until it settles. Remediation retries mean a
// failed status can flip back to processing, so the poll keeps watching
// until the deadline or a stable published/failed state with no queued
// retry pending.
func awaitTerminal(jobs operations.JobStore, jobID string, wait time.Duration) (*operations.UploadJob, error) {
	deadline := time.Now().Add(wait)
	var last *operations.UploadJob
	stableSince := time.Time{}

	for time.Now().Before(deadline) {
		job, err := jobs.GetJob(jobID)
		if err != nil {
			return nil, err
		}
		last = job

		switch job.Status {
		case operations.JobStatusPublished:
			return job, nil
		case operations.JobStatusFailed:
			// Give in-flight remediation a moment to re-submit.
			if stableSince.IsZero() {
				stableSince = time.Now()
			} else if time.Since(stableSince) > 5*time.Second {
				return job, nil
			}
		default:
			stableSince = time.Time{}
		}
		time.Sleep(250 * time.Millisecond)
	}
	if last == nil {
		return nil, fmt.Errorf("job %s never appeared", jobID)
	}
	return last, nil
}

func printOutcome(job *operations.UploadJob, runs operations.RunStore, incidents incident.IncidentStore) {
	fmt.Printf("job %s: %s\n", job.ID, job.Status)

	jobRuns, err := runs.ListRunsForJob(job.ID)
	if err == nil && len(jobRuns) > 0 {
		latest := jobRuns[0]
		fmt.Printf("run %s: %s (%d step(s))\n", latest.ID, latest.Status, len(latest.Steps))
		for _, step := range latest.Steps {
			fmt.Printf("  %-12s %-7s %s\n", step.Name, step.Outcome, step.Log)
		}
	}

	if job.Status == operations.JobStatusPublished {
		fmt.Printf("export:   %s\n", job.Artifacts.ExportPath)
		fmt.Printf("workbook: %s\n", job.Artifacts.WorkbookPath)
		fmt.Printf("document: %s\n", job.Artifacts.DocumentPath)
		if s := job.Artifacts.Summary; s != nil {
			fmt.Printf("summary:  %d row(s), %d column(s), %d duplicate(s)\n",
				s.RowCount, s.ColumnCount, s.DuplicateRows)
		}
		return
	}

	open, err := incidents.ListIncidentsForJob(job.ID)
	if err != nil {
		return
	}
	for _, inc := range open {
		fmt.Printf("incident %s [%s] %s\n", inc.ID, inc.State, inc.Error)
		for _, ev := range inc.Timeline {
			fmt.Printf("  %s  %s\n", ev.Timestamp.Format(time.RFC3339), ev.Event)
		}
	}
}
