package incident

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/OnlyArkMani/Flowboard/internal/config"
	"github.com/OnlyArkMani/Flowboard/internal/infrastructure"
	"github.com/OnlyArkMani/Flowboard/internal/operations"
)

// PipelineTask is the registered task name for a pipeline execution. Both
// delayed retries and remediation re-submissions enqueue it.
const PipelineTask = "pipeline.run"

// TaskSubmitter hands work to the queue layer, immediately or after a
// delay. Retries are asynchronous re-submissions, never nested synchronous
// loops inside one execution.
type TaskSubmitter interface {
	Enqueue(name string, args ...string) error
	EnqueueIn(delay time.Duration, name string, args ...string) error
}

// Engine drives incident classification, auto-triage, automated data
// repair, and auto-resolution.
type Engine struct {
	cfg       *config.Config
	rules     RuleRepository
	incidents IncidentStore
	tickets   TicketStore
	jobs      operations.JobStore
	queue     TaskSubmitter
	metrics   *infrastructure.Metrics
	logger    *slog.Logger
}

// NewEngine creates an incident engine. queue may be nil when retry
// submission is not wired (tests).
func NewEngine(cfg *config.Config, rules RuleRepository, incidents IncidentStore, tickets TicketStore, jobs operations.JobStore, queue TaskSubmitter, metrics *infrastructure.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:       cfg,
		rules:     rules,
		incidents: incidents,
		tickets:   tickets,
		jobs:      jobs,
		queue:     queue,
		metrics:   metrics,
		logger:    logger,
	}
}

// HandleFailure is invoked by the pipeline engine with a failed run and the
// raw error text. It creates an incident and a linked system ticket, then
// runs auto-triage and, when no retry was scheduled, auto-remediation.
func (e *Engine) HandleFailure(ctx context.Context, job *operations.UploadJob, run *operations.Run, errText string) {
	rules, err := e.rules.ListActive()
	if err != nil {
		e.logger.Error("list known error rules", slog.String("error", err.Error()))
		rules = nil
	}
	matched := Match(rules, errText)

	inc, reused := e.findOrCreateIncident(job, run, errText, matched)
	if !reused {
		e.createSystemTicket(inc, job, errText)
	}

	retryScheduled := e.autoTriage(inc, matched, job)
	if !retryScheduled {
		e.autoRemediate(inc, matched, job, errText)
	}

	if err := e.incidents.UpdateIncident(inc); err != nil {
		e.logger.Error("persist incident", slog.String("incident_id", inc.ID), slog.String("error", err.Error()))
	}
}

// findOrCreateIncident reuses the unresolved incident for the same job and
// rule when one exists, so repeated failures accumulate onto one record and
// the retry counter actually bounds the loop. A failure matching a different
// rule (or none) opens a fresh incident.
func (e *Engine) findOrCreateIncident(job *operations.UploadJob, run *operations.Run, errText string, matched *KnownErrorRule) (*Incident, bool) {
	existing, err := e.incidents.ListIncidentsForJob(job.ID)
	if err != nil {
		e.logger.Error("list incidents for job", slog.String("job_id", job.ID), slog.String("error", err.Error()))
	}
	for _, inc := range existing {
		if inc.State == StateResolved || inc.DetectionSource != DetectionSourceEngine {
			continue
		}
		sameRule := matched != nil && inc.MatchedRuleID == matched.ID
		sameUnknown := matched == nil && inc.MatchedRuleID == "" && inc.Error == errText
		if !sameRule && !sameUnknown {
			continue
		}
		inc.RunID = run.ID
		inc.Error = errText
		inc.AppendEvent("Incident detected", DetectionSourceEngine, truncate(errText, 280))
		return inc, true
	}
	return e.createIncident(job, run, errText, matched), false
}

func (e *Engine) createIncident(job *operations.UploadJob, run *operations.Run, errText string, matched *KnownErrorRule) *Incident {
	now := time.Now().UTC()
	inc := &Incident{
		ID:              uuid.NewString(),
		JobID:           job.ID,
		RunID:           run.ID,
		Error:           errText,
		State:           StateOpen,
		DetectionSource: DetectionSourceEngine,
		MaxAutoRetries:  e.cfg.Pipeline.MaxAutoRetries,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if inc.MaxAutoRetries <= 0 {
		inc.MaxAutoRetries = DefaultMaxAutoRetries
	}
	if matched != nil {
		inc.MatchedRuleID = matched.ID
		inc.RootCause = matched.Fix.RootCause
		inc.CorrectiveAction = matched.Fix.CorrectiveAction
	}
	inc.AppendEvent("Incident detected", DetectionSourceEngine, truncate(errText, 280))

	if err := e.incidents.CreateIncident(inc); err != nil {
		e.logger.Error("create incident", slog.String("job_id", job.ID), slog.String("error", err.Error()))
	}
	e.metrics.RecordIncident(string(StateOpen))

	e.logger.Warn("incident opened",
		slog.String("incident_id", inc.ID),
		slog.String("job_id", job.ID),
		slog.Bool("rule_matched", matched != nil))
	return inc
}

func (e *Engine) createSystemTicket(inc *Incident, job *operations.UploadJob, errText string) {
	now := time.Now().UTC()
	ticket := &Ticket{
		ID:          uuid.NewString(),
		IncidentID:  inc.ID,
		Source:      "system",
		Status:      TicketInProgress,
		Assignee:    DetectionSourceEngine,
		Title:       "Auto ticket: " + job.Filename,
		Description: truncate(errText, 500),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ticket.AppendEvent("System ticket created", "system", "")

	if err := e.tickets.CreateTicket(ticket); err != nil {
		e.logger.Error("create system ticket", slog.String("incident_id", inc.ID), slog.String("error", err.Error()))
	}
}

// autoTriage merges the matched rule's fix payload onto the incident
// (non-destructively, never overwriting set fields) and handles the rule's
// retry policy. Returns true when a delayed retry was scheduled.
func (e *Engine) autoTriage(inc *Incident, matched *KnownErrorRule, job *operations.UploadJob) bool {
	if matched == nil {
		inc.AppendEvent("Unknown incident awaiting manual triage", DetectionSourceEngine, "")
		return false
	}

	fix := matched.Fix
	setIfEmpty(&inc.Severity, fix.Severity)
	setIfEmpty(&inc.Category, fix.Category)
	setIfEmpty(&inc.RootCause, fix.RootCause)
	setIfEmpty(&inc.CorrectiveAction, fix.CorrectiveAction)
	setIfEmpty(&inc.ResolutionReport, fix.ResolutionReport)

	retry := fix.AutoRetry
	if retry == nil || !retry.Enabled {
		inc.AppendEvent("Known error tagged", DetectionSourceEngine, "Matched "+matched.Name)
		return false
	}

	if retry.Max > 0 {
		inc.MaxAutoRetries = retry.Max
	}
	if inc.AutoRetryCount >= inc.MaxAutoRetries {
		inc.AppendEvent("Auto retry limit reached", DetectionSourceEngine,
			fmt.Sprintf("Max retries (%d) exhausted for %s", inc.MaxAutoRetries, job.Filename))
		return false
	}

	delay := e.cfg.Pipeline.RetryDelay
	if retry.DelaySeconds > 0 {
		delay = time.Duration(retry.DelaySeconds) * time.Second
	}

	inc.AutoRetryCount++
	inc.State = StateInProgress
	inc.AppendEvent("Auto retry scheduled", DetectionSourceEngine,
		fmt.Sprintf("Retry #%d queued in %s for %s", inc.AutoRetryCount, delay, job.Filename))

	if e.queue != nil {
		if err := e.queue.EnqueueIn(delay, PipelineTask, job.ID); err != nil {
			e.logger.Error("schedule retry", slog.String("incident_id", inc.ID), slog.String("error", err.Error()))
		}
	}
	e.metrics.RecordIncident(string(StateInProgress))
	return true
}

// autoRemediate attempts automated data repair. It only ever touches
// engine-detected, unassigned, unresolved incidents that still have retry
// budget, and only when a rule matched.
func (e *Engine) autoRemediate(inc *Incident, matched *KnownErrorRule, job *operations.UploadJob, errText string) {
	if matched == nil ||
		(inc.Assignee != "" && inc.Assignee != DetectionSourceEngine) ||
		inc.DetectionSource != DetectionSourceEngine ||
		inc.State == StateResolved ||
		inc.AutoRetryCount >= inc.MaxAutoRetries {
		return
	}

	actions := resolveRepairs(matched, errText)
	if len(actions) == 0 {
		return
	}

	path := job.StoredPath
	attempt := inc.AutoRetryCount + 1
	changed := false
	var notes []string

	for _, action := range actions {
		result, err := applyRepair(action, path, attempt)
		if err != nil {
			e.logger.Warn("repair failed",
				slog.String("incident_id", inc.ID),
				slog.String("action", string(action)),
				slog.String("error", err.Error()))
			notes = append(notes, string(action)+": "+err.Error())
			continue
		}
		notes = append(notes, string(action)+": "+result.Note)
		if result.Changed {
			changed = true
			path = result.NewPath
		}
	}

	if !changed {
		inc.AppendEvent("Remediation attempted", DetectionSourceEngine, strings.Join(notes, "; "))
		return
	}

	job.StoredPath = path
	job.UpdatedAt = time.Now().UTC()
	if err := e.jobs.UpdateJob(job); err != nil {
		e.logger.Error("update job after repair", slog.String("job_id", job.ID), slog.String("error", err.Error()))
		return
	}

	inc.AutoRetryCount++
	inc.State = StateInProgress
	inc.AppendEvent("Remediation applied", DetectionSourceEngine, strings.Join(notes, "; "))

	if e.queue != nil {
		if err := e.queue.Enqueue(PipelineTask, job.ID); err != nil {
			e.logger.Error("resubmit after repair", slog.String("job_id", job.ID), slog.String("error", err.Error()))
		}
	}
	e.metrics.RecordIncident(string(StateInProgress))
}

// HandleSuccess is the self-healing confirmation step: after a successful
// run, every open or in-progress incident for the job that has a matched
// rule and no human assignee is swept to resolved, cascading to its linked
// tickets.
func (e *Engine) HandleSuccess(_ context.Context, jobID string) {
	incidents, err := e.incidents.ListIncidentsForJob(jobID)
	if err != nil {
		e.logger.Error("list incidents for sweep", slog.String("job_id", jobID), slog.String("error", err.Error()))
		return
	}

	for _, inc := range incidents {
		if inc.State == StateResolved {
			continue
		}
		if inc.MatchedRuleID == "" {
			continue
		}
		if inc.Assignee != "" && inc.Assignee != DetectionSourceEngine {
			continue
		}

		inc.ResolvedBy = DetectionSourceEngine
		inc.Resolve(inc.ResolutionReport)
		inc.AppendEvent("Auto-resolved after successful run", DetectionSourceEngine, "")
		if err := e.incidents.UpdateIncident(inc); err != nil {
			e.logger.Error("resolve incident", slog.String("incident_id", inc.ID), slog.String("error", err.Error()))
			continue
		}
		e.metrics.RecordIncident(string(StateResolved))
		e.resolveLinkedTickets(inc, "Resolved automatically after a successful pipeline run")

		e.logger.Info("incident auto-resolved",
			slog.String("incident_id", inc.ID),
			slog.String("job_id", jobID))
	}
}

func (e *Engine) resolveLinkedTickets(inc *Incident, notes string) {
	tickets, err := e.tickets.ListTicketsForIncident(inc.ID)
	if err != nil {
		e.logger.Error("list tickets for incident", slog.String("incident_id", inc.ID), slog.String("error", err.Error()))
		return
	}
	for _, t := range tickets {
		if t.Status == TicketResolved {
			continue
		}
		t.MarkResolved(DetectionSourceEngine, "automatic", notes)
		if err := e.tickets.UpdateTicket(t); err != nil {
			e.logger.Error("resolve ticket", slog.String("ticket_id", t.ID), slog.String("error", err.Error()))
		}
	}
}

func setIfEmpty(dst *string, value string) {
	if *dst == "" && value != "" {
		*dst = value
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
