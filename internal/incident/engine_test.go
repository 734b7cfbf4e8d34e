package incident

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OnlyArkMani/Flowboard/internal/config"
	"github.com/OnlyArkMani/Flowboard/internal/operations"
)

type queuedCall struct {
	name  string
	args  []string
	delay time.Duration
}

// queueSpy records submissions instead of executing them.
type queueSpy struct {
	immediate []queuedCall
	delayed   []queuedCall
}

func (q *queueSpy) Enqueue(name string, args ...string) error {
	q.immediate = append(q.immediate, queuedCall{name: name, args: args})
	return nil
}

func (q *queueSpy) EnqueueIn(delay time.Duration, name string, args ...string) error {
	q.delayed = append(q.delayed, queuedCall{name: name, args: args, delay: delay})
	return nil
}

type incidentFixture struct {
	engine    *Engine
	incidents *MemoryIncidentStore
	tickets   *MemoryTicketStore
	jobs      *operations.MemoryJobStore
	queue     *queueSpy
}

func newFixture(t *testing.T) *incidentFixture {
	t.Helper()

	cfg := &config.Config{
		Pipeline: config.PipelineConfig{
			MaxAutoRetries: 2,
			RetryDelay:     time.Minute,
		},
	}

	rules := NewMemoryRuleRepository()
	require.NoError(t, SeedDefaults(rules))

	incidents := NewMemoryIncidentStore()
	tickets := NewMemoryTicketStore()
	jobs := operations.NewMemoryJobStore()
	queue := &queueSpy{}

	engine := NewEngine(cfg, rules, incidents, tickets, jobs, queue, nil, nil)
	return &incidentFixture{
		engine:    engine,
		incidents: incidents,
		tickets:   tickets,
		jobs:      jobs,
		queue:     queue,
	}
}

func seedJob(t *testing.T, fx *incidentFixture, storedPath string) *operations.UploadJob {
	t.Helper()
	now := time.Now().UTC()
	job := &operations.UploadJob{
		ID:         uuid.NewString(),
		Department: "science",
		Filename:   filepath.Base(storedPath),
		StoredPath: storedPath,
		Status:     operations.JobStatusFailed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, fx.jobs.CreateJob(job))
	return job
}

func newRun(jobID string) *operations.Run {
	return &operations.Run{ID: uuid.NewString(), JobID: jobID}
}

func jobIncidents(t *testing.T, fx *incidentFixture, jobID string) []*Incident {
	t.Helper()
	list, err := fx.incidents.ListIncidentsForJob(jobID)
	require.NoError(t, err)
	return list
}

func hasEvent(timeline []TimelineEvent, event string) bool {
	for _, e := range timeline {
		if e.Event == event {
			return true
		}
	}
	return false
}

func TestHandleFailureSchedulesRetryForRetryableRule(t *testing.T) {
	fx := newFixture(t)
	job := seedJob(t, fx, "/data/grades.csv")

	fx.engine.HandleFailure(context.Background(), job, newRun(job.ID), "read failed: Resource temporarily unavailable")

	list := jobIncidents(t, fx, job.ID)
	require.Len(t, list, 1)
	inc := list[0]

	assert.Equal(t, StateInProgress, inc.State)
	assert.NotEmpty(t, inc.MatchedRuleID)
	assert.Equal(t, "medium", inc.Severity)
	assert.Equal(t, "infrastructure", inc.Category)
	assert.Equal(t, 1, inc.AutoRetryCount)
	assert.Equal(t, 2, inc.MaxAutoRetries)
	assert.True(t, hasEvent(inc.Timeline, "Incident detected"))
	assert.True(t, hasEvent(inc.Timeline, "Auto retry scheduled"))

	require.Len(t, fx.queue.delayed, 1)
	call := fx.queue.delayed[0]
	assert.Equal(t, PipelineTask, call.name)
	assert.Equal(t, []string{job.ID}, call.args)
	assert.Equal(t, 45*time.Second, call.delay, "rule delay overrides the configured default")

	tickets, err := fx.tickets.ListTicketsForIncident(inc.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "Auto ticket: grades.csv", tickets[0].Title)
	assert.Equal(t, TicketInProgress, tickets[0].Status)
	assert.Equal(t, DetectionSourceEngine, tickets[0].Assignee)
	assert.Equal(t, "system", tickets[0].Source)
}

func TestHandleFailureRetryCapHoldsAcrossRepeatedFailures(t *testing.T) {
	fx := newFixture(t)
	job := seedJob(t, fx, "/data/grades.csv")
	errText := "read failed: Resource temporarily unavailable"

	for i := 0; i < 3; i++ {
		fx.engine.HandleFailure(context.Background(), job, newRun(job.ID), errText)
	}

	list := jobIncidents(t, fx, job.ID)
	require.Len(t, list, 1, "repeated failures accumulate onto one incident")
	inc := list[0]

	assert.Equal(t, 2, inc.AutoRetryCount)
	assert.True(t, hasEvent(inc.Timeline, "Auto retry limit reached"))
	assert.Len(t, fx.queue.delayed, 2, "third failure must not queue another retry")
	assert.Empty(t, fx.queue.immediate)

	// Only one system ticket for the whole sequence.
	tickets, err := fx.tickets.ListTicketsForIncident(inc.ID)
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
}

func TestHandleFailureUnknownErrorAwaitsTriage(t *testing.T) {
	fx := newFixture(t)
	job := seedJob(t, fx, "/data/grades.csv")

	fx.engine.HandleFailure(context.Background(), job, newRun(job.ID), "transform failed: something entirely novel")

	list := jobIncidents(t, fx, job.ID)
	require.Len(t, list, 1)
	inc := list[0]

	assert.Equal(t, StateOpen, inc.State)
	assert.Empty(t, inc.MatchedRuleID)
	assert.Empty(t, inc.Severity)
	assert.True(t, hasEvent(inc.Timeline, "Unknown incident awaiting manual triage"))
	assert.Empty(t, fx.queue.delayed)
	assert.Empty(t, fx.queue.immediate)

	tickets, err := fx.tickets.ListTicketsForIncident(inc.ID)
	require.NoError(t, err)
	assert.Len(t, tickets, 1, "unknown failures still open a ticket for humans")
}

func TestHandleFailureDistinctRulesOpenSeparateIncidents(t *testing.T) {
	fx := newFixture(t)
	job := seedJob(t, fx, "/data/grades.csv")

	fx.engine.HandleFailure(context.Background(), job, newRun(job.ID), "standardize failed: No rows detected")
	fx.engine.HandleFailure(context.Background(), job, newRun(job.ID), "validate failed: Required columns missing: score")

	list := jobIncidents(t, fx, job.ID)
	assert.Len(t, list, 2)
}

func TestHandleFailureRemediatesEncodingMismatch(t *testing.T) {
	fx := newFixture(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "grades.csv")
	// "José" in latin-1: the 0xe9 byte is not valid UTF-8.
	raw := []byte("student_id,name,score\nS1,Jos\xe9,90\n")
	require.NoError(t, os.WriteFile(path, raw, 0644))

	job := seedJob(t, fx, path)
	fx.engine.HandleFailure(context.Background(), job, newRun(job.ID), "standardize failed: codec can't decode byte 0xe9")

	list := jobIncidents(t, fx, job.ID)
	require.Len(t, list, 1)
	inc := list[0]

	assert.Equal(t, StateInProgress, inc.State)
	assert.Equal(t, 1, inc.AutoRetryCount)
	assert.True(t, hasEvent(inc.Timeline, "Remediation applied"))

	updated, err := fx.jobs.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "grades_fixed1.csv"), updated.StoredPath)

	fixed, err := os.ReadFile(updated.StoredPath)
	require.NoError(t, err)
	assert.Contains(t, string(fixed), "José")

	require.Len(t, fx.queue.immediate, 1)
	assert.Equal(t, PipelineTask, fx.queue.immediate[0].name)
	assert.Equal(t, []string{job.ID}, fx.queue.immediate[0].args)
	assert.Empty(t, fx.queue.delayed, "remediation re-submits immediately, not on the retry timer")
}

func TestHandleFailureSkipsRemediationForAssignedIncident(t *testing.T) {
	fx := newFixture(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "grades.csv")
	require.NoError(t, os.WriteFile(path, []byte("student_id,score\nS1,9\xe9\n"), 0644))
	job := seedJob(t, fx, path)
	errText := "standardize failed: codec can't decode byte 0xe9"

	fx.engine.HandleFailure(context.Background(), job, newRun(job.ID), errText)
	list := jobIncidents(t, fx, job.ID)
	require.Len(t, list, 1)

	_, err := fx.engine.AssignIncident(list[0].ID, "alice", "ops", "looking into it")
	require.NoError(t, err)

	before := len(fx.queue.immediate)
	fx.engine.HandleFailure(context.Background(), job, newRun(job.ID), errText)

	list = jobIncidents(t, fx, job.ID)
	require.Len(t, list, 1)
	assert.Len(t, fx.queue.immediate, before, "human-assigned incidents are left alone")
}

func TestHandleSuccessSweepsMatchedIncidents(t *testing.T) {
	fx := newFixture(t)
	job := seedJob(t, fx, "/data/grades.csv")

	fx.engine.HandleFailure(context.Background(), job, newRun(job.ID), "read failed: Resource temporarily unavailable")
	list := jobIncidents(t, fx, job.ID)
	require.Len(t, list, 1)
	incID := list[0].ID

	fx.engine.HandleSuccess(context.Background(), job.ID)

	inc, err := fx.incidents.GetIncident(incID)
	require.NoError(t, err)
	assert.Equal(t, StateResolved, inc.State)
	assert.Equal(t, DetectionSourceEngine, inc.ResolvedBy)
	require.NotNil(t, inc.ResolvedAt)
	assert.True(t, hasEvent(inc.Timeline, "Auto-resolved after successful run"))

	tickets, err := fx.tickets.ListTicketsForIncident(incID)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, TicketResolved, tickets[0].Status)
	assert.Equal(t, "automatic", tickets[0].ResolutionType)
}

func TestHandleSuccessLeavesUnmatchedAndAssignedIncidents(t *testing.T) {
	fx := newFixture(t)
	job := seedJob(t, fx, "/data/grades.csv")

	fx.engine.HandleFailure(context.Background(), job, newRun(job.ID), "something entirely novel")
	fx.engine.HandleFailure(context.Background(), job, newRun(job.ID), "standardize failed: No rows detected")

	list := jobIncidents(t, fx, job.ID)
	require.Len(t, list, 2)
	var matchedID string
	for _, inc := range list {
		if inc.MatchedRuleID != "" {
			matchedID = inc.ID
			_, err := fx.engine.AssignIncident(inc.ID, "alice", "ops", "")
			require.NoError(t, err)
		}
	}
	require.NotEmpty(t, matchedID)

	fx.engine.HandleSuccess(context.Background(), job.ID)

	for _, inc := range jobIncidents(t, fx, job.ID) {
		assert.NotEqual(t, StateResolved, inc.State,
			fmt.Sprintf("incident %s should survive the sweep", inc.ID))
	}
}

func TestResolveIncidentCascadesToTickets(t *testing.T) {
	fx := newFixture(t)
	job := seedJob(t, fx, "/data/grades.csv")

	fx.engine.HandleFailure(context.Background(), job, newRun(job.ID), "standardize failed: No rows detected")
	list := jobIncidents(t, fx, job.ID)
	require.Len(t, list, 1)

	inc, err := fx.engine.ResolveIncident(list[0].ID, "alice", "export was empty", "re-export with data", "fixed upstream")
	require.NoError(t, err)

	assert.Equal(t, StateResolved, inc.State)
	assert.Equal(t, "alice", inc.ResolvedBy)
	assert.Equal(t, "export was empty", inc.RootCause)
	assert.Equal(t, "fixed upstream", inc.ResolutionReport)

	tickets, err := fx.tickets.ListTicketsForIncident(inc.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, TicketResolved, tickets[0].Status)
	assert.Equal(t, "re-export with data", tickets[0].ResolutionNotes)
}

func TestResolveTicketCascadesToIncident(t *testing.T) {
	fx := newFixture(t)
	job := seedJob(t, fx, "/data/grades.csv")

	fx.engine.HandleFailure(context.Background(), job, newRun(job.ID), "standardize failed: No rows detected")
	list := jobIncidents(t, fx, job.ID)
	require.Len(t, list, 1)
	incID := list[0].ID

	tickets, err := fx.tickets.ListTicketsForIncident(incID)
	require.NoError(t, err)
	require.Len(t, tickets, 1)

	resolved, err := fx.engine.ResolveTicket(tickets[0].ID, "bob", "workaround", "switched the export template")
	require.NoError(t, err)
	assert.Equal(t, TicketResolved, resolved.Status)
	assert.Equal(t, "bob", resolved.ResolvedBy)
	assert.Equal(t, "workaround", resolved.ResolutionType)
	assert.True(t, hasEvent(resolved.Timeline, "Ticket resolved by bob (workaround)"))

	inc, err := fx.incidents.GetIncident(incID)
	require.NoError(t, err)
	assert.Equal(t, StateResolved, inc.State)
	assert.Equal(t, "bob", inc.ResolvedBy)
	assert.Equal(t, "switched the export template", inc.CorrectiveAction)
	assert.True(t, hasEvent(inc.Timeline, "Resolved via linked ticket"))

	_, err = fx.engine.ResolveTicket(tickets[0].ID, "bob", "workaround", "again")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already resolved")
}

func TestManualIncidentActions(t *testing.T) {
	fx := newFixture(t)
	job := seedJob(t, fx, "/data/grades.csv")
	fx.engine.HandleFailure(context.Background(), job, newRun(job.ID), "something entirely novel")
	list := jobIncidents(t, fx, job.ID)
	require.Len(t, list, 1)
	incID := list[0].ID

	inc, err := fx.engine.AssignIncident(incID, "alice", "ops", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", inc.Assignee)
	assert.Equal(t, StateInProgress, inc.State)
	assert.True(t, hasEvent(inc.Timeline, "Assigned to alice"))

	inc, err = fx.engine.AnalyzeIncident(incID, "alice", "export job truncates the file", "blocks the science report", "high", "ingest")
	require.NoError(t, err)
	assert.Equal(t, "export job truncates the file", inc.AnalysisNotes)
	assert.Equal(t, "high", inc.Severity)
	assert.True(t, hasEvent(inc.Timeline, "Analysis updated"))

	inc, err = fx.engine.RetryIncident(incID, "alice", "retrying after upstream fix")
	require.NoError(t, err)
	assert.Equal(t, 1, inc.AutoRetryCount)
	assert.True(t, hasEvent(inc.Timeline, "Manual retry requested"))
	require.Len(t, fx.queue.immediate, 1)
	assert.Equal(t, []string{job.ID}, fx.queue.immediate[0].args)

	inc, err = fx.engine.ArchiveIncident(incID, "alice", "stale")
	require.NoError(t, err)
	assert.Equal(t, StateResolved, inc.State)
	require.NotNil(t, inc.ArchivedAt)
	assert.True(t, hasEvent(inc.Timeline, "Incident archived"))
}

func TestManualTicketLifecycle(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.engine.CreateTicket("", "", "no title", "")
	require.Error(t, err)

	_, err = fx.engine.CreateTicket("missing-incident", "Broken export", "", "")
	require.Error(t, err)

	ticket, err := fx.engine.CreateTicket("", "Broken export", "science report stuck", "")
	require.NoError(t, err)
	assert.Equal(t, "manual", ticket.Source)
	assert.Equal(t, TicketOpen, ticket.Status)

	ticket, err = fx.engine.AssignTicket(ticket.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", ticket.Assignee)
	assert.Equal(t, TicketInProgress, ticket.Status)

	ticket, err = fx.engine.ResolveTicket(ticket.ID, "bob", "", "restarted the export")
	require.NoError(t, err)
	assert.Equal(t, TicketResolved, ticket.Status)
	assert.Equal(t, "manual", ticket.ResolutionType)
}

func TestTruncateKeepsShortStrings(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "", truncate("", 10))
	long := strings.Repeat("x", 300)
	assert.Len(t, truncate(long, 280), 280)
}
