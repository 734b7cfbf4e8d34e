package incident

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Manual operator actions. These mirror what the operator console exposes;
// every action lands on the record's timeline.

// AssignIncident hands an incident to a human and moves it in progress.
// Assigning stops any further automated remediation for the incident.
func (e *Engine) AssignIncident(id, assignee, actor, notes string) (*Incident, error) {
	inc, err := e.incidents.GetIncident(id)
	if err != nil {
		return nil, err
	}

	inc.Assignee = assignee
	inc.State = StateInProgress
	display := assignee
	if display == "" {
		display = "unassigned"
	}
	inc.AppendEvent("Assigned to "+display, orEngine(actor), notes)

	if err := e.incidents.UpdateIncident(inc); err != nil {
		return nil, err
	}
	e.metrics.RecordIncident(string(StateInProgress))
	return inc, nil
}

// ResolveIncident closes an incident and cascades resolution to its open
// tickets.
func (e *Engine) ResolveIncident(id, resolvedBy, rootCause, correctiveAction, report string) (*Incident, error) {
	inc, err := e.incidents.GetIncident(id)
	if err != nil {
		return nil, err
	}

	if rootCause != "" {
		inc.RootCause = rootCause
	}
	if correctiveAction != "" {
		inc.CorrectiveAction = correctiveAction
	}
	inc.ResolvedBy = orEngine(resolvedBy)
	inc.Resolve(report)
	inc.AppendEvent("Incident resolved", inc.ResolvedBy, inc.ResolutionReport)

	if err := e.incidents.UpdateIncident(inc); err != nil {
		return nil, err
	}
	e.metrics.RecordIncident(string(StateResolved))

	notes := inc.CorrectiveAction
	if notes == "" {
		notes = "Incident resolved"
	}
	e.resolveLinkedTickets(inc, notes)
	return inc, nil
}

// AnalyzeIncident records analysis findings on an incident.
func (e *Engine) AnalyzeIncident(id, actor, analysisNotes, impactSummary, severity, category string) (*Incident, error) {
	inc, err := e.incidents.GetIncident(id)
	if err != nil {
		return nil, err
	}

	if analysisNotes != "" {
		inc.AnalysisNotes = analysisNotes
	}
	if impactSummary != "" {
		inc.ImpactSummary = impactSummary
	}
	if severity != "" {
		inc.Severity = severity
	}
	if category != "" {
		inc.Category = category
	}

	eventNotes := analysisNotes
	if eventNotes == "" {
		eventNotes = "Analysis details updated"
	}
	inc.AppendEvent("Analysis updated", orEngine(actor), eventNotes)

	if err := e.incidents.UpdateIncident(inc); err != nil {
		return nil, err
	}
	return inc, nil
}

// RetryIncident re-submits the incident's job immediately on operator
// request. Manual retries consume the same retry counter as automated ones.
func (e *Engine) RetryIncident(id, actor, notes string) (*Incident, error) {
	inc, err := e.incidents.GetIncident(id)
	if err != nil {
		return nil, err
	}

	if e.queue != nil {
		if err := e.queue.Enqueue(PipelineTask, inc.JobID); err != nil {
			return nil, fmt.Errorf("enqueue retry: %w", err)
		}
	}

	inc.State = StateInProgress
	inc.AutoRetryCount++
	inc.AppendEvent("Manual retry requested", orEngine(actor), notes)

	if err := e.incidents.UpdateIncident(inc); err != nil {
		return nil, err
	}
	return inc, nil
}

// ArchiveIncident closes an incident for record-keeping without a fix.
func (e *Engine) ArchiveIncident(id, actor, notes string) (*Incident, error) {
	inc, err := e.incidents.GetIncident(id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	inc.ArchivedAt = &now
	inc.State = StateResolved
	inc.UpdatedAt = now
	inc.AppendEvent("Incident archived", orEngine(actor), notes)

	if err := e.incidents.UpdateIncident(inc); err != nil {
		return nil, err
	}
	e.metrics.RecordIncident(string(StateResolved))
	return inc, nil
}

// CreateTicket opens a manually-filed ticket, optionally linked to an
// incident.
func (e *Engine) CreateTicket(incidentID, title, description, source string) (*Ticket, error) {
	if title == "" {
		return nil, fmt.Errorf("ticket title is required")
	}
	if incidentID != "" {
		if _, err := e.incidents.GetIncident(incidentID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	t := &Ticket{
		ID:          uuid.NewString(),
		IncidentID:  incidentID,
		Source:      orDefault(source, "manual"),
		Status:      TicketOpen,
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t.AppendEvent("Ticket created", t.Source, "")

	if err := e.tickets.CreateTicket(t); err != nil {
		return nil, err
	}
	return t, nil
}

// AssignTicket hands a ticket to a human and moves it in progress.
func (e *Engine) AssignTicket(id, assignee string) (*Ticket, error) {
	if assignee == "" {
		return nil, fmt.Errorf("assignee required")
	}
	t, err := e.tickets.GetTicket(id)
	if err != nil {
		return nil, err
	}

	t.Assignee = assignee
	t.Status = TicketInProgress
	t.AppendEvent("Assigned to "+assignee, DetectionSourceEngine, "")

	if err := e.tickets.UpdateTicket(t); err != nil {
		return nil, err
	}
	return t, nil
}

// ResolveTicket closes a ticket and cascades to its linked incident:
// the incident resolves too, with the ticket's notes as its corrective
// action. The reverse direction does not cascade.
func (e *Engine) ResolveTicket(id, resolvedBy, resolutionType, notes string) (*Ticket, error) {
	t, err := e.tickets.GetTicket(id)
	if err != nil {
		return nil, err
	}
	if t.Status == TicketResolved {
		return nil, fmt.Errorf("ticket %s already resolved", id)
	}

	t.MarkResolved(orEngine(resolvedBy), orDefault(resolutionType, "manual"), notes)
	if err := e.tickets.UpdateTicket(t); err != nil {
		return nil, err
	}

	if t.IncidentID != "" {
		inc, err := e.incidents.GetIncident(t.IncidentID)
		if err == nil && inc.State != StateResolved {
			if notes != "" {
				inc.CorrectiveAction = notes
			}
			inc.ResolvedBy = t.ResolvedBy
			inc.Resolve("")
			inc.AppendEvent("Resolved via linked ticket", t.ResolvedBy, notes)
			if err := e.incidents.UpdateIncident(inc); err != nil {
				e.logger.Error("cascade resolve incident",
					slog.String("incident_id", inc.ID),
					slog.String("error", err.Error()))
			} else {
				e.metrics.RecordIncident(string(StateResolved))
			}
		}
	}
	return t, nil
}

func orEngine(actor string) string {
	return orDefault(actor, DetectionSourceEngine)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
