package incident

import "time"

// Incident states. Resolved is terminal; a new distinct failure opens a
// fresh incident rather than re-opening an old one.
type State string

const (
	StateOpen       State = "open"
	StateInProgress State = "in_progress"
	StateResolved   State = "resolved"
)

// Ticket statuses.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
)

// DetectionSourceEngine marks incidents raised by the pipeline itself.
// Automated remediation only ever touches engine-detected incidents.
const DetectionSourceEngine = "engine"

// DefaultMaxAutoRetries bounds the retry loop when a rule does not set its
// own cap.
const DefaultMaxAutoRetries = 2

// RepairAction identifies one automated data repair.
type RepairAction string

const (
	RepairPromoteHeader    RepairAction = "promote_header"
	RepairReEncode         RepairAction = "reencode"
	RepairResaveNormalized RepairAction = "resave_normalized"
	RepairDropDuplicates   RepairAction = "drop_duplicates"
	RepairClipScore        RepairAction = "clip_score"
)

// AutoRetryPolicy is a rule's bounded retry declaration.
type AutoRetryPolicy struct {
	Enabled      bool `json:"enabled"`
	Max          int  `json:"max,omitempty" validate:"gte=0"`
	DelaySeconds int  `json:"delay_seconds,omitempty" validate:"gte=0"`
}

// FixPayload is the remedy attached to a known error rule. All string
// fields merge onto an incident non-destructively.
type FixPayload struct {
	Severity         string           `json:"severity,omitempty" validate:"omitempty,oneof=low medium high critical"`
	Category         string           `json:"category,omitempty"`
	RootCause        string           `json:"root_cause,omitempty"`
	CorrectiveAction string           `json:"corrective_action,omitempty"`
	ResolutionReport string           `json:"resolution_report,omitempty"`
	AutoRetry        *AutoRetryPolicy `json:"auto_retry,omitempty"`
	Repairs          []RepairAction   `json:"repairs,omitempty"`
}

// KnownErrorRule maps a regex pattern onto a remedy. Administered
// externally; the engine only reads active rules.
type KnownErrorRule struct {
	ID        string     `json:"id"`
	Name      string     `json:"name" validate:"required"`
	Pattern   string     `json:"pattern" validate:"required"`
	Fix       FixPayload `json:"fix"`
	Examples  []string   `json:"examples,omitempty"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TimelineEvent is one append-only entry in an incident or ticket history.
type TimelineEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	Actor     string    `json:"actor"`
	Notes     string    `json:"notes,omitempty"`
}

// Incident is a tracked failure instance for one job and the run that
// raised it.
type Incident struct {
	ID               string          `json:"id"`
	JobID            string          `json:"job_id"`
	RunID            string          `json:"run_id"`
	Error            string          `json:"error"`
	State            State           `json:"state"`
	MatchedRuleID    string          `json:"matched_rule_id,omitempty"`
	Severity         string          `json:"severity,omitempty"`
	Category         string          `json:"category,omitempty"`
	RootCause        string          `json:"root_cause,omitempty"`
	CorrectiveAction string          `json:"corrective_action,omitempty"`
	ResolutionReport string          `json:"resolution_report,omitempty"`
	AnalysisNotes    string          `json:"analysis_notes,omitempty"`
	ImpactSummary    string          `json:"impact_summary,omitempty"`
	DetectionSource  string          `json:"detection_source"`
	Assignee         string          `json:"assignee,omitempty"`
	ResolvedBy       string          `json:"resolved_by,omitempty"`
	AutoRetryCount   int             `json:"auto_retry_count"`
	MaxAutoRetries   int             `json:"max_auto_retries"`
	Timeline         []TimelineEvent `json:"timeline"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	ResolvedAt       *time.Time      `json:"resolved_at,omitempty"`
	ArchivedAt       *time.Time      `json:"archived_at,omitempty"`
}

// AppendEvent adds a timeline entry.
func (i *Incident) AppendEvent(event, actor, notes string) {
	i.Timeline = append(i.Timeline, TimelineEvent{
		Timestamp: time.Now().UTC(),
		Event:     event,
		Actor:     actor,
		Notes:     notes,
	})
	i.UpdatedAt = time.Now().UTC()
}

// Resolve stamps the terminal state and resolution fields. Safe to call on
// an already-resolved incident.
func (i *Incident) Resolve(report string) {
	if i.State == StateResolved {
		return
	}
	now := time.Now().UTC()
	i.State = StateResolved
	i.ResolvedAt = &now
	i.UpdatedAt = now
	if report != "" {
		i.ResolutionReport = report
	}
}

// Ticket is a human-facing issue optionally linked to an incident.
type Ticket struct {
	ID              string          `json:"id"`
	IncidentID      string          `json:"incident_id,omitempty"`
	Source          string          `json:"source"`
	Status          TicketStatus    `json:"status"`
	Assignee        string          `json:"assignee,omitempty"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	ResolvedBy      string          `json:"resolved_by,omitempty"`
	ResolutionType  string          `json:"resolution_type,omitempty"`
	ResolutionNotes string          `json:"resolution_notes,omitempty"`
	Timeline        []TimelineEvent `json:"timeline"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
}

// MarkResolved stamps the ticket's resolution fields and timeline.
func (t *Ticket) MarkResolved(resolvedBy, resolutionType, notes string) {
	now := time.Now().UTC()
	t.Status = TicketResolved
	t.ResolvedBy = resolvedBy
	t.ResolutionType = resolutionType
	t.ResolutionNotes = notes
	t.ResolvedAt = &now
	t.AppendEvent("Ticket resolved by "+resolvedBy+" ("+resolutionType+")", resolvedBy, notes)
}

// AppendEvent adds a timeline entry.
func (t *Ticket) AppendEvent(event, actor, notes string) {
	t.Timeline = append(t.Timeline, TimelineEvent{
		Timestamp: time.Now().UTC(),
		Event:     event,
		Actor:     actor,
		Notes:     notes,
	})
	t.UpdatedAt = time.Now().UTC()
}
