package operations

import "time"

// JobFilter narrows ListJobs results. Zero values mean "no constraint".
type JobFilter struct {
	Status     JobStatus
	Department string
	Since      time.Time
	Limit      int
}

// JobStore persists upload jobs.
type JobStore interface {
	CreateJob(job *UploadJob) error
	GetJob(id string) (*UploadJob, error)
	UpdateJob(job *UploadJob) error
	ListJobs(filter JobFilter) ([]*UploadJob, error)
	DeleteJob(id string) error
}

// RunStore persists pipeline runs.
type RunStore interface {
	CreateRun(run *Run) error
	GetRun(id string) (*Run, error)
	UpdateRun(run *Run) error
	ListRunsForJob(jobID string) ([]*Run, error)
}
