package operations

import (
	"fmt"
	"sort"
	"sync"
)

// MemoryJobStore is an in-memory implementation of JobStore.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*UploadJob
}

// NewMemoryJobStore creates a new in-memory job store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*UploadJob)}
}

// CreateJob creates a new job.
func (s *MemoryJobStore) CreateJob(job *UploadJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}

	jobCopy := *job
	s.jobs[job.ID] = &jobCopy
	return nil
}

// GetJob retrieves a job by ID.
func (s *MemoryJobStore) GetJob(id string) (*UploadJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, fmt.Errorf("job %s not found", id)
	}

	// Return a copy to prevent external modification
	jobCopy := *job
	return &jobCopy, nil
}

// UpdateJob updates an existing job.
func (s *MemoryJobStore) UpdateJob(job *UploadJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; !exists {
		return fmt.Errorf("job %s not found", job.ID)
	}

	jobCopy := *job
	s.jobs[job.ID] = &jobCopy
	return nil
}

// ListJobs returns jobs matching the filter, newest first.
func (s *MemoryJobStore) ListJobs(filter JobFilter) ([]*UploadJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*UploadJob
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.Department != "" && job.Department != filter.Department {
			continue
		}
		if !filter.Since.IsZero() && job.CreatedAt.Before(filter.Since) {
			continue
		}
		jobCopy := *job
		result = append(result, &jobCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// DeleteJob removes a job from the store.
func (s *MemoryJobStore) DeleteJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; !exists {
		return fmt.Errorf("job %s not found", id)
	}

	delete(s.jobs, id)
	return nil
}

// MemoryRunStore is an in-memory implementation of RunStore.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewMemoryRunStore creates a new in-memory run store.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[string]*Run)}
}

// CreateRun creates a new run.
func (s *MemoryRunStore) CreateRun(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}

	runCopy := *run
	s.runs[run.ID] = &runCopy
	return nil
}

// GetRun retrieves a run by ID.
func (s *MemoryRunStore) GetRun(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[id]
	if !exists {
		return nil, fmt.Errorf("run %s not found", id)
	}

	runCopy := *run
	runCopy.Steps = append([]StepRecord(nil), run.Steps...)
	return &runCopy, nil
}

// UpdateRun updates an existing run.
func (s *MemoryRunStore) UpdateRun(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; !exists {
		return fmt.Errorf("run %s not found", run.ID)
	}

	runCopy := *run
	runCopy.Steps = append([]StepRecord(nil), run.Steps...)
	s.runs[run.ID] = &runCopy
	return nil
}

// ListRunsForJob returns every run for a job, newest first.
func (s *MemoryRunStore) ListRunsForJob(jobID string) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Run
	for _, run := range s.runs {
		if run.JobID != jobID {
			continue
		}
		runCopy := *run
		runCopy.Steps = append([]StepRecord(nil), run.Steps...)
		result = append(result, &runCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	return result, nil
}
