// Package services holds the intake surface and housekeeping tasks around
// the pipeline core.
package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/OnlyArkMani/Flowboard/internal/config"
	"github.com/OnlyArkMani/Flowboard/internal/operations"
	"github.com/OnlyArkMani/Flowboard/internal/validation"
)

// IntakeService registers submitted files as upload jobs and copies them
// into managed storage.
type IntakeService struct {
	cfg       *config.Config
	jobs      operations.JobStore
	validator *validation.UploadValidator
	logger    *slog.Logger
}

// NewIntakeService creates an intake service.
func NewIntakeService(cfg *config.Config, jobs operations.JobStore, logger *slog.Logger) *IntakeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntakeService{
		cfg:       cfg,
		jobs:      jobs,
		validator: validation.NewUploadValidator(0, logger),
		logger:    logger,
	}
}

// SubmitFile copies a source file into upload storage and creates a pending
// job for it. The returned job is ready to enqueue.
func (s *IntakeService) SubmitFile(sourcePath, department, processMode string, processConfig json.RawMessage) (*operations.UploadJob, error) {
	if err := s.validator.ValidateUpload(sourcePath); err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	filename := filepath.Base(sourcePath)
	storedPath := s.cfg.UploadPath(jobID, filename)

	if err := copyFile(sourcePath, storedPath); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	now := time.Now().UTC()
	job := &operations.UploadJob{
		ID:            jobID,
		Department:    department,
		Filename:      filename,
		StoredPath:    storedPath,
		ProcessMode:   processMode,
		ProcessConfig: processConfig,
		Status:        operations.JobStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.jobs.CreateJob(job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.logger.Info("upload registered",
		slog.String("job_id", job.ID),
		slog.String("filename", filename),
		slog.String("department", department))
	return job, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
