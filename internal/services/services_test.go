package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OnlyArkMani/Flowboard/internal/config"
	"github.com/OnlyArkMani/Flowboard/internal/operations"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Storage: config.StorageConfig{
			UploadDir:     filepath.Join(dir, "uploads"),
			ExportDir:     filepath.Join(dir, "exports"),
			RetentionDays: 30,
		},
	}
}

func TestSubmitFile(t *testing.T) {
	cfg := testConfig(t)
	jobs := operations.NewMemoryJobStore()
	svc := NewIntakeService(cfg, jobs, nil)

	src := filepath.Join(t.TempDir(), "grades.csv")
	require.NoError(t, os.WriteFile(src, []byte("student_id,score\nS1,90\n"), 0644))

	job, err := svc.SubmitFile(src, "science", "transform_gradebook", json.RawMessage(`{}`))
	require.NoError(t, err)

	assert.Equal(t, "grades.csv", job.Filename)
	assert.Equal(t, "science", job.Department)
	assert.Equal(t, operations.JobStatusPending, job.Status)
	assert.Equal(t, cfg.UploadPath(job.ID, "grades.csv"), job.StoredPath)

	copied, err := os.ReadFile(job.StoredPath)
	require.NoError(t, err)
	assert.Equal(t, "student_id,score\nS1,90\n", string(copied))

	stored, err := jobs.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StoredPath, stored.StoredPath)
}

func TestSubmitFileRejectsMissingSource(t *testing.T) {
	svc := NewIntakeService(testConfig(t), operations.NewMemoryJobStore(), nil)

	_, err := svc.SubmitFile(filepath.Join(t.TempDir(), "missing.csv"), "science", "", nil)
	require.Error(t, err)
}

func TestSubmitFileRejectsDirectory(t *testing.T) {
	svc := NewIntakeService(testConfig(t), operations.NewMemoryJobStore(), nil)

	_, err := svc.SubmitFile(t.TempDir(), "science", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestPurgeExpiredExports(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Storage.ExportDir, 0755))

	oldFile := filepath.Join(cfg.Storage.ExportDir, "old_report.csv")
	freshFile := filepath.Join(cfg.Storage.ExportDir, "fresh_report.csv")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(freshFile, []byte("x"), 0644))

	stale := time.Now().Add(-40 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, stale, stale))

	require.NoError(t, PurgeExpiredExports(cfg, nil)(context.Background()))

	assert.NoFileExists(t, oldFile)
	assert.FileExists(t, freshFile)
}

func TestPurgeExpiredExportsMissingDir(t *testing.T) {
	cfg := testConfig(t)
	// Export dir never created.
	require.NoError(t, PurgeExpiredExports(cfg, nil)(context.Background()))
}

func TestPurgeDisabledWithZeroRetention(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.RetentionDays = 0
	require.NoError(t, os.MkdirAll(cfg.Storage.ExportDir, 0755))

	oldFile := filepath.Join(cfg.Storage.ExportDir, "old_report.csv")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0644))
	stale := time.Now().Add(-400 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, stale, stale))

	require.NoError(t, PurgeExpiredExports(cfg, nil)(context.Background()))
	assert.FileExists(t, oldFile)
}
