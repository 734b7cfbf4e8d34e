// Package validation checks payloads and files once, at the system
// boundary. Everything past intake assumes its inputs have been through
// here.
package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/OnlyArkMani/Flowboard/internal/dataprocessing"
)

// DefaultMaxUploadBytes bounds accepted upload size.
const DefaultMaxUploadBytes = 64 << 20

// UploadValidator validates submitted source files before they become jobs.
//
// Extension checks here are advisory only: intake accepts files the loader
// will later reject, because a rejected file still has to flow through the
// pipeline to produce a classifiable failure. Only structurally unusable
// submissions (missing, empty, directory, oversized) are refused outright.
type UploadValidator struct {
	maxBytes int64
	logger   *slog.Logger
}

// NewUploadValidator creates an upload validator. maxBytes <= 0 selects the
// default cap.
func NewUploadValidator(maxBytes int64, logger *slog.Logger) *UploadValidator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadValidator{maxBytes: maxBytes, logger: logger}
}

// ValidateUpload checks that path points at a usable source file.
func (v *UploadValidator) ValidateUpload(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("source file %s does not exist", path)
		}
		return fmt.Errorf("stat source file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("source path %s is a directory", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("source file %s is empty", path)
	}
	if info.Size() > v.maxBytes {
		return fmt.Errorf("source file %s exceeds the %d byte limit", path, v.maxBytes)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !dataprocessing.SupportedExtension(ext) {
		v.logger.Warn("upload has an unsupported extension, accepting for classification",
			slog.String("path", path),
			slog.String("extension", ext))
	}
	return nil
}
