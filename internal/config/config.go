package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Storage  StorageConfig  `yaml:"storage" envconfig:"STORAGE"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
}

// StorageConfig contains the file system layout for upload and export artifacts
type StorageConfig struct {
	UploadDir     string `yaml:"upload_dir" envconfig:"UPLOAD_DIR" default:"storage/uploads"`
	ExportDir     string `yaml:"export_dir" envconfig:"EXPORT_DIR" default:"storage/exports"`
	RetentionDays int    `yaml:"retention_days" envconfig:"RETENTION_DAYS" default:"30"`
}

// PipelineConfig contains pipeline execution settings
type PipelineConfig struct {
	Workers         int           `yaml:"workers" envconfig:"WORKERS" default:"4"`
	QueueDepth      int           `yaml:"queue_depth" envconfig:"QUEUE_DEPTH" default:"64"`
	RetryDelay      time.Duration `yaml:"retry_delay" envconfig:"RETRY_DELAY" default:"60s"`
	MaxAutoRetries  int           `yaml:"max_auto_retries" envconfig:"MAX_AUTO_RETRIES" default:"2"`
	RequiredColumns []string      `yaml:"required_columns" envconfig:"REQUIRED_COLUMNS" default:"student_id,score"`

	// DepartmentColumns overrides the required-column set per department.
	// File-only; departments absent here use RequiredColumns.
	DepartmentColumns map[string][]string `yaml:"department_columns" envconfig:"-"`
}

// RequiredColumnsFor returns the required-column set for a department,
// falling back to the global default.
func (p PipelineConfig) RequiredColumnsFor(department string) []string {
	if cols, ok := p.DepartmentColumns[department]; ok && len(cols) > 0 {
		return cols
	}
	return p.RequiredColumns
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// Load loads configuration from environment variables and an optional YAML file.
// Environment variables take precedence over file values.
func Load() (*Config, error) {
	return LoadFrom(configFilePath())
}

// LoadFrom loads configuration, reading the YAML file at the given path if it exists.
func LoadFrom(configFile string) (*Config, error) {
	var cfg Config

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			data, err := os.ReadFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Env overrides file values; defaults fill anything still unset.
	if err := envconfig.Process("FLOWBOARD", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := cfg.ensureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	return &cfg, nil
}

// configFilePath returns the default config file location next to the executable,
// falling back to the working directory.
func configFilePath() string {
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "flowboard.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "flowboard.yaml"
}

func (c *Config) validate() error {
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline workers must be positive, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.QueueDepth <= 0 {
		return fmt.Errorf("pipeline queue depth must be positive, got %d", c.Pipeline.QueueDepth)
	}
	if c.Pipeline.MaxAutoRetries < 0 {
		return fmt.Errorf("max auto retries cannot be negative, got %d", c.Pipeline.MaxAutoRetries)
	}
	if len(c.Pipeline.RequiredColumns) == 0 {
		return fmt.Errorf("at least one required column must be configured")
	}
	return nil
}

func (c *Config) ensureDirectories() error {
	for _, dir := range []string{c.Storage.UploadDir, c.Storage.ExportDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		if err := os.MkdirAll(filepath.Dir(c.Logging.FilePath), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return nil
}

// UploadPath returns the per-job storage path for an uploaded source file.
func (c *Config) UploadPath(jobID, filename string) string {
	return filepath.Join(c.Storage.UploadDir, jobID, filename)
}

// ExportPath returns the export path for a generated report artifact.
func (c *Config) ExportPath(filename string) string {
	return filepath.Join(c.Storage.ExportDir, filename)
}
