package config

import (
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/adaptocr/internal/batch"
	"github.com/MeKo-Tech/adaptocr/internal/ocrerr"
	"github.com/MeKo-Tech/adaptocr/internal/orchestrator"
	"github.com/MeKo-Tech/adaptocr/internal/pipeline"
	"github.com/MeKo-Tech/adaptocr/internal/preprocess"
	"github.com/MeKo-Tech/adaptocr/internal/profile"
	"github.com/MeKo-Tech/adaptocr/internal/recommend"
	"github.com/MeKo-Tech/adaptocr/internal/redaction"
	"github.com/MeKo-Tech/adaptocr/internal/source"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{batch.FormatText, batch.FormatJSON, batch.FormatCSV}
)

// DefaultConfig returns a configuration with production defaults.
func DefaultConfig() Config {
	exec := pipeline.DefaultExecutorConfig()
	return Config{
		LogLevel: "info",
		Executor: ExecutorConfig{
			WorkerCount:      exec.WorkerCount,
			GroupConcurrency: exec.GroupConcurrency,
			MemoryThreshold:  exec.Resources.MemoryThreshold,
			MonitorInterval:  exec.Resources.MonitorInterval,
		},
		OCR:        orchestrator.DefaultConfig(),
		Profile:    profile.DefaultConfig(),
		Thresholds: recommend.DefaultThresholds(),
		Preprocess: preprocess.DefaultPrepareConfig(),
		Downscale:  preprocess.DefaultDownscaleConfig(),
		Redaction: RedactionConfig{
			Enabled:  exec.RedactionEnabled,
			Detect:   redaction.DefaultDetectConfig(),
			Validate: redaction.DefaultValidateConfig(),
		},
		Output: OutputConfig{
			Format: batch.FormatText,
		},
	}
}

// Validate checks the settings owned by this package and then the executor
// configuration derived from it. Errors are *ocrerr.ConfigValidationError.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return ocrerr.NewConfigError("log_level", "%q is not one of %s", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return ocrerr.NewConfigError("output.format", "%q is not one of %s", c.Output.Format, strings.Join(validFormats, ", "))
	}
	if c.Executor.MonitorInterval < 0 {
		return ocrerr.NewConfigError("executor.monitor_interval", "must not be negative, got %v", c.Executor.MonitorInterval)
	}
	if _, err := batch.ParseMemoryLimit(c.Executor.MemoryLimit); err != nil {
		return ocrerr.NewConfigError("executor.memory_limit", "%v", err)
	}
	if _, err := source.ParsePageRange(c.Input.PDFPages); err != nil {
		return ocrerr.NewConfigError("input.pdf_pages", "%v", err)
	}
	if c.OCR.Language == "" {
		return ocrerr.NewConfigError("ocr.language", "must not be empty")
	}
	return c.ToExecutorConfig().Validate()
}

// ToExecutorConfig converts to the pipeline's executor configuration. The
// memory limit must already be valid; an unparsable value disables it.
func (c *Config) ToExecutorConfig() pipeline.ExecutorConfig {
	limit, _ := batch.ParseMemoryLimit(c.Executor.MemoryLimit)
	interval := c.Executor.MonitorInterval
	if interval == 0 {
		interval = time.Second
	}
	return pipeline.ExecutorConfig{
		WorkerCount:      c.Executor.WorkerCount,
		GroupConcurrency: c.Executor.GroupConcurrency,
		Profile:          c.Profile,
		Thresholds:       c.Thresholds,
		Prepare:          c.Preprocess,
		Downscale:        c.Downscale,
		RedactionEnabled: c.Redaction.Enabled,
		Detect:           c.Redaction.Detect,
		Validation:       c.Redaction.Validate,
		OCR:              c.OCR,
		Resources: pipeline.ResourceConfig{
			MaxMemoryBytes:  limit,
			MemoryThreshold: c.Executor.MemoryThreshold,
			MonitorInterval: interval,
		},
	}
}

// ToSourceOptions returns the PDF extraction options.
func (c *Config) ToSourceOptions() source.Options {
	return source.Options{
		PDFPages:         c.Input.PDFPages,
		PDFUserPassword:  c.Input.PDFUserPassword,
		PDFOwnerPassword: c.Input.PDFOwnerPassword,
	}
}

// ToBatchConfig builds the batch configuration for the run command.
func (c *Config) ToBatchConfig() *batch.Config {
	bc := batch.DefaultConfig()
	bc.Executor = c.ToExecutorConfig()
	bc.Source = c.ToSourceOptions()
	bc.Recursive = c.Input.Recursive
	bc.IncludePatterns = c.Input.Include
	bc.ExcludePatterns = c.Input.Exclude
	if c.Output.Format != "" {
		bc.Format = c.Output.Format
	}
	bc.OutputFile = c.Output.File
	bc.ShowProgress = c.Output.Progress
	bc.ShowStats = c.Output.Stats
	return bc
}
