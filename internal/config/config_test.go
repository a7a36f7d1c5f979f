package config

import (
	"errors"
	"testing"
	"time"

	"github.com/MeKo-Tech/adaptocr/internal/ocrerr"
)

const infoLevel = "info"

// TestDefaultConfig verifies that DefaultConfig returns expected values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected log_level '%s', got %s", infoLevel, cfg.LogLevel)
	}
	if cfg.Verbose {
		t.Error("Expected verbose to be false")
	}
	if cfg.Executor.WorkerCount != 2 {
		t.Errorf("Expected worker_count 2, got %d", cfg.Executor.WorkerCount)
	}
	if cfg.Executor.GroupConcurrency != 10 {
		t.Errorf("Expected group_concurrency 10, got %d", cfg.Executor.GroupConcurrency)
	}
	if cfg.OCR.Pass1Timeout != 60*time.Second {
		t.Errorf("Expected pass1_timeout 60s, got %v", cfg.OCR.Pass1Timeout)
	}
	if cfg.OCR.Language != "eng" {
		t.Errorf("Expected language 'eng', got %s", cfg.OCR.Language)
	}
	if !cfg.Redaction.Enabled {
		t.Error("Expected redaction to be enabled")
	}
	if !cfg.Downscale.Enabled || cfg.Downscale.TargetDPI != 200 {
		t.Errorf("Expected downscale to 200 DPI, got %+v", cfg.Downscale)
	}
	if cfg.Output.Format != "text" {
		t.Errorf("Expected output format 'text', got %s", cfg.Output.Format)
	}
	if cfg.Engine.InProcess {
		t.Error("Expected worker subprocesses by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default configuration should be valid: %v", err)
	}
}

// TestValidate checks that each invalid setting is reported under its key.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"output format", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"memory limit", func(c *Config) { c.Executor.MemoryLimit = "lots" }, "executor.memory_limit"},
		{"monitor interval", func(c *Config) { c.Executor.MonitorInterval = -time.Second }, "executor.monitor_interval"},
		{"page range", func(c *Config) { c.Input.PDFPages = "0-2" }, "input.pdf_pages"},
		{"language", func(c *Config) { c.OCR.Language = "" }, "ocr.language"},
		{"worker count", func(c *Config) { c.Executor.WorkerCount = 0 }, "executor.worker_count"},
		{"group concurrency", func(c *Config) { c.Executor.GroupConcurrency = -1 }, "executor.group_concurrency"},
		{"pass2 timeout", func(c *Config) { c.OCR.Pass2Timeout = 0 }, "ocr.pass2_timeout"},
		{"stroke thresholds", func(c *Config) { c.Thresholds.ThickStrokeMin = c.Thresholds.ThinStrokeMax }, "thresholds.thick_stroke_min"},
		{"target dpi", func(c *Config) { c.Downscale.TargetDPI = 0 }, "downscale.target_dpi"},
		{"memory threshold", func(c *Config) { c.Executor.MemoryThreshold = 1.5 }, "executor.memory_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			var cfgErr *ocrerr.ConfigValidationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected ConfigValidationError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, cfgErr.Field)
			}
		})
	}
}

// TestValidate_DisabledSectionsSkipChecks checks that disabled features do not
// need valid tuning.
func TestValidate_DisabledSectionsSkipChecks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Downscale.Enabled = false
	cfg.Downscale.TargetDPI = 0
	cfg.Redaction.Enabled = false
	cfg.Redaction.Detect.MinWidth = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	cfg.Output.Format = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("Empty output format should be accepted: %v", err)
	}
}

// TestToExecutorConfig verifies the conversion to the pipeline configuration.
func TestToExecutorConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Executor.WorkerCount = 6
	cfg.Executor.GroupConcurrency = 3
	cfg.Executor.MemoryLimit = "512MB"
	cfg.Executor.MemoryThreshold = 0.9
	cfg.Executor.MonitorInterval = 0
	cfg.Redaction.Enabled = false
	cfg.OCR.Pass2Timeout = 5 * time.Second
	cfg.Thresholds.ThinStrokeMax = 1.5

	exec := cfg.ToExecutorConfig()
	if exec.WorkerCount != 6 || exec.GroupConcurrency != 3 {
		t.Errorf("Unexpected concurrency %d/%d", exec.WorkerCount, exec.GroupConcurrency)
	}
	if exec.Resources.MaxMemoryBytes != 512<<20 {
		t.Errorf("Expected 512MB limit, got %d", exec.Resources.MaxMemoryBytes)
	}
	if exec.Resources.MemoryThreshold != 0.9 {
		t.Errorf("Expected memory threshold 0.9, got %g", exec.Resources.MemoryThreshold)
	}
	if exec.Resources.MonitorInterval != time.Second {
		t.Errorf("Expected zero monitor interval to default to 1s, got %v", exec.Resources.MonitorInterval)
	}
	if exec.RedactionEnabled {
		t.Error("Expected redaction disabled")
	}
	if exec.OCR.Pass2Timeout != 5*time.Second {
		t.Errorf("Expected pass2 timeout 5s, got %v", exec.OCR.Pass2Timeout)
	}
	if exec.Thresholds.ThinStrokeMax != 1.5 {
		t.Errorf("Expected thin_stroke_max 1.5, got %g", exec.Thresholds.ThinStrokeMax)
	}
	if err := exec.Validate(); err != nil {
		t.Errorf("Converted configuration should be valid: %v", err)
	}
}

// TestToBatchConfig verifies discovery, source and output settings.
func TestToBatchConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input.Recursive = true
	cfg.Input.Include = []string{"*.png"}
	cfg.Input.Exclude = []string{"draft*"}
	cfg.Input.PDFPages = "1-2"
	cfg.Input.PDFUserPassword = "secret"
	cfg.Output.Format = "json"
	cfg.Output.File = "out.json"
	cfg.Output.Progress = true
	cfg.Output.Stats = true

	bc := cfg.ToBatchConfig()
	if !bc.Recursive {
		t.Error("Expected recursive discovery")
	}
	if len(bc.IncludePatterns) != 1 || bc.IncludePatterns[0] != "*.png" {
		t.Errorf("Unexpected include patterns %v", bc.IncludePatterns)
	}
	if len(bc.ExcludePatterns) != 1 || bc.ExcludePatterns[0] != "draft*" {
		t.Errorf("Unexpected exclude patterns %v", bc.ExcludePatterns)
	}
	if bc.Source.PDFPages != "1-2" || bc.Source.PDFUserPassword != "secret" {
		t.Errorf("Unexpected source options %+v", bc.Source)
	}
	if bc.Format != "json" || bc.OutputFile != "out.json" {
		t.Errorf("Unexpected output %s -> %s", bc.Format, bc.OutputFile)
	}
	if !bc.ShowProgress || !bc.ShowStats {
		t.Error("Expected progress and stats enabled")
	}
	if bc.Executor.WorkerCount != cfg.Executor.WorkerCount {
		t.Errorf("Executor settings not carried over")
	}

	cfg.Output.Format = ""
	if got := cfg.ToBatchConfig().Format; got != "text" {
		t.Errorf("Expected empty format to fall back to text, got %s", got)
	}
}
