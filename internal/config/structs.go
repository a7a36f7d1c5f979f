//nolint:lll
package config

import (
	"time"

	"github.com/MeKo-Tech/adaptocr/internal/orchestrator"
	"github.com/MeKo-Tech/adaptocr/internal/preprocess"
	"github.com/MeKo-Tech/adaptocr/internal/profile"
	"github.com/MeKo-Tech/adaptocr/internal/recommend"
	"github.com/MeKo-Tech/adaptocr/internal/redaction"
)

// Config is the complete adaptocr configuration. It is loaded from a YAML
// file, ADAPTOCR_* environment variables and command-line flags, in
// increasing order of precedence.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Executor   ExecutorConfig             `mapstructure:"executor" yaml:"executor" json:"executor"`
	Engine     EngineConfig               `mapstructure:"engine" yaml:"engine" json:"engine"`
	OCR        orchestrator.Config        `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	Profile    profile.Config             `mapstructure:"profile" yaml:"profile" json:"profile"`
	Thresholds recommend.Thresholds       `mapstructure:"thresholds" yaml:"thresholds" json:"thresholds"`
	Preprocess preprocess.PrepareConfig   `mapstructure:"preprocess" yaml:"preprocess" json:"preprocess"`
	Downscale  preprocess.DownscaleConfig `mapstructure:"downscale" yaml:"downscale" json:"downscale"`
	Redaction  RedactionConfig            `mapstructure:"redaction" yaml:"redaction" json:"redaction"`
	Input      InputConfig                `mapstructure:"input" yaml:"input" json:"input"`
	Output     OutputConfig               `mapstructure:"output" yaml:"output" json:"output"`
}

// ExecutorConfig controls scheduling and memory backpressure.
type ExecutorConfig struct {
	WorkerCount      int           `mapstructure:"worker_count" yaml:"worker_count" json:"worker_count"`
	GroupConcurrency int           `mapstructure:"group_concurrency" yaml:"group_concurrency" json:"group_concurrency"`
	MemoryLimit      string        `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit"`
	MemoryThreshold  float64       `mapstructure:"memory_threshold" yaml:"memory_threshold" json:"memory_threshold"`
	MonitorInterval  time.Duration `mapstructure:"monitor_interval" yaml:"monitor_interval" json:"monitor_interval"`
}

// EngineConfig selects how recognition workers are launched.
type EngineConfig struct {
	// InProcess runs the engine inside this process instead of in worker
	// subprocesses. Timeouts then cannot interrupt a running call.
	InProcess   bool   `mapstructure:"in_process" yaml:"in_process" json:"in_process"`
	TessdataDir string `mapstructure:"tessdata_dir" yaml:"tessdata_dir" json:"tessdata_dir"`
}

// RedactionConfig toggles and tunes redaction handling.
type RedactionConfig struct {
	Enabled  bool                     `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Detect   redaction.DetectConfig   `mapstructure:"detect" yaml:"detect" json:"detect"`
	Validate redaction.ValidateConfig `mapstructure:"validate" yaml:"validate" json:"validate"`
}

// InputConfig controls file discovery and PDF extraction.
type InputConfig struct {
	Recursive        bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include          []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude          []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	PDFPages         string   `mapstructure:"pdf_pages" yaml:"pdf_pages" json:"pdf_pages"`
	PDFUserPassword  string   `mapstructure:"pdf_user_password" yaml:"pdf_user_password,omitempty" json:"-"`
	PDFOwnerPassword string   `mapstructure:"pdf_owner_password" yaml:"pdf_owner_password,omitempty" json:"-"`
}

// OutputConfig controls result, trace and metrics output.
type OutputConfig struct {
	Format      string `mapstructure:"format" yaml:"format" json:"format"`
	File        string `mapstructure:"file" yaml:"file" json:"file"`
	TraceFile   string `mapstructure:"trace_file" yaml:"trace_file" json:"trace_file"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file" json:"metrics_file"`
	Progress    bool   `mapstructure:"progress" yaml:"progress" json:"progress"`
	Stats       bool   `mapstructure:"stats" yaml:"stats" json:"stats"`
}
