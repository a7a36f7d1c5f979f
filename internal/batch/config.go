package batch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/adaptocr/internal/pipeline"
	"github.com/MeKo-Tech/adaptocr/internal/source"
)

// Output formats understood by FormatResults.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Config holds all configuration for batch processing.
type Config struct {
	Executor pipeline.ExecutorConfig
	Source   source.Options

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output settings
	Format     string
	OutputFile string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ShowStats        bool
	ProgressInterval time.Duration
	ProgressWriter   io.Writer
}

// DefaultConfig returns a batch configuration with default executor settings
// and plain text output.
func DefaultConfig() *Config {
	return &Config{
		Executor:         pipeline.DefaultExecutorConfig(),
		Format:           FormatText,
		ProgressInterval: 100 * time.Millisecond,
	}
}

// Validate checks the output settings and the executor configuration.
func (c *Config) Validate() error {
	switch c.Format {
	case "", FormatText, FormatJSON, FormatCSV:
	default:
		return fmt.Errorf("unsupported output format %q", c.Format)
	}
	if c.Source.PDFPages != "" {
		if _, err := source.ParsePageRange(c.Source.PDFPages); err != nil {
			return fmt.Errorf("invalid page range: %w", err)
		}
	}
	return c.Executor.Validate()
}

func (c *Config) progressCallback() pipeline.ProgressCallback {
	if !c.ShowProgress || c.Quiet {
		return nil
	}
	w := c.ProgressWriter
	if w == nil {
		w = os.Stderr
	}
	return pipeline.NewConsoleProgressCallback(w, "Processing: ")
}

// ParseMemoryLimit parses a memory limit such as "1GB" or "512MB" into bytes.
// An empty string means no limit.
func ParseMemoryLimit(limit string) (uint64, error) {
	limit = strings.TrimSpace(strings.ToUpper(limit))
	if limit == "" {
		return 0, nil
	}

	// Longest suffix first so that "MB" is not read as "B".
	suffixes := []struct {
		suffix     string
		multiplier uint64
	}{
		{"TB", 1 << 40},
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	}

	for _, s := range suffixes {
		if strings.HasSuffix(limit, s.suffix) {
			numStr := strings.TrimSpace(strings.TrimSuffix(limit, s.suffix))
			num, err := strconv.ParseFloat(numStr, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid memory limit %q: %w", limit, err)
			}
			if num < 0 {
				return 0, errors.New("memory limit must not be negative")
			}
			return uint64(num * float64(s.multiplier)), nil
		}
	}

	num, err := strconv.ParseUint(limit, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory limit %q: %w", limit, err)
	}
	return num, nil
}
