// Package batch discovers input files, runs them through one pipeline run and
// renders the per-image report.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/MeKo-Tech/adaptocr/internal/engine"
	"github.com/MeKo-Tech/adaptocr/internal/pipeline"
	"github.com/MeKo-Tech/adaptocr/internal/source"
	"github.com/MeKo-Tech/adaptocr/internal/trace"
)

// ErrNoDocuments is returned when discovery finds nothing to process.
var ErrNoDocuments = errors.New("no image or PDF files found")

// ProcessBatch discovers the documents under paths and processes them in a
// single run. The pool comes from factory and is closed before returning.
// Per-file failures are part of the report; only setup failures are errors.
func ProcessBatch(ctx context.Context, paths []string, config *Config, factory engine.PoolFactory, sink trace.Sink) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	files, err := discoverDocuments(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover input files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoDocuments
	}
	slog.Debug("Discovered input files", "count", len(files))

	docs := source.LoadAll(files, config.Source)

	var opts []pipeline.Option
	if cb := config.progressCallback(); cb != nil {
		opts = append(opts, pipeline.WithProgress(cb))
	}
	run, err := pipeline.StartRun(ctx, config.Executor, factory, sink, opts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := run.Close(); err != nil {
			slog.Warn("Error closing run", "run_id", run.ID, "error", err)
		}
	}()

	report := run.Process(ctx, docs)
	return &Result{
		Report:      report,
		Files:       files,
		WorkerCount: config.Executor.WorkerCount,
	}, nil
}

// Result holds the result of batch processing.
type Result struct {
	Report      *pipeline.Report
	Files       []string
	WorkerCount int
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r.Report, format)
}

// SaveResults writes the formatted results to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
		return nil
	}
	_, err = fmt.Fprint(w, output)
	return err
}

// Stats summarizes a batch.
type Stats struct {
	Documents       int
	Images          int
	OK              int
	Partial         int
	Failed          int
	Cancelled       int
	NeedsReview     int
	Placeholders    int
	TwoPass         int
	Downscaled      int
	WorkerCount     int
	TotalDuration   time.Duration
	AveragePerImage time.Duration
	ImagesPerSecond float64
}

// Stats tallies the report.
func (r *Result) Stats() Stats {
	s := Stats{WorkerCount: r.WorkerCount}
	if r.Report == nil {
		return s
	}
	s.Documents = r.Report.Documents
	s.Images = len(r.Report.Results)
	s.TotalDuration = r.Report.Duration()
	for _, res := range r.Report.Results {
		switch res.Status {
		case pipeline.StatusOK:
			s.OK++
		case pipeline.StatusPartial:
			s.Partial++
		case pipeline.StatusFailed:
			s.Failed++
		case pipeline.StatusCancelled:
			s.Cancelled++
		}
		if res.NeedsReview {
			s.NeedsReview++
		}
		if res.Params != nil && res.Params.EnableTwoPass {
			s.TwoPass++
		}
		if res.DownscaleTriggered {
			s.Downscaled++
		}
		s.Placeholders += res.PlaceholdersInserted
	}
	if s.Images > 0 {
		s.AveragePerImage = s.TotalDuration / time.Duration(s.Images)
		if secs := s.TotalDuration.Seconds(); secs > 0 {
			s.ImagesPerSecond = float64(s.Images) / secs
		}
	}
	return s
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer, quiet bool) {
	if quiet {
		return
	}
	stats := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Documents: %d\n", stats.Documents)
	_, _ = fmt.Fprintf(w, "  Images: %d\n", stats.Images)
	_, _ = fmt.Fprintf(w, "  OK: %d\n", stats.OK)
	_, _ = fmt.Fprintf(w, "  Partial: %d\n", stats.Partial)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.Failed)
	if stats.Cancelled > 0 {
		_, _ = fmt.Fprintf(w, "  Cancelled: %d\n", stats.Cancelled)
	}
	_, _ = fmt.Fprintf(w, "  Needs review: %d\n", stats.NeedsReview)
	_, _ = fmt.Fprintf(w, "  Two-pass: %d\n", stats.TwoPass)
	_, _ = fmt.Fprintf(w, "  Downscaled: %d\n", stats.Downscaled)
	_, _ = fmt.Fprintf(w, "  Redactions inserted: %d\n", stats.Placeholders)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", stats.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per image: %v\n", stats.AveragePerImage.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f images/sec\n", stats.ImagesPerSecond)
}
