package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/adaptocr/internal/batch"
	"github.com/MeKo-Tech/adaptocr/internal/config"
	"github.com/MeKo-Tech/adaptocr/internal/pipeline"
)

// runCmd processes files and directories as one batch.
var runCmd = &cobra.Command{
	Use:   "run [files or directories...]",
	Short: "Extract text from images and PDFs with adaptive OCR",
	Long: `Process image files and PDFs as one batch. Every page is profiled, gets its
own processing decision and produces exactly one result, even when it fails.

Supported formats: JPEG, PNG, BMP, TIFF, GIF (every frame), PDF (embedded page images)

Examples:
  adaptocr run scan.png
  adaptocr run scans/ --recursive --workers 4 --format csv --output results.csv
  adaptocr run archive/ --include '*.pdf' --pdf-pages 1-2 --trace trace.jsonl
  adaptocr run scans/ --memory-limit 2GB --metrics-file adaptocr.prom --stats`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runRunCommand,
}

// runFlagKeys maps run flags to configuration keys. Bound flags override the
// file and the environment when set.
var runFlagKeys = map[string]string{
	"workers":           "executor.worker_count",
	"group-concurrency": "executor.group_concurrency",
	"memory-limit":      "executor.memory_limit",
	"in-process":        "engine.in_process",
	"tessdata-dir":      "engine.tessdata_dir",
	"language":          "ocr.language",
	"psm":               "ocr.page_seg_mode",
	"pass1-timeout":     "ocr.pass1_timeout",
	"pass2-timeout":     "ocr.pass2_timeout",
	"redaction-timeout": "ocr.redaction_timeout",
	"redaction":         "redaction.enabled",
	"downscale":         "downscale.enabled",
	"target-dpi":        "downscale.target_dpi",
	"recursive":         "input.recursive",
	"include":           "input.include",
	"exclude":           "input.exclude",
	"pdf-pages":         "input.pdf_pages",
	"pdf-password":      "input.pdf_user_password",
	"format":            "output.format",
	"output":            "output.file",
	"trace":             "output.trace_file",
	"metrics-file":      "output.metrics_file",
	"progress":          "output.progress",
	"stats":             "output.stats",
}

func init() {
	d := config.DefaultConfig()
	f := runCmd.Flags()

	f.IntP("workers", "w", d.Executor.WorkerCount, "number of recognition worker processes")
	f.Int("group-concurrency", d.Executor.GroupConcurrency, "documents processed concurrently")
	f.String("memory-limit", "", "memory budget for backpressure (e.g. 2GB); empty disables it")
	f.Bool("in-process", false, "run the engine in this process instead of worker processes")
	f.String("tessdata-dir", "", "directory containing Tesseract language data")
	f.StringP("language", "l", d.OCR.Language, "Tesseract language(s), e.g. eng or deu+eng")
	f.Int("psm", d.OCR.PageSegMode, "Tesseract page segmentation mode")
	f.Duration("pass1-timeout", d.OCR.Pass1Timeout, "timeout of the primary pass")
	f.Duration("pass2-timeout", d.OCR.Pass2Timeout, "timeout of the stipple pass")
	f.Duration("redaction-timeout", d.OCR.RedactionTimeout, "timeout of the word-box pass")
	f.Bool("redaction", d.Redaction.Enabled, "detect redaction bars and mask covered words")
	f.Bool("downscale", d.Downscale.Enabled, "downscale high-resolution scans before recognition")
	f.Float64("target-dpi", d.Downscale.TargetDPI, "resolution that high-resolution scans are reduced to")
	f.BoolP("recursive", "r", false, "process directories recursively")
	f.StringSlice("include", nil, "include files matching these patterns (e.g. '*.png')")
	f.StringSlice("exclude", nil, "exclude files matching these patterns")
	f.String("pdf-pages", "", "PDF pages to process, e.g. 1-3,5 (default all)")
	f.String("pdf-password", "", "user password for encrypted PDFs")
	f.StringP("format", "f", d.Output.Format, "output format (text, json, csv)")
	f.StringP("output", "o", "", "write results to file instead of stdout")
	f.String("trace", "", "append trace events to this JSON-lines file")
	f.String("metrics-file", "", "write Prometheus metrics to this textfile after the run")
	f.Bool("progress", false, "show a progress bar on stderr")
	f.Bool("stats", false, "print batch statistics on stderr")
	f.BoolP("quiet", "q", false, "suppress progress and informational output")
	f.Bool("strict", false, "exit non-zero when any image failed")

	bindFlags(f, runFlagKeys)

	rootCmd.AddCommand(runCmd)
}

func runRunCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	quiet, _ := cmd.Flags().GetBool("quiet")
	strict, _ := cmd.Flags().GetBool("strict")

	bc := cfg.ToBatchConfig()
	bc.Quiet = quiet
	bc.ProgressWriter = cmd.ErrOrStderr()

	factory, err := newPoolFactory(cfg)
	if err != nil {
		return err
	}
	sink, metrics, err := traceSinks(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			slog.Warn("Error closing trace sinks", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := batch.ProcessBatch(ctx, args, bc, factory, sink)
	if err != nil {
		return err
	}

	if metrics != nil {
		if err := metrics.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			slog.Warn("Could not write metrics", "file", cfg.Output.MetricsFile, "error", err)
		}
	}
	if err := result.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, bc.Quiet); err != nil {
		return err
	}
	if bc.ShowStats {
		result.PrintStats(cmd.ErrOrStderr(), bc.Quiet)
	}

	for _, res := range result.Report.Degraded() {
		slog.Warn("Image needs review",
			"document", res.DocumentName,
			"page", res.Page,
			"frame", res.Frame,
			"status", res.Status,
			"error_kind", res.ErrorKind,
			"error", res.Error)
	}

	if strict {
		counts := result.Report.Counts()
		if failed := counts[pipeline.StatusFailed] + counts[pipeline.StatusCancelled]; failed > 0 {
			return fmt.Errorf("%d of %d images failed", failed, len(result.Report.Results))
		}
	}
	return nil
}
