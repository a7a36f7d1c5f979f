package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/MeKo-Tech/adaptocr/internal/config"
	"github.com/MeKo-Tech/adaptocr/internal/engine"
	"github.com/MeKo-Tech/adaptocr/internal/engine/tesseract"
	"github.com/MeKo-Tech/adaptocr/internal/trace"
)

// newPoolFactory builds the recognition pool factory for a run. Tests replace
// it with a scripted engine.
var newPoolFactory = defaultPoolFactory

func defaultPoolFactory(cfg *config.Config) (engine.PoolFactory, error) {
	if cfg.Engine.InProcess {
		return func(_ context.Context, size int) (engine.Pool, error) {
			eng, err := tesseract.New(tesseractConfig(cfg))
			if err != nil {
				return nil, err
			}
			pool, err := engine.NewLocalPool(eng, size)
			if err != nil {
				_ = eng.Close()
				return nil, err
			}
			return pool, nil
		}, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate worker executable: %w", err)
	}
	args := workerArgs(cfg)
	return func(ctx context.Context, size int) (engine.Pool, error) {
		pool, err := engine.NewProcessPool(ctx, engine.ProcessPoolConfig{
			Command: exe,
			Args:    args,
			Size:    size,
		})
		if err != nil {
			return nil, err
		}
		slog.Debug("Started worker processes", "pids", pool.Live())
		return pool, nil
	}, nil
}

func tesseractConfig(cfg *config.Config) tesseract.Config {
	tc := tesseract.DefaultConfig()
	if cfg.OCR.Language != "" {
		tc.Language = cfg.OCR.Language
	}
	if cfg.OCR.PageSegMode > 0 {
		tc.PageSegMode = cfg.OCR.PageSegMode
	}
	tc.TessdataDir = cfg.Engine.TessdataDir
	return tc
}

// workerArgs re-invokes this binary in worker mode with the engine defaults
// of the parent. The worker loads the same configuration file.
func workerArgs(cfg *config.Config) []string {
	tc := tesseractConfig(cfg)
	args := []string{"worker", "--language", tc.Language, "--psm", strconv.Itoa(tc.PageSegMode), "--log-level", cfg.LogLevel}
	if tc.TessdataDir != "" {
		args = append(args, "--tessdata-dir", tc.TessdataDir)
	}
	if cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}
	return args
}

// traceSinks fans events out to the debug log and, when configured, a
// JSON-lines file and a metrics registry. The returned sink must be closed.
func traceSinks(cfg *config.Config) (trace.Sink, *trace.MetricsSink, error) {
	sinks := trace.Multi{trace.NewSlogSink(slog.Default(), slog.LevelDebug)}
	if cfg.Output.TraceFile != "" {
		jsonl, err := trace.OpenJSONLFile(cfg.Output.TraceFile)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, jsonl)
	}
	var metrics *trace.MetricsSink
	if cfg.Output.MetricsFile != "" {
		metrics = trace.NewMetricsSink()
		sinks = append(sinks, metrics)
	}
	return sinks, metrics, nil
}
