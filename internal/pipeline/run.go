// Package pipeline schedules documents over a run-scoped recognition pool:
// bounded group concurrency, optional memory backpressure and a per-image
// status report that never aborts on a single bad page.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/adaptocr/internal/engine"
	"github.com/MeKo-Tech/adaptocr/internal/ocrerr"
	"github.com/MeKo-Tech/adaptocr/internal/profile"
	"github.com/MeKo-Tech/adaptocr/internal/source"
	"github.com/MeKo-Tech/adaptocr/internal/trace"
)

// ErrRunClosed is reported for documents submitted after Close.
var ErrRunClosed = errors.New("run is closed")

// Option customizes a Run.
type Option func(*Run)

// WithProgress reports per-part progress to cb.
func WithProgress(cb ProgressCallback) Option {
	return func(r *Run) {
		if cb != nil {
			r.progress = cb
		}
	}
}

// Run owns the recognition pool for the lifetime of a batch. Create it with
// StartRun and always defer Close.
type Run struct {
	ID string

	cfg       ExecutorConfig
	pool      engine.Pool
	sink      trace.Sink
	analyzer  *profile.Analyzer
	resources *ResourceManager
	progress  ProgressCallback
	started   time.Time

	inFlight  atomic.Int32
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	mu     sync.Mutex
	totals map[Status]int
	images int
}

// StartRun validates cfg, creates the pool exactly once through factory and
// emits run.start. A nil sink discards events.
func StartRun(ctx context.Context, cfg ExecutorConfig, factory engine.PoolFactory, sink trace.Sink, opts ...Option) (*Run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, errors.New("nil pool factory")
	}
	if sink == nil {
		sink = trace.Nop{}
	}
	pool, err := factory(ctx, cfg.WorkerCount)
	if err != nil {
		return nil, fmt.Errorf("start worker pool: %w", err)
	}

	r := &Run{
		ID:        uuid.NewString(),
		cfg:       cfg,
		pool:      pool,
		analyzer:  profile.New(cfg.Profile),
		resources: NewResourceManager(cfg.Resources),
		progress:  NoOpProgressCallback{},
		started:   time.Now(),
		totals:    make(map[Status]int),
	}
	r.sink = trace.WithFields(sink, "run_id", r.ID)
	for _, opt := range opts {
		opt(r)
	}
	r.resources.Start()

	capacity := cfg.GroupConcurrency * cfg.WorkerCount
	slog.Info("Run started",
		"run_id", r.ID,
		"worker_count", cfg.WorkerCount,
		"group_concurrency", cfg.GroupConcurrency,
		"capacity", capacity,
		"memory_limit_bytes", cfg.Resources.MaxMemoryBytes)
	r.sink.Emit(trace.NewEvent(trace.EventRunStart,
		"worker_count", cfg.WorkerCount,
		"group_concurrency", cfg.GroupConcurrency,
		"capacity", capacity,
		"redaction_enabled", cfg.RedactionEnabled,
		"downscale_enabled", cfg.Downscale.Enabled,
	))
	return r, nil
}

// Config returns the run's configuration.
func (r *Run) Config() ExecutorConfig { return r.cfg }

// Process runs every document and returns a report with one result per
// frame. Up to GroupConcurrency documents are in flight; frames within a
// document run in order. Cancelling ctx marks unfinished work as cancelled.
func (r *Run) Process(ctx context.Context, docs []source.Document) *Report {
	report := &Report{RunID: r.ID, Started: time.Now(), Documents: len(docs)}
	perDoc := make([][]ImageResult, len(docs))

	if r.closed.Load() {
		for i, doc := range docs {
			perDoc[i] = []ImageResult{failedDocument(doc, ErrRunClosed)}
			r.emitResult(trace.WithFields(r.sink, "doc_id", doc.ID), perDoc[i][0])
		}
		return r.finish(report, perDoc)
	}

	total := source.Frames(docs)
	var done atomic.Int32
	r.progress.OnStart(total)

	var g errgroup.Group
	g.SetLimit(r.cfg.GroupConcurrency)
	for i, doc := range docs {
		if err := r.resources.WaitForCapacity(ctx, func() int { return int(r.inFlight.Load()) }); err != nil {
			perDoc[i] = []ImageResult{cancelledDocument(doc, err)}
			r.emitResult(trace.WithFields(r.sink, "doc_id", doc.ID), perDoc[i][0])
			continue
		}
		r.inFlight.Add(1)
		g.Go(func() error {
			defer r.inFlight.Add(-1)
			perDoc[i] = r.processDocument(ctx, doc, func(res []ImageResult) {
				n := int(done.Add(1))
				for _, ir := range res {
					if ir.Status == StatusFailed {
						r.progress.OnError(n, ir.Err)
					}
				}
				r.progress.OnProgress(n, total)
			})
			return nil
		})
	}
	_ = g.Wait()
	r.progress.OnComplete()
	return r.finish(report, perDoc)
}

func (r *Run) finish(report *Report, perDoc [][]ImageResult) *Report {
	for _, res := range perDoc {
		report.Results = append(report.Results, res...)
	}
	report.Finished = time.Now()
	report.Resources = r.resources.GetStats()

	r.mu.Lock()
	for _, res := range report.Results {
		r.totals[res.Status]++
	}
	r.images += len(report.Results)
	r.mu.Unlock()
	return report
}

// Close tears down the pool and the resource monitor and emits run.finish.
// It is idempotent and safe to defer.
func (r *Run) Close() error {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		r.resources.Stop()
		r.closeErr = r.pool.Close()

		r.mu.Lock()
		ev := trace.NewEvent(trace.EventRunFinish,
			"images", r.images,
			"ok", r.totals[StatusOK],
			"partial", r.totals[StatusPartial],
			"failed", r.totals[StatusFailed],
			"cancelled", r.totals[StatusCancelled],
			"duration_ms", time.Since(r.started),
		)
		r.mu.Unlock()
		r.sink.Emit(ev)
		slog.Info("Run finished", "run_id", r.ID, "images", r.images, "duration", time.Since(r.started).Round(time.Millisecond))
	})
	return r.closeErr
}

func failedDocument(doc source.Document, err error) ImageResult {
	res := ImageResult{DocumentID: doc.ID, DocumentName: doc.Name, Status: StatusFailed, NeedsReview: true}
	res.setErr(err)
	return res
}

func cancelledDocument(doc source.Document, cause error) ImageResult {
	res := ImageResult{DocumentID: doc.ID, DocumentName: doc.Name, Status: StatusCancelled, NeedsReview: true}
	res.setErr(ocrerr.Cancelled(cause))
	return res
}
