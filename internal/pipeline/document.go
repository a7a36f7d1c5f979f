package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"runtime/debug"
	"time"
	"unicode/utf8"

	"github.com/MeKo-Tech/adaptocr/internal/ocrerr"
	"github.com/MeKo-Tech/adaptocr/internal/orchestrator"
	"github.com/MeKo-Tech/adaptocr/internal/preprocess"
	"github.com/MeKo-Tech/adaptocr/internal/recommend"
	"github.com/MeKo-Tech/adaptocr/internal/redaction"
	"github.com/MeKo-Tech/adaptocr/internal/source"
	"github.com/MeKo-Tech/adaptocr/internal/trace"
)

// processDocument handles the parts and frames of one document in order.
// onPart is called after each part with the results it produced.
func (r *Run) processDocument(ctx context.Context, doc source.Document, onPart func([]ImageResult)) []ImageResult {
	if doc.Err != nil {
		res := []ImageResult{failedDocument(doc, doc.Err)}
		r.emitResult(trace.WithFields(r.sink, "doc_id", doc.ID), res[0])
		onPart(res)
		return res
	}

	var out []ImageResult
	for pi, part := range doc.Parts {
		base := ImageResult{DocumentID: doc.ID, DocumentName: doc.Name, Part: pi, Page: part.Page}
		sink := trace.WithFields(r.sink, "doc_id", doc.ID, "part", pi)

		if err := ctx.Err(); err != nil {
			res := base
			res.Status, res.NeedsReview = StatusCancelled, true
			res.setErr(ocrerr.Cancelled(err))
			r.emitResult(sink, res)
			out = append(out, res)
			onPart([]ImageResult{res})
			continue
		}

		frames, err := preprocess.Decode(part.Data)
		if err != nil {
			res := base
			res.Status, res.NeedsReview = StatusFailed, true
			res.setErr(err)
			r.emitResult(sink, res)
			out = append(out, res)
			onPart([]ImageResult{res})
			continue
		}

		var partResults []ImageResult
		for _, frame := range frames {
			res := base
			res.Frame = frame.Index
			fsink := trace.WithFields(sink, "frame", frame.Index)
			if err := ctx.Err(); err != nil {
				res.Status, res.NeedsReview = StatusCancelled, true
				res.setErr(ocrerr.Cancelled(err))
			} else {
				res = r.processFrame(ctx, res, frame, fsink)
			}
			r.emitResult(fsink, res)
			partResults = append(partResults, res)
		}
		out = append(out, partResults...)
		onPart(partResults)
	}
	return out
}

// processFrame runs profile, recommendation, preprocessing, downscale,
// redaction detection and the recognition state machine for one frame. A
// panic anywhere inside becomes a failed result.
func (r *Run) processFrame(ctx context.Context, res ImageResult, frame preprocess.Frame, sink trace.Sink) (out ImageResult) {
	start := time.Now()
	imageID := fmt.Sprintf("%s/%d/%d", res.DocumentID, res.Part, frame.Index)
	defer func() {
		if p := recover(); p != nil {
			slog.Error("Panic while processing image", "image_id", imageID, "panic", p, "stack", string(debug.Stack()))
			out = res
			out.Status, out.NeedsReview = StatusFailed, true
			out.setErr(fmt.Errorf("panic: %v", p))
		}
		out.Duration = time.Since(start)
	}()

	if frame.Err != nil {
		res.Status, res.NeedsReview = StatusFailed, true
		res.setErr(frame.Err)
		return res
	}
	prof, err := r.analyzer.Analyze(frame.Gray, frame.MetadataDPI)
	if err != nil {
		res.Status, res.NeedsReview = StatusFailed, true
		res.setErr(err)
		return res
	}
	res.Profile = &prof
	sink.Emit(trace.NewEvent(trace.EventProfile, "image_id", imageID).WithMap(prof.Fields()))

	params := recommend.Recommend(prof, r.cfg.Thresholds, int(r.cfg.Downscale.TargetDPI))
	res.Params = &params

	prepared := preprocess.Prepare(frame.Gray, params, r.cfg.Prepare)
	ds := preprocess.Downscale(prepared, prof.DetectedDPI, r.cfg.Downscale)
	sink.Emit(trace.NewEvent(trace.EventDownscale, "image_id", imageID).WithMap(ds.Fields()))
	if ds.Err != nil {
		slog.Warn("Downscale failed, keeping original resolution", "image_id", imageID, "error", ds.Err)
		sink.Emit(trace.NewEvent(trace.EventDownscaleError, "image_id", imageID, "error", ds.Err, "input_dpi", ds.InputDPI))
	}
	res.DownscaleTriggered, res.DownscaleReason = ds.Triggered, ds.Reason

	boxes := r.detectRedactions(ds, imageID, sink, &res)

	result := orchestrator.New(r.pool, r.cfg.OCR, sink).Run(ctx, orchestrator.Input{
		ID:         imageID,
		Image:      ds.Image,
		DPI:        ds.OutputDPI,
		Profile:    prof,
		Params:     params,
		Redactions: boxes,
	})

	res.Text = result.MergedText
	res.Status = result.Status
	res.NeedsReview = result.NeedsReview
	res.PlaceholdersInserted = result.PlaceholdersInserted
	res.States = result.States
	res.MergeStats = result.MergeStats
	res.Timings = result.Timings
	if result.Err != nil {
		res.setErr(result.Err)
		if res.ErrorKind == ocrerr.KindCancelled {
			res.Status = StatusCancelled
		}
	}
	return res
}

func (r *Run) detectRedactions(ds preprocess.DownscaleResult, imageID string, sink trace.Sink, res *ImageResult) []image.Rectangle {
	if !r.cfg.RedactionEnabled {
		return nil
	}
	cands := redaction.Detect(ds.Image, r.cfg.Detect)
	sink.Emit(trace.NewEvent(trace.EventRedactDetect, "image_id", imageID, "candidates", len(cands)))

	v := redaction.Validate(ds.Image, cands, r.cfg.Validation)
	gate := redaction.Gate(v)
	sink.Emit(trace.NewEvent(trace.EventRedactGate,
		"image_id", imageID,
		"candidates_in", len(cands),
		"candidates_validated", len(v.Accepted),
		"rejected", v.Rejected(),
		"redaction_pass", gate,
	))
	res.RedactionCandidates = len(cands)
	res.RedactionsValidated = len(v.Accepted)
	if !gate {
		return nil
	}
	return v.Rects()
}

func (r *Run) emitResult(sink trace.Sink, res ImageResult) {
	sink.Emit(trace.NewEvent(trace.EventImageResult,
		"status", string(res.Status),
		"error_kind", string(res.ErrorKind),
		"needs_review", res.NeedsReview,
		"placeholders", res.PlaceholdersInserted,
		"chars", utf8.RuneCountInString(res.Text),
		"duration_ms", res.Duration,
	))
}
