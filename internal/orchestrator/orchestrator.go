// Package orchestrator drives the recognition of one prepared image through an
// explicit state machine: an optional second stipple pass, line-level merge,
// an optional word-box pass for redaction placeholders and deterministic text
// post-processing.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/MeKo-Tech/adaptocr/internal/common"
	"github.com/MeKo-Tech/adaptocr/internal/engine"
	"github.com/MeKo-Tech/adaptocr/internal/ocrerr"
	"github.com/MeKo-Tech/adaptocr/internal/preprocess"
	"github.com/MeKo-Tech/adaptocr/internal/profile"
	"github.com/MeKo-Tech/adaptocr/internal/recommend"
	"github.com/MeKo-Tech/adaptocr/internal/trace"
	"github.com/MeKo-Tech/adaptocr/internal/utils"
)

// Pass names as they appear in requests, timings and trace events.
const (
	PassPrimary   = "pass1"
	PassStipple   = "pass2"
	PassRedaction = "redaction"

	timingPostprocess = "postprocess"
)

// Status is the overall outcome of one image.
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Config holds the per-pass budgets and text handling options.
type Config struct {
	Pass1Timeout     time.Duration     `mapstructure:"pass1_timeout" yaml:"pass1_timeout"`
	Pass2Timeout     time.Duration     `mapstructure:"pass2_timeout" yaml:"pass2_timeout"`
	RedactionTimeout time.Duration     `mapstructure:"redaction_timeout" yaml:"redaction_timeout"`
	StippleKernel    int               `mapstructure:"stipple_kernel" yaml:"stipple_kernel"`
	Language         string            `mapstructure:"language" yaml:"language"`
	PageSegMode      int               `mapstructure:"page_seg_mode" yaml:"page_seg_mode"`
	MinWordOverlap   float64           `mapstructure:"min_word_overlap" yaml:"min_word_overlap"`
	Postprocess      PostprocessConfig `mapstructure:"postprocess" yaml:"postprocess"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Pass1Timeout:     60 * time.Second,
		Pass2Timeout:     60 * time.Second,
		RedactionTimeout: 60 * time.Second,
		StippleKernel:    3,
		Language:         "eng",
		PageSegMode:      3,
		MinWordOverlap:   0.01,
		Postprocess:      DefaultPostprocessConfig(),
	}
}

// Input is everything the state machine needs for one image. Image must be
// the final prepared and downscaled image; Redactions are validated boxes in
// its coordinates.
type Input struct {
	ID         string
	Image      *image.Gray
	DPI        float64
	Profile    profile.ImageProfile
	Params     recommend.Params
	Redactions []image.Rectangle
}

// Result is the outcome of one image.
type Result struct {
	MergedText           string
	PassText             map[string]string
	Timings              map[string]time.Duration
	PlaceholdersInserted int
	Status               Status
	ErrorKind            ocrerr.Kind
	Err                  error
	NeedsReview          bool
	States               []State
	MergeStats           MergeStats
}

// Orchestrator runs the state machine against a shared pool. It holds no
// per-image state and is safe for concurrent use.
type Orchestrator struct {
	pool engine.Pool
	cfg  Config
	sink trace.Sink
}

// New returns an orchestrator. A nil sink discards events.
func New(pool engine.Pool, cfg Config, sink trace.Sink) *Orchestrator {
	if sink == nil {
		sink = trace.Nop{}
	}
	return &Orchestrator{pool: pool, cfg: cfg, sink: sink}
}

// machine is the mutable state of one Run.
type machine struct {
	o       *Orchestrator
	in      Input
	png     []byte
	merged  string
	timings *common.Timings
	res     Result
}

// Run processes one image and always returns a Result; failures are reported
// through Status, ErrorKind and Err.
func (o *Orchestrator) Run(ctx context.Context, in Input) Result {
	m := &machine{
		o:       o,
		in:      in,
		timings: common.NewTimings(),
		res:     Result{PassText: make(map[string]string)},
	}
	state := StateInit
	for {
		m.res.States = append(m.res.States, state)
		if state.Terminal() {
			break
		}
		next := m.step(ctx, state)
		if !CanTransition(state, next) {
			m.res.Err = fmt.Errorf("illegal transition %s -> %s", state, next)
			next = StateError
		}
		state = next
	}
	if state == StateError {
		m.finishError()
	}
	m.res.Timings = m.timings.Map()
	return m.res
}

func (m *machine) step(ctx context.Context, s State) State {
	switch s {
	case StateInit:
		return m.init()
	case StatePass1:
		return m.pass1(ctx)
	case StatePass2:
		return m.pass2(ctx)
	case StateMerge:
		return m.merge()
	case StateRedaction:
		return m.redaction(ctx)
	case StatePostprocess:
		return m.postprocess()
	}
	m.res.Err = fmt.Errorf("no handler for state %s", s)
	return StateError
}

func (m *machine) init() State {
	m.o.sink.Emit(trace.NewEvent(trace.EventDecision,
		"image_id", m.in.ID,
		"profile", m.in.Profile.Fields(),
	).WithMap(m.in.Params.Fields()))

	if m.in.Image == nil || m.in.Image.Bounds().Empty() {
		m.res.Err = &utils.ImageProcessingError{Operation: "encode", Err: errors.New("empty image")}
		return StateError
	}
	data, err := utils.EncodePNGWithDPI(m.in.Image, m.in.DPI)
	if err != nil {
		m.res.Err = &utils.ImageProcessingError{Operation: "encode", Err: err}
		return StateError
	}
	m.png = data
	return StatePass1
}

func (m *machine) pass1(ctx context.Context) State {
	resp, err := m.recognize(ctx, PassPrimary, m.png, m.o.cfg.Pass1Timeout, false)
	if err != nil {
		m.res.Err = err
		return StateError
	}
	m.res.PassText[PassPrimary] = resp.Text
	if m.in.Params.EnableTwoPass {
		return StatePass2
	}
	return StateMerge
}

func (m *machine) pass2(ctx context.Context) State {
	stippled := preprocess.StippleTransform(m.in.Image, m.o.cfg.StippleKernel)
	data, err := utils.EncodePNGWithDPI(stippled, m.in.DPI)
	if err != nil {
		m.res.Err = &utils.ImageProcessingError{Operation: "encode stipple", Err: err}
		return StateError
	}
	resp, err := m.recognize(ctx, PassStipple, data, m.o.cfg.Pass2Timeout, false)
	if err != nil {
		m.res.Err = err
		return StateError
	}
	m.res.PassText[PassStipple] = resp.Text
	return StateMerge
}

func (m *machine) merge() State {
	second, ok := m.res.PassText[PassStipple]
	if ok {
		m.merged, m.res.MergeStats = MergeLines(m.res.PassText[PassPrimary], second)
	} else {
		lines := splitLines(m.res.PassText[PassPrimary])
		m.merged = m.res.PassText[PassPrimary]
		m.res.MergeStats = MergeStats{Lines: len(lines), FromPass1: len(lines)}
	}
	if len(m.in.Redactions) > 0 {
		return StateRedaction
	}
	return StatePostprocess
}

func (m *machine) redaction(ctx context.Context) State {
	resp, err := m.recognize(ctx, PassRedaction, m.png, m.o.cfg.RedactionTimeout, true)
	if err != nil {
		m.res.Err = err
		return StateError
	}
	out := ApplyRedactions(m.merged, resp.Words, m.in.Redactions, m.o.cfg.MinWordOverlap)
	if out.Unplaced > 0 {
		slog.Debug("Redacted words not found in merged text", "image_id", m.in.ID, "unplaced", out.Unplaced)
	}
	m.merged = out.Text
	m.res.PlaceholdersInserted = out.Inserted
	return StatePostprocess
}

func (m *machine) postprocess() State {
	timer := common.NewNamedTimer(timingPostprocess)
	m.res.MergedText = Postprocess(m.merged, m.o.cfg.Postprocess)
	m.timings.Record(timer)
	m.res.Status = StatusOK
	return StateDone
}

// finishError keeps the best text recovered before the failure.
func (m *machine) finishError() {
	best := m.merged
	if best == "" {
		best = m.res.PassText[PassPrimary]
	}
	m.res.MergedText = Postprocess(best, m.o.cfg.Postprocess)
	m.res.NeedsReview = true
	m.res.ErrorKind = ocrerr.KindOf(m.res.Err)
	if m.res.MergedText != "" {
		m.res.Status = StatusPartial
	} else {
		m.res.Status = StatusFailed
	}
}

// recognize runs one timed engine call and emits its ocr.pass event. Worker
// details come from the response the worker returned.
func (m *machine) recognize(ctx context.Context, pass string, data []byte, timeout time.Duration, wantWords bool) (engine.Response, error) {
	req := engine.Request{
		ID:          m.in.ID + "/" + pass,
		Pass:        pass,
		Image:       data,
		DPI:         m.in.DPI,
		Language:    m.o.cfg.Language,
		PageSegMode: m.o.cfg.PageSegMode,
		WantWords:   wantWords,
	}
	timer := common.NewNamedTimer(pass)
	resp, err := m.o.pool.Recognize(ctx, req, timeout)
	elapsed := m.timings.Record(timer)

	outcome := "ok"
	if err != nil {
		outcome = string(ocrerr.KindOf(err))
	}
	ev := trace.NewEvent(trace.EventPass,
		"image_id", m.in.ID,
		"pass_name", pass,
		"duration_ms", elapsed,
		"outcome", outcome,
		"worker_pid", resp.WorkerPID,
		"engine_ms", resp.EngineMillis,
		"chars", utf8.RuneCountInString(resp.Text),
	)
	if wantWords {
		ev = ev.With("words", len(resp.Words))
	}
	if err != nil {
		ev = ev.With("error", err)
	}
	m.o.sink.Emit(ev)
	return resp, err
}
