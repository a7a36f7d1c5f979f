package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/MeKo-Tech/adaptocr/internal/ocrerr"
)

// ProcessPoolConfig describes how to launch worker processes.
type ProcessPoolConfig struct {
	Command string   // executable, usually os.Executable()
	Args    []string // e.g. ["worker", "--language", "eng"]
	Env     []string // appended to os.Environ()
	Size    int
}

// respawnBackoff spaces out retries of a failed replacement while other
// workers are still serving.
const respawnBackoff = 500 * time.Millisecond

// ProcessPool keeps Size long-lived worker processes speaking the JSON-lines
// protocol on stdin/stdout. Each worker handles one call at a time; a worker
// that times out or dies is killed and replaced. A closed pool rejects calls.
type ProcessPool struct {
	cfg  ProcessPoolConfig
	idle chan *worker

	// vacancy wakes callers waiting for a worker when a replacement failed.
	vacancy chan struct{}

	mu          sync.Mutex
	workers     map[*worker]struct{}
	missing     int // slots whose replacement failed to start
	lastFailure time.Time
	closed      bool
	done        chan struct{}

	closeOnce sync.Once
}

type worker struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	enc    *json.Encoder
	dec    *json.Decoder
	stderr *tailBuffer
	exited chan struct{}
}

// NewProcessPool starts cfg.Size workers. If any fails to start, the ones
// already running are stopped.
func NewProcessPool(ctx context.Context, cfg ProcessPoolConfig) (*ProcessPool, error) {
	if cfg.Size <= 0 {
		return nil, ocrerr.NewConfigError("executor.worker_count", "must be positive, got %d", cfg.Size)
	}
	if cfg.Command == "" {
		return nil, ocrerr.NewConfigError("engine.command", "worker command is empty")
	}
	p := &ProcessPool{
		cfg:     cfg,
		idle:    make(chan *worker, cfg.Size),
		vacancy: make(chan struct{}, 1),
		workers: make(map[*worker]struct{}, cfg.Size),
		done:    make(chan struct{}),
	}
	for i := 0; i < cfg.Size; i++ {
		if err := ctx.Err(); err != nil {
			_ = p.Close()
			return nil, err
		}
		w, err := p.spawn()
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p.idle <- w
	}
	slog.Debug("Engine process pool started", "workers", cfg.Size, "command", cfg.Command)
	return p, nil
}

// Size returns the number of worker processes.
func (p *ProcessPool) Size() int { return p.cfg.Size }

func (p *ProcessPool) spawn() (*worker, error) {
	cmd := exec.Command(p.cfg.Command, p.cfg.Args...) //nolint:gosec // worker binary is our own executable
	cmd.Env = append(os.Environ(), p.cfg.Env...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	stderr := newTailBuffer(4096)
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second
	if err := cmd.Start(); err != nil {
		return nil, &ocrerr.OCREngineError{Pass: "start", Err: err}
	}

	w := &worker{
		cmd:    cmd,
		stdin:  stdin,
		enc:    json.NewEncoder(stdin),
		dec:    json.NewDecoder(bufio.NewReaderSize(stdout, 1<<20)),
		stderr: stderr,
		exited: make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		close(w.exited)
	}()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		w.kill()
		return nil, ErrPoolClosed
	}
	p.workers[w] = struct{}{}
	return w, nil
}

func (w *worker) pid() int {
	if w.cmd.Process == nil {
		return 0
	}
	return w.cmd.Process.Pid
}

// kill terminates the process and waits for it to be reaped.
func (w *worker) kill() {
	_ = w.stdin.Close()
	if w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
	<-w.exited
}

type callResult struct {
	resp Response
	err  error
}

// Recognize runs req on the next idle worker. Waiting for a worker and waiting
// for the answer are the two points where the caller yields.
func (p *ProcessPool) Recognize(ctx context.Context, req Request, timeout time.Duration) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, ocrerr.Cancelled(err)
	}
	w, err := p.acquire(ctx, req.Pass)
	if err != nil {
		return Response{}, err
	}
	if p.isClosed() {
		p.release(w, false)
		return Response{}, ErrPoolClosed
	}

	result := make(chan callResult, 1)
	go func() {
		if err := w.enc.Encode(&req); err != nil {
			result <- callResult{err: err}
			return
		}
		var resp Response
		err := w.dec.Decode(&resp)
		result <- callResult{resp: resp, err: err}
	}()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case r := <-result:
		if r.err != nil {
			stderr := w.stderr.String()
			p.release(w, true)
			return Response{}, &ocrerr.OCREngineError{Pass: req.Pass, Err: fmt.Errorf("worker %d: %w", w.pid(), r.err), Stderr: stderr}
		}
		p.release(w, false)
		if r.resp.ID != req.ID {
			return r.resp, &ocrerr.OCREngineError{Pass: req.Pass, Err: fmt.Errorf("response id %q does not match request %q", r.resp.ID, req.ID)}
		}
		if r.resp.Error != "" {
			return r.resp, &ocrerr.OCREngineError{Pass: req.Pass, Err: errors.New(r.resp.Error)}
		}
		return r.resp, nil
	case <-timer:
		slog.Warn("Engine call timed out, replacing worker", "pass", req.Pass, "worker_pid", w.pid(), "timeout", timeout)
		p.release(w, true)
		return Response{WorkerPID: w.pid()}, &ocrerr.OCRTimeoutError{Pass: req.Pass, Timeout: timeout, Err: context.DeadlineExceeded}
	case <-ctx.Done():
		p.release(w, true)
		return Response{}, ocrerr.Cancelled(ctx.Err())
	case <-p.done:
		return Response{}, ErrPoolClosed
	}
}

// acquire returns an idle worker. Slots lost to failed replacements are
// retried here; when no worker is left at all the call fails at once instead
// of waiting for one that will never come back.
func (p *ProcessPool) acquire(ctx context.Context, pass string) (*worker, error) {
	for {
		w, err := p.replaceMissing(pass)
		if err != nil || w != nil {
			return w, err
		}
		select {
		case <-p.done:
			return nil, ErrPoolClosed
		case <-ctx.Done():
			return nil, ocrerr.Cancelled(ctx.Err())
		case w = <-p.idle:
			return w, nil
		case <-p.vacancy:
		}
	}
}

// replaceMissing starts a worker for a lost slot. While other workers remain
// it retries at most once per respawnBackoff and reports nothing on failure.
func (p *ProcessPool) replaceMissing(pass string) (*worker, error) {
	p.mu.Lock()
	if p.missing == 0 || p.closed {
		p.mu.Unlock()
		return nil, nil
	}
	empty := len(p.workers) == 0
	if !empty && time.Since(p.lastFailure) < respawnBackoff {
		p.mu.Unlock()
		return nil, nil
	}
	p.missing--
	p.mu.Unlock()

	w, err := p.spawn()
	if err == nil {
		slog.Info("Engine worker replaced", "worker_pid", w.pid())
		return w, nil
	}
	if errors.Is(err, ErrPoolClosed) {
		return nil, err
	}

	p.mu.Lock()
	p.missing++
	p.lastFailure = time.Now()
	empty = len(p.workers) == 0
	p.mu.Unlock()
	if !empty {
		return nil, nil
	}
	// Pass the wake-up on so every other waiter fails fast too.
	p.signalVacancy()
	return nil, &ocrerr.OCREngineError{Pass: pass, Err: fmt.Errorf("no engine workers available: %w", err)}
}

func (p *ProcessPool) signalVacancy() {
	select {
	case p.vacancy <- struct{}{}:
	default:
	}
}

// release hands w back to the idle set, or kills it and starts a replacement
// when broken is set. A replacement that fails to start leaves a missing slot
// that acquire retries.
func (p *ProcessPool) release(w *worker, broken bool) {
	if !broken && !p.isClosed() {
		select {
		case p.idle <- w:
			return
		default:
		}
	}

	p.mu.Lock()
	delete(p.workers, w)
	p.mu.Unlock()
	w.kill()

	if p.isClosed() {
		return
	}
	nw, err := p.spawn()
	if err != nil {
		if errors.Is(err, ErrPoolClosed) {
			return
		}
		slog.Error("Failed to replace engine worker", "error", err)
		p.mu.Lock()
		p.missing++
		p.lastFailure = time.Now()
			p.mu.Unlock()
		p.signalVacancy()
		return
	}
	select {
	case p.idle <- nw:
	default:
		nw.kill()
	}
}

func (p *ProcessPool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close kills and reaps every worker. It is idempotent.
func (p *ProcessPool) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.done)
		workers := make([]*worker, 0, len(p.workers))
		for w := range p.workers {
			workers = append(workers, w)
		}
		p.workers = map[*worker]struct{}{}
		p.mu.Unlock()

		for _, w := range workers {
			w.kill()
		}
		slog.Debug("Engine process pool closed", "workers", len(workers))
	})
	return nil
}

// Live returns the PIDs of the running workers.
func (p *ProcessPool) Live() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, 0, len(p.workers))
	for w := range p.workers {
		out = append(out, w.pid())
	}
	return out
}

// tailBuffer keeps the last n bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	n   int
	buf []byte
}

func newTailBuffer(n int) *tailBuffer { return &tailBuffer{n: n} }

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.n {
		t.buf = append([]byte(nil), t.buf[len(t.buf)-t.n:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
