package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/MeKo-Tech/adaptocr/internal/common"
	"github.com/MeKo-Tech/adaptocr/internal/ocrerr"
)

// LocalPool runs an in-process Engine with at most Size concurrent calls.
// It backs tests and the --in-process mode, where spawning workers is not
// wanted. The Engine must honor context cancellation for timeouts to free a
// slot promptly.
type LocalPool struct {
	eng  Engine
	sem  chan struct{}
	done chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

// NewLocalPool wraps eng. size must be positive.
func NewLocalPool(eng Engine, size int) (*LocalPool, error) {
	if size <= 0 {
		return nil, ocrerr.NewConfigError("executor.worker_count", "must be positive, got %d", size)
	}
	if eng == nil {
		return nil, errors.New("nil engine")
	}
	return &LocalPool{eng: eng, sem: make(chan struct{}, size), done: make(chan struct{})}, nil
}

// LocalFactory adapts NewLocalPool to a PoolFactory. The engine is shared by
// every slot, so it must be safe for concurrent use.
func LocalFactory(eng Engine) PoolFactory {
	return func(_ context.Context, size int) (Pool, error) {
		return NewLocalPool(eng, size)
	}
}

// Size returns the concurrency bound.
func (p *LocalPool) Size() int { return cap(p.sem) }

// Recognize acquires a slot and calls the engine under a deadline of timeout.
func (p *LocalPool) Recognize(ctx context.Context, req Request, timeout time.Duration) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, ocrerr.Cancelled(err)
	}
	select {
	case <-p.done:
		return Response{}, ErrPoolClosed
	case <-ctx.Done():
		return Response{}, ocrerr.Cancelled(ctx.Err())
	case p.sem <- struct{}{}:
	}
	defer func() { <-p.sem }()

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return Response{}, ErrPoolClosed
	}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := p.eng.Recognize(callCtx, req)
	finished := time.Now()

	resp.ID = req.ID
	if resp.WorkerPID == 0 {
		resp.WorkerPID = os.Getpid()
	}
	if resp.Started.IsZero() {
		resp.Started, resp.Finished = started, finished
		resp.EngineMillis = common.Millis(finished.Sub(started))
	}

	switch {
	case err == nil:
		return resp, nil
	case ctx.Err() != nil:
		return Response{}, ocrerr.Cancelled(ctx.Err())
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return resp, &ocrerr.OCRTimeoutError{Pass: req.Pass, Timeout: timeout, Err: err}
	}
	var engErr *ocrerr.OCREngineError
	if errors.As(err, &engErr) {
		return resp, err
	}
	return resp, &ocrerr.OCREngineError{Pass: req.Pass, Err: fmt.Errorf("local engine: %w", err)}
}

// Close closes the engine once. Calls already running finish normally.
func (p *LocalPool) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.done)
		p.mu.Unlock()
		err = p.eng.Close()
	})
	return err
}
