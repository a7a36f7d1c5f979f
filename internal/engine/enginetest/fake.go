// Package enginetest provides a scriptable recognition engine for tests.
package enginetest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MeKo-Tech/adaptocr/internal/common"
	"github.com/MeKo-Tech/adaptocr/internal/engine"
)

// Behavior scripts the answer to one pass.
type Behavior struct {
	Text  string
	Words []engine.Word
	Delay time.Duration // honoured with ctx, so a short timeout interrupts it
	Err   error
}

// Fake is a concurrency-safe engine that answers from per-pass scripts and
// records every call.
type Fake struct {
	mu       sync.Mutex
	byPass   map[string]Behavior
	fallback Behavior
	respond  func(req engine.Request) (Behavior, bool)
	calls    []engine.Request
	inFlight int
	peak     int
	closed   bool
}

// New returns a fake that answers "text" to every pass.
func New() *Fake {
	return &Fake{byPass: make(map[string]Behavior), fallback: Behavior{Text: "text"}}
}

// On scripts the answer for pass.
func (f *Fake) On(pass string, b Behavior) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byPass[pass] = b
	return f
}

// Default scripts the answer for passes without a specific script.
func (f *Fake) Default(b Behavior) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = b
	return f
}

// RespondWith installs a function consulted before the per-pass scripts.
// Returning false falls through to them.
func (f *Fake) RespondWith(fn func(req engine.Request) (Behavior, bool)) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.respond = fn
	return f
}

func (f *Fake) Recognize(ctx context.Context, req engine.Request) (engine.Response, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return engine.Response{}, errors.New("fake engine closed")
	}
	f.calls = append(f.calls, req)
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	b, ok := f.byPass[req.Pass]
	if !ok {
		b = f.fallback
	}
	respond := f.respond
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if respond != nil {
		if rb, ok := respond(req); ok {
			b = rb
		}
	}

	started := time.Now()
	if b.Delay > 0 {
		t := time.NewTimer(b.Delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return engine.Response{}, fmt.Errorf("fake engine interrupted: %w", ctx.Err())
		}
	}
	if b.Err != nil {
		return engine.Response{}, b.Err
	}
	resp := engine.Response{ID: req.ID, Text: b.Text, Started: started, Finished: time.Now()}
	resp.EngineMillis = common.Millis(resp.Finished.Sub(started))
	if req.WantWords {
		resp.Words = append([]engine.Word(nil), b.Words...)
	}
	return resp, nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Calls returns the recorded requests in call order.
func (f *Fake) Calls() []engine.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.Request(nil), f.calls...)
}

// Passes returns the pass names of the recorded calls in order.
func (f *Fake) Passes() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Pass
	}
	return out
}

// CallCount returns how many calls named pass were made.
func (f *Fake) CallCount(pass string) int {
	n := 0
	for _, p := range f.Passes() {
		if p == pass {
			n++
		}
	}
	return n
}

// Peak returns the highest number of simultaneous calls observed.
func (f *Fake) Peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Pool wraps the fake in a LocalPool of size n.
func (f *Fake) Pool(n int) *engine.LocalPool {
	p, err := engine.NewLocalPool(f, n)
	if err != nil {
		panic(err)
	}
	return p
}

// MaxOverlap returns the largest number of [Started, Finished) intervals that
// overlap at any instant.
func MaxOverlap(resps []engine.Response) int {
	type edge struct {
		at    time.Time
		delta int
	}
	edges := make([]edge, 0, 2*len(resps))
	for _, r := range resps {
		edges = append(edges, edge{r.Started, 1}, edge{r.Finished, -1})
	}
	// Ends sort before starts at the same instant.
	slices.SortStableFunc(edges, func(a, b edge) int {
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}
		return a.delta - b.delta
	})
	cur, peak := 0, 0
	for _, e := range edges {
		cur += e.delta
		peak = max(peak, cur)
	}
	return peak
}
