// Package engine defines the contract with the external recognition engine
// and the worker pools that run it. The engine is a black box: PNG in, text
// (and optionally word boxes) out.
package engine

import (
	"context"
	"errors"
	"image"
	"time"
)

// ErrPoolClosed is returned by Recognize after Close.
var ErrPoolClosed = errors.New("engine pool is closed")

// Request is one recognition call.
type Request struct {
	ID          string  `json:"id"`
	Pass        string  `json:"pass"`
	Image       []byte  `json:"image"` // PNG, resolution declared in pHYs
	DPI         float64 `json:"dpi,omitempty"`
	Language    string  `json:"language,omitempty"`
	PageSegMode int     `json:"psm,omitempty"`
	WantWords   bool    `json:"want_words,omitempty"`
}

// Word is a recognized word with its pixel box.
type Word struct {
	Text       string  `json:"text"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	W          int     `json:"w"`
	H          int     `json:"h"`
	Confidence float64 `json:"conf"`
}

// Rect returns the word box as an image.Rectangle.
func (w Word) Rect() image.Rectangle {
	return image.Rect(w.X, w.Y, w.X+w.W, w.Y+w.H)
}

// WordFromRect builds a Word from a rectangle.
func WordFromRect(text string, r image.Rectangle, conf float64) Word {
	return Word{Text: text, X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy(), Confidence: conf}
}

// Response is the result of one call. Worker metadata travels with it so the
// orchestrating process never infers it from shared state.
type Response struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	Words        []Word    `json:"words,omitempty"`
	WorkerPID    int       `json:"worker_pid"`
	Started      time.Time `json:"started"`
	Finished     time.Time `json:"finished"`
	EngineMillis float64   `json:"engine_ms"`
	Error        string    `json:"error,omitempty"`
}

// Engine performs recognition in the current process.
type Engine interface {
	Recognize(ctx context.Context, req Request) (Response, error)
	Close() error
}

// Pool runs recognition calls on a bounded set of workers. Recognize blocks
// until a worker is free and then until the call completes or timeout
// expires. A timeout of zero means no per-call bound.
type Pool interface {
	Recognize(ctx context.Context, req Request, timeout time.Duration) (Response, error)
	Size() int
	Close() error
}

// PoolFactory creates the run-scoped pool.
type PoolFactory func(ctx context.Context, size int) (Pool, error)
