// Package tesseract adapts the Tesseract OCR engine (through gosseract) to
// engine.Engine. It links against libtesseract and is only imported by the
// worker process.
package tesseract

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/MeKo-Tech/adaptocr/internal/engine"
	"github.com/MeKo-Tech/adaptocr/internal/ocrerr"
)

// Config selects the engine defaults. Per-request values override them.
type Config struct {
	Language    string
	PageSegMode int
	TessdataDir string
}

// DefaultConfig uses English with automatic page segmentation.
func DefaultConfig() Config {
	return Config{Language: "eng", PageSegMode: int(gosseract.PSM_AUTO)}
}

// Engine owns one gosseract client. The client is not safe for concurrent use,
// so calls are serialized; parallelism comes from running several workers.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
	cfg    Config
}

// New creates a client configured with cfg. Missing language data is
// reported here rather than on the first page.
func New(cfg Config) (*Engine, error) {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	cfg.TessdataDir = ResolveTessdataDir(cfg.TessdataDir)
	if missing := MissingLanguages(cfg.TessdataDir, cfg.Language); len(missing) > 0 {
		return nil, fmt.Errorf("no language data for %s in %s", strings.Join(missing, ", "), cfg.TessdataDir)
	}

	client := gosseract.NewClient()
	if cfg.TessdataDir != "" {
		if err := client.SetTessdataPrefix(cfg.TessdataDir); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(Languages(cfg.Language)...); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set OCR language: %w", err)
	}
	return &Engine{client: client, cfg: cfg}, nil
}

// Recognize runs one pass. Cancellation is checked before the engine starts;
// an engine call already in progress cannot be interrupted in-process, which
// is why the pool enforces timeouts by killing the worker process.
func (e *Engine) Recognize(ctx context.Context, req engine.Request) (engine.Response, error) {
	if err := ctx.Err(); err != nil {
		return engine.Response{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	fail := func(op string, err error) (engine.Response, error) {
		return engine.Response{}, &ocrerr.OCREngineError{Pass: req.Pass, Err: fmt.Errorf("%s: %w", op, err)}
	}

	if req.Language != "" && req.Language != e.cfg.Language {
		if err := e.client.SetLanguage(Languages(req.Language)...); err != nil {
			return fail("set language", err)
		}
		defer func() { _ = e.client.SetLanguage(Languages(e.cfg.Language)...) }()
	}
	psm := e.cfg.PageSegMode
	if req.PageSegMode > 0 {
		psm = req.PageSegMode
	}
	if err := e.client.SetPageSegMode(gosseract.PageSegMode(psm)); err != nil {
		return fail("set page segmentation mode", err)
	}
	// The variable sticks to the client, so a page without a resolution must
	// clear the previous page's value.
	if err := e.client.SetVariable("user_defined_dpi", dpiVariable(req.DPI)); err != nil {
		return fail("set dpi", err)
	}
	if err := e.client.SetImageFromBytes(req.Image); err != nil {
		return fail("set image", err)
	}

	resp := engine.Response{ID: req.ID}
	text, err := e.client.Text()
	if err != nil {
		return fail("recognize", err)
	}
	resp.Text = text

	if req.WantWords {
		boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
		if err != nil {
			return fail("word boxes", err)
		}
		resp.Words = make([]engine.Word, 0, len(boxes))
		for _, b := range boxes {
			word := strings.TrimSpace(b.Word)
			if word == "" {
				continue
			}
			resp.Words = append(resp.Words, engine.WordFromRect(word, b.Box, b.Confidence/100))
		}
	}
	return resp, nil
}

// dpiVariable renders dpi for user_defined_dpi. "0" lets Tesseract fall back
// to the image metadata.
func dpiVariable(dpi float64) string {
	if dpi <= 0 {
		return "0"
	}
	return strconv.Itoa(int(dpi + 0.5))
}

// Close releases the client.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

// Version reports the linked Tesseract version.
func Version() string {
	return gosseract.Version()
}
