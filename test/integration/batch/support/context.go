// Package support holds the step definitions of the batch feature suite. The
// suite drives the real pipeline against a scripted engine, so it needs no
// Tesseract installation.
package support

import (
	"fmt"
	"os"
	"time"

	"github.com/MeKo-Tech/adaptocr/internal/batch"
	"github.com/MeKo-Tech/adaptocr/internal/engine/enginetest"
	"github.com/MeKo-Tech/adaptocr/internal/trace"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	InputDir string
	TempDir  string

	Config   *batch.Config
	Engine   *enginetest.Fake
	Recorder *trace.Recorder

	Result    *batch.Result
	LastError error
	Output    string
}

// NewTestContext creates a scenario context with an empty input directory and
// an engine that answers "text" to every pass.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "adaptocr-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	inputDir, err := os.MkdirTemp(tempDir, "input-*")
	if err != nil {
		_ = os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to create input directory: %w", err)
	}

	cfg := batch.DefaultConfig()
	cfg.Quiet = true
	cfg.Executor.OCR.Pass1Timeout = 5 * time.Second
	cfg.Executor.OCR.Pass2Timeout = 5 * time.Second
	cfg.Executor.OCR.RedactionTimeout = 5 * time.Second

	return &TestContext{
		InputDir: inputDir,
		TempDir:  tempDir,
		Config:   cfg,
		Engine:   enginetest.New(),
		Recorder: trace.NewRecorder(),
	}, nil
}

// Cleanup removes everything the scenario created.
func (testCtx *TestContext) Cleanup() error {
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err)
	}
	return nil
}
