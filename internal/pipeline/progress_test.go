package pipeline

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoOpProgressCallback(t *testing.T) {
	cb := NoOpProgressCallback{}
	cb.OnStart(10)
	cb.OnProgress(5, 10)
	cb.OnError(3, assert.AnError)
	cb.OnComplete()
}

func TestConsoleProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	cb := NewConsoleProgressCallback(&buf, "Test: ")

	cb.OnStart(10)
	assert.Contains(t, buf.String(), "Test: 0/10 (0.0%)")

	buf.Reset()
	cb.OnProgress(5, 10)
	assert.Contains(t, buf.String(), "5/10")
	assert.Contains(t, buf.String(), "50.0%")

	buf.Reset()
	cb.OnError(6, errors.New("bad page"))
	assert.Contains(t, buf.String(), "Error at item 6: bad page")

	buf.Reset()
	cb.OnComplete()
	assert.Contains(t, buf.String(), "Completed in")
}

func TestConsoleProgressCallback_FinalUpdateNotThrottled(t *testing.T) {
	var buf bytes.Buffer
	cb := NewConsoleProgressCallback(&buf, "")
	cb.OnStart(2)
	cb.OnProgress(1, 2)
	buf.Reset()
	cb.OnProgress(2, 2)
	assert.Contains(t, buf.String(), "2/2 (100.0%)")
}

func TestLogProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	cb := NewLogProgressCallback(logger, slog.LevelInfo, 2)

	cb.OnStart(3)
	cb.OnProgress(1, 3)
	assert.NotContains(t, buf.String(), "Progress update")
	cb.OnProgress(2, 3)
	assert.Contains(t, buf.String(), "Progress update")
	cb.OnError(3, errors.New("boom"))
	cb.OnComplete()

	out := buf.String()
	assert.Contains(t, out, "Starting processing")
	assert.Contains(t, out, "Processing error")
	assert.Contains(t, out, "Processing completed")
}
