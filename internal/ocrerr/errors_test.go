package ocrerr

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"decode", &ImageDecodeError{Err: errors.New("bad png")}, KindImageDecode},
		{"engine", &OCREngineError{Pass: "pass1", Err: errors.New("exit 1")}, KindEngine},
		{"timeout", &OCRTimeoutError{Pass: "pass2", Timeout: time.Second}, KindTimeout},
		{"downscale", &DownscaleError{Op: "resize", Err: errors.New("boom")}, KindDownscale},
		{"config", NewConfigError("executor.worker_count", "must be positive"), KindConfigValidation},
		{"wrapped timeout", fmt.Errorf("frame 2: %w", &OCRTimeoutError{Pass: "pass1"}), KindTimeout},
		{"cancelled", Cancelled(context.Canceled), KindCancelled},
		{"other", errors.New("mystery"), KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(NewConfigError("x", "bad")))
	assert.False(t, IsFatal(&OCREngineError{Pass: "pass1", Err: errors.New("x")}))
	assert.False(t, IsFatal(&ImageDecodeError{Err: errors.New("x")}))
}

func TestErrorMessages(t *testing.T) {
	err := &OCREngineError{Pass: "pass1", Err: errors.New("exit status 1"), Stderr: "segfault"}
	assert.Contains(t, err.Error(), "pass1")
	assert.Contains(t, err.Error(), "segfault")

	cause := errors.New("corrupt header")
	dec := &ImageDecodeError{Source: "scan.png", Err: cause}
	assert.ErrorIs(t, dec, cause)
	assert.Contains(t, dec.Error(), "scan.png")

	cfg := NewConfigError("redaction.confidence_threshold", "must be in [0,1], got %.2f", 1.5)
	assert.Equal(t, "invalid configuration redaction.confidence_threshold: must be in [0,1], got 1.50", cfg.Error())
}
