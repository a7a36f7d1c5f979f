// Package ocrerr defines the error taxonomy shared by every stage of the
// adaptive OCR pipeline. Per-image errors carry a Kind tag so the scheduler can
// convert them into tagged partial results; only configuration errors are fatal
// to a run.
package ocrerr

import (
	"errors"
	"fmt"
	"time"
)

// Kind tags an error for status reports and trace events.
type Kind string

const (
	KindNone             Kind = ""
	KindImageDecode      Kind = "image_decode"
	KindEngine           Kind = "engine_error"
	KindTimeout          Kind = "timeout"
	KindDownscale        Kind = "downscale"
	KindConfigValidation Kind = "config_validation"
	KindCancelled        Kind = "cancelled"
	KindInternal         Kind = "internal"
)

// ImageDecodeError reports unreadable or empty image input. It aborts only the
// image it belongs to.
type ImageDecodeError struct {
	Source string
	Err    error
}

func (e *ImageDecodeError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("image decode error (%s): %v", e.Source, e.Err)
	}
	return fmt.Sprintf("image decode error: %v", e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }

// OCREngineError reports a recognition engine failure other than a timeout.
type OCREngineError struct {
	Pass   string
	Err    error
	Stderr string
}

func (e *OCREngineError) Error() string {
	msg := fmt.Sprintf("ocr engine error in %s: %v", e.Pass, e.Err)
	if e.Stderr != "" {
		msg += " (stderr: " + e.Stderr + ")"
	}
	return msg
}

func (e *OCREngineError) Unwrap() error { return e.Err }

// OCRTimeoutError reports a recognition call that exceeded its per-call budget.
type OCRTimeoutError struct {
	Pass    string
	Timeout time.Duration
	Err     error
}

func (e *OCRTimeoutError) Error() string {
	return fmt.Sprintf("ocr timeout in %s after %v", e.Pass, e.Timeout)
}

func (e *OCRTimeoutError) Unwrap() error { return e.Err }

// DownscaleError reports a failed resize. It is never fatal: callers keep the
// unscaled image.
type DownscaleError struct {
	Op  string
	Err error
}

func (e *DownscaleError) Error() string {
	return fmt.Sprintf("downscale error in %s: %v", e.Op, e.Err)
}

func (e *DownscaleError) Unwrap() error { return e.Err }

// ConfigValidationError reports a malformed run configuration.
type ConfigValidationError struct {
	Field  string
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

// NewConfigError is a small helper used by config validation.
func NewConfigError(field, format string, args ...any) *ConfigValidationError {
	return &ConfigValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// KindOf classifies err. Unknown errors map to KindInternal, nil to KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var (
		decodeErr    *ImageDecodeError
		engineErr    *OCREngineError
		timeoutErr   *OCRTimeoutError
		downscaleErr *DownscaleError
		configErr    *ConfigValidationError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return KindTimeout
	case errors.As(err, &engineErr):
		return KindEngine
	case errors.As(err, &decodeErr):
		return KindImageDecode
	case errors.As(err, &downscaleErr):
		return KindDownscale
	case errors.As(err, &configErr):
		return KindConfigValidation
	case errors.Is(err, errCancelled):
		return KindCancelled
	}
	return KindInternal
}

var errCancelled = errors.New("cancelled")

// Cancelled wraps a context error so KindOf reports KindCancelled.
func Cancelled(cause error) error {
	return fmt.Errorf("%w: %w", errCancelled, cause)
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	return KindOf(err) == KindConfigValidation
}
