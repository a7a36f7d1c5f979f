package pipeline

import (
	"time"

	"github.com/MeKo-Tech/adaptocr/internal/ocrerr"
	"github.com/MeKo-Tech/adaptocr/internal/orchestrator"
	"github.com/MeKo-Tech/adaptocr/internal/preprocess"
	"github.com/MeKo-Tech/adaptocr/internal/profile"
	"github.com/MeKo-Tech/adaptocr/internal/recommend"
	"github.com/MeKo-Tech/adaptocr/internal/redaction"
)

// ExecutorConfig is copied into a Run by value and never changes afterwards.
type ExecutorConfig struct {
	WorkerCount      int
	GroupConcurrency int

	Profile    profile.Config
	Thresholds recommend.Thresholds
	Prepare    preprocess.PrepareConfig
	Downscale  preprocess.DownscaleConfig

	RedactionEnabled bool
	Detect           redaction.DetectConfig
	Validation       redaction.ValidateConfig

	OCR orchestrator.Config

	Resources ResourceConfig
}

// DefaultExecutorConfig returns two workers and ten documents in flight.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		WorkerCount:      2,
		GroupConcurrency: 10,
		Profile:          profile.DefaultConfig(),
		Thresholds:       recommend.DefaultThresholds(),
		Prepare:          preprocess.DefaultPrepareConfig(),
		Downscale:        preprocess.DefaultDownscaleConfig(),
		RedactionEnabled: true,
		Detect:           redaction.DefaultDetectConfig(),
		Validation:       redaction.DefaultValidateConfig(),
		OCR:              orchestrator.DefaultConfig(),
		Resources:        DefaultResourceConfig(),
	}
}

// Validate rejects configurations that cannot run. The first problem found is
// returned as a *ocrerr.ConfigValidationError.
func (c ExecutorConfig) Validate() error {
	switch {
	case c.WorkerCount <= 0:
		return ocrerr.NewConfigError("executor.worker_count", "must be positive, got %d", c.WorkerCount)
	case c.GroupConcurrency <= 0:
		return ocrerr.NewConfigError("executor.group_concurrency", "must be positive, got %d", c.GroupConcurrency)
	}
	if err := validateTimeouts(c.OCR); err != nil {
		return err
	}
	if err := validateThresholds(c.Thresholds); err != nil {
		return err
	}
	if c.Downscale.Enabled {
		switch {
		case c.Downscale.TargetDPI <= 0:
			return ocrerr.NewConfigError("downscale.target_dpi", "must be positive, got %g", c.Downscale.TargetDPI)
		case c.Downscale.ThresholdDPI < c.Downscale.TargetDPI:
			return ocrerr.NewConfigError("downscale.threshold_dpi", "must be at least target_dpi (%g), got %g",
				c.Downscale.TargetDPI, c.Downscale.ThresholdDPI)
		}
	}
	if c.RedactionEnabled {
		if err := validateRedaction(c.Detect, c.Validation); err != nil {
			return err
		}
	}
	switch {
	case c.OCR.MinWordOverlap <= 0 || c.OCR.MinWordOverlap > 1:
		return ocrerr.NewConfigError("ocr.min_word_overlap", "must be in (0,1], got %g", c.OCR.MinWordOverlap)
	case c.OCR.StippleKernel < 0:
		return ocrerr.NewConfigError("ocr.stipple_kernel", "must not be negative, got %d", c.OCR.StippleKernel)
	case c.Prepare.SmoothSigma < 0:
		return ocrerr.NewConfigError("preprocess.smooth_sigma", "must not be negative, got %g", c.Prepare.SmoothSigma)
	case c.Resources.MemoryThreshold < 0 || c.Resources.MemoryThreshold > 1:
		return ocrerr.NewConfigError("executor.memory_threshold", "must be in [0,1], got %g", c.Resources.MemoryThreshold)
	}
	return nil
}

func validateTimeouts(cfg orchestrator.Config) error {
	timeouts := []struct {
		field string
		d     time.Duration
	}{
		{"ocr.pass1_timeout", cfg.Pass1Timeout},
		{"ocr.pass2_timeout", cfg.Pass2Timeout},
		{"ocr.redaction_timeout", cfg.RedactionTimeout},
	}
	for _, t := range timeouts {
		if t.d <= 0 {
			return ocrerr.NewConfigError(t.field, "must be positive, got %v", t.d)
		}
	}
	return nil
}

func validateThresholds(t recommend.Thresholds) error {
	switch {
	case t.ThinStrokeMax < 0:
		return ocrerr.NewConfigError("thresholds.thin_stroke_max", "must not be negative, got %g", t.ThinStrokeMax)
	case t.ThickStrokeMin <= t.ThinStrokeMax:
		return ocrerr.NewConfigError("thresholds.thick_stroke_min", "must exceed thin_stroke_max (%g), got %g",
			t.ThinStrokeMax, t.ThickStrokeMin)
	case t.CleanMinSeparability < 0 || t.CleanMinSeparability > 1:
		return ocrerr.NewConfigError("thresholds.clean_min_separability", "must be in [0,1], got %g", t.CleanMinSeparability)
	case t.LowContrastSeparability < 0 || t.LowContrastSeparability > 1:
		return ocrerr.NewConfigError("thresholds.low_contrast_separability", "must be in [0,1], got %g", t.LowContrastSeparability)
	case t.CleanMaxNoise < 0 || t.HighNoiseSigma < 0:
		return ocrerr.NewConfigError("thresholds.high_noise_sigma", "noise thresholds must not be negative")
	case t.CleanMaxSpecks < 0:
		return ocrerr.NewConfigError("thresholds.clean_max_specks", "must not be negative, got %d", t.CleanMaxSpecks)
	}
	return nil
}

func validateRedaction(d redaction.DetectConfig, v redaction.ValidateConfig) error {
	switch {
	case d.MinWidth <= 0 || d.MinHeight <= 0:
		return ocrerr.NewConfigError("redaction.detect.min_width", "box size gates must be positive")
	case d.MinSolidity < 0 || d.MinSolidity > 1:
		return ocrerr.NewConfigError("redaction.detect.min_solidity", "must be in [0,1], got %g", d.MinSolidity)
	case d.MaxWidthFraction <= 0 || d.MaxWidthFraction > 1:
		return ocrerr.NewConfigError("redaction.detect.max_width_fraction", "must be in (0,1], got %g", d.MaxWidthFraction)
	case v.ConfidenceThreshold < 0 || v.ConfidenceThreshold > 1:
		return ocrerr.NewConfigError("redaction.validate.confidence_threshold", "must be in [0,1], got %g", v.ConfidenceThreshold)
	case v.WeightUniformity < 0 || v.WeightEdgeDensity < 0 || v.WeightContrast < 0:
		return ocrerr.NewConfigError("redaction.validate.weights", "must not be negative")
	case v.UniformityNorm <= 0 || v.EdgeDensityNorm <= 0 || v.ContrastNorm <= 0:
		return ocrerr.NewConfigError("redaction.validate.norms", "must be positive")
	}
	return nil
}
