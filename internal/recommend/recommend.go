// Package recommend turns an image profile into processing parameters. The
// policy is a fixed, ordered rule list; every threshold is configuration.
package recommend

import (
	"math"

	"github.com/MeKo-Tech/adaptocr/internal/profile"
)

// Rule names recorded in Params.Reason and Params.Reasons.
const (
	ReasonDefault       = "default"
	ReasonThinStrokes   = "thin_strokes"
	ReasonThickStrokes  = "thick_strokes"
	ReasonCleanDocument = "clean_document"
	ReasonHighNoise     = "high_noise"
)

// Thresholds configures the two-pass policy and the preprocessing flags.
type Thresholds struct {
	ThinStrokeMax  float64 `mapstructure:"thin_stroke_max" yaml:"thin_stroke_max"`
	ThickStrokeMin float64 `mapstructure:"thick_stroke_min" yaml:"thick_stroke_min"`

	CleanMinSeparability float64 `mapstructure:"clean_min_separability" yaml:"clean_min_separability"`
	CleanMaxNoise        float64 `mapstructure:"clean_max_noise" yaml:"clean_max_noise"`
	CleanMinStroke       float64 `mapstructure:"clean_min_stroke" yaml:"clean_min_stroke"`
	CleanMaxSpecks       int     `mapstructure:"clean_max_specks" yaml:"clean_max_specks"`

	HighNoiseSigma float64 `mapstructure:"high_noise_sigma" yaml:"high_noise_sigma"`

	DeskewMinAngle          float64 `mapstructure:"deskew_min_angle" yaml:"deskew_min_angle"`
	LowContrastSeparability float64 `mapstructure:"low_contrast_separability" yaml:"low_contrast_separability"`
}

// DefaultThresholds returns the production policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ThinStrokeMax:           2.0,
		ThickStrokeMin:          8.0,
		CleanMinSeparability:    0.7,
		CleanMaxNoise:           5.0,
		CleanMinStroke:          2.5,
		CleanMaxSpecks:          200,
		HighNoiseSigma:          10.0,
		DeskewMinAngle:          0.5,
		LowContrastSeparability: 0.5,
	}
}

// Params is the recommendation for one image.
type Params struct {
	EnableTwoPass bool
	Reason        string   // the last rule that fired, or "default"
	Reasons       []string // every rule that fired, in evaluation order

	// ScaleFactor is informational. The downscaler makes its own decision
	// from the detected DPI and never reads this value.
	ScaleFactor float64

	Deskew        bool
	SkewAngle     float64
	Invert        bool
	BoostContrast bool
	SmoothBilevel bool
}

// Fields flattens the parameters for trace events.
func (p Params) Fields() map[string]any {
	return map[string]any{
		"enable_two_pass": p.EnableTwoPass,
		"reason":          p.Reason,
		"reasons":         p.Reasons,
		"scale_factor":    p.ScaleFactor,
		"deskew":          p.Deskew,
		"invert":          p.Invert,
		"boost_contrast":  p.BoostContrast,
		"smooth_bilevel":  p.SmoothBilevel,
	}
}

// Recommend evaluates the rules in order; a later rule overrides an earlier
// one. It is a pure function of its inputs.
func Recommend(p profile.ImageProfile, t Thresholds, targetDPI int) Params {
	out := Params{EnableTwoPass: true, Reason: ReasonDefault, ScaleFactor: 1.0}
	fire := func(reason string, twoPass bool) {
		out.EnableTwoPass = twoPass
		out.Reason = reason
		out.Reasons = append(out.Reasons, reason)
	}

	if p.StrokeWidth <= t.ThinStrokeMax {
		fire(ReasonThinStrokes, true)
	}
	if p.StrokeWidth > t.ThickStrokeMin {
		fire(ReasonThickStrokes, false)
	}
	if IsClean(p, t) {
		fire(ReasonCleanDocument, false)
	}
	if p.NoiseSigma > t.HighNoiseSigma {
		fire(ReasonHighNoise, true)
	}

	if targetDPI > 0 && p.DetectedDPI > float64(targetDPI) {
		out.ScaleFactor = float64(targetDPI) / p.DetectedDPI
	}
	out.SkewAngle = p.SkewAngle
	out.Deskew = math.Abs(p.SkewAngle) >= t.DeskewMinAngle && t.DeskewMinAngle > 0
	out.Invert = p.DarkBackground
	out.BoostContrast = p.OtsuSeparability < t.LowContrastSeparability && p.OtsuSeparability > 0
	out.SmoothBilevel = p.IsBilevel
	return out
}

// IsClean reports whether every clean-document condition holds. All
// comparisons are strict: a value equal to its threshold does not qualify.
func IsClean(p profile.ImageProfile, t Thresholds) bool {
	return !p.IsBilevel &&
		p.OtsuSeparability > t.CleanMinSeparability &&
		p.NoiseSigma < t.CleanMaxNoise &&
		p.StrokeWidth > t.CleanMinStroke &&
		p.NumNoiseSpecks < t.CleanMaxSpecks
}
