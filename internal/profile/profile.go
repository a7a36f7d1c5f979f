// Package profile computes the statistical fingerprint of a page image that
// drives every adaptive decision downstream: how separable ink and paper are,
// how noisy the scan is, how thick the strokes are, how tilted the text is and
// what resolution the page was scanned at.
package profile

import (
	"errors"
	"image"

	"github.com/MeKo-Tech/adaptocr/internal/ocrerr"
	"github.com/MeKo-Tech/adaptocr/internal/utils"
)

// DPI sources reported in ImageProfile.DPISource.
const (
	DPISourceMetadata  = "metadata"
	DPISourcePaperSize = "paper_size"
	DPISourceUnknown   = "unknown"
)

// ImageProfile is an immutable snapshot of page statistics. It is a value
// type: copies are independent and nothing in the pipeline mutates one after
// Analyze returns it.
type ImageProfile struct {
	OtsuSeparability float64 // between-class / total variance at the Otsu threshold, in [0,1]
	NoiseSigma       float64 // estimated Gaussian noise, gray levels
	StrokeWidth      float64 // median stroke thickness of foreground components, pixels
	NumNoiseSpecks   int
	IsBilevel        bool
	SkewAngle        float64 // degrees, positive = counter-clockwise tilt
	DetectedDPI      float64 // 0 = unknown

	OtsuThreshold  uint8
	MeanIntensity  float64
	DarkBackground bool
	DPISource      string
	Width          int
	Height         int
	Components     int
}

// Fields flattens the profile for trace events.
func (p ImageProfile) Fields() map[string]any {
	return map[string]any{
		"otsu_separability": p.OtsuSeparability,
		"noise_sigma":       p.NoiseSigma,
		"stroke_width":      p.StrokeWidth,
		"num_noise_specks":  p.NumNoiseSpecks,
		"is_bilevel":        p.IsBilevel,
		"skew_angle":        p.SkewAngle,
		"detected_dpi":      p.DetectedDPI,
		"dpi_source":        p.DPISource,
		"dark_background":   p.DarkBackground,
		"width":             p.Width,
		"height":            p.Height,
	}
}

// Config holds the tunables of the analyzer.
type Config struct {
	BilevelCoverage  float64 `mapstructure:"bilevel_coverage" yaml:"bilevel_coverage"`
	SpeckMaxArea     int     `mapstructure:"speck_max_area" yaml:"speck_max_area"`
	SkewMaxAngle     float64 `mapstructure:"skew_max_angle" yaml:"skew_max_angle"`
	SkewStep         float64 `mapstructure:"skew_step" yaml:"skew_step"`
	SkewSamplePoints int     `mapstructure:"skew_sample_points" yaml:"skew_sample_points"`

	MinMetadataDPI       float64 `mapstructure:"min_metadata_dpi" yaml:"min_metadata_dpi"`
	MaxMetadataDPI       float64 `mapstructure:"max_metadata_dpi" yaml:"max_metadata_dpi"`
	AspectMin            float64 `mapstructure:"aspect_min" yaml:"aspect_min"`
	AspectMax            float64 `mapstructure:"aspect_max" yaml:"aspect_max"`
	PaperAspectTolerance float64 `mapstructure:"paper_aspect_tolerance" yaml:"paper_aspect_tolerance"`
	DPISnapTolerance     float64 `mapstructure:"dpi_snap_tolerance" yaml:"dpi_snap_tolerance"`
	MinHeuristicDPI      float64 `mapstructure:"min_heuristic_dpi" yaml:"min_heuristic_dpi"`
	MaxHeuristicDPI      float64 `mapstructure:"max_heuristic_dpi" yaml:"max_heuristic_dpi"`
}

// DefaultConfig returns the analyzer defaults.
func DefaultConfig() Config {
	return Config{
		BilevelCoverage:      0.98,
		SpeckMaxArea:         8,
		SkewMaxAngle:         5,
		SkewStep:             0.25,
		SkewSamplePoints:     20000,
		MinMetadataDPI:       50,
		MaxMetadataDPI:       2400,
		AspectMin:            1.2,
		AspectMax:            1.7,
		PaperAspectTolerance: 0.04,
		DPISnapTolerance:     0.03,
		MinHeuristicDPI:      50,
		MaxHeuristicDPI:      1200,
	}
}

// Analyzer computes ImageProfiles. The zero value is not usable; use New.
type Analyzer struct {
	cfg Config
}

// New returns an analyzer with cfg.
func New(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze profiles img with the default configuration.
func Analyze(img *image.Gray, metadataDPI float64) (ImageProfile, error) {
	return New(DefaultConfig()).Analyze(img, metadataDPI)
}

// Analyze profiles img. metadataDPI is the resolution declared by the source
// container, 0 when absent. The result depends only on the pixels and
// metadataDPI.
func (a *Analyzer) Analyze(img *image.Gray, metadataDPI float64) (ImageProfile, error) {
	if img == nil || utils.IsEmpty(img) {
		return ImageProfile{}, &ocrerr.ImageDecodeError{Err: errors.New("empty image")}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := utils.PackedPix(img)
	hist := utils.Histogram(img)

	ot := otsu(hist)
	p := ImageProfile{
		OtsuSeparability: ot.separability,
		OtsuThreshold:    ot.threshold,
		MeanIntensity:    ot.mean,
		IsBilevel:        isBilevel(hist, w*h, a.cfg.BilevelCoverage),
		NoiseSigma:       noiseSigma(pix, w, h),
		Width:            w,
		Height:           h,
	}

	// Ink is the minority class. A page that is mostly dark is a negative.
	p.DarkBackground = ot.darkFraction > 0.5
	var mask []bool
	if ot.separability > 0 {
		t := ot.threshold
		if p.DarkBackground {
			mask = utils.ThresholdMask(img, func(v uint8) bool { return v > t })
		} else {
			mask = utils.ThresholdMask(img, func(v uint8) bool { return v <= t })
		}
	} else {
		mask = make([]bool, w*h)
	}

	comps := utils.ConnectedComponents(mask, w, h, nil)
	p.Components = len(comps)
	p.StrokeWidth, p.NumNoiseSpecks = strokeStats(comps, a.cfg.SpeckMaxArea)
	p.SkewAngle = estimateSkew(mask, w, h, a.cfg)
	p.DetectedDPI, p.DPISource = a.detectDPI(w, h, metadataDPI)
	return p, nil
}
