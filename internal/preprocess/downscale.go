package preprocess

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/adaptocr/internal/ocrerr"
	"github.com/MeKo-Tech/adaptocr/internal/utils"
)

// Downscale outcome reasons.
const (
	ReasonDownscaled     = "above_threshold"
	ReasonDisabled       = "disabled"
	ReasonUnknownDPI     = "unknown_dpi"
	ReasonBelowThreshold = "below_threshold"
	ReasonNoReduction    = "no_reduction"
	ReasonError          = "error"
)

// DownscaleConfig controls DPI normalization before recognition.
type DownscaleConfig struct {
	Enabled      bool    `mapstructure:"enabled" yaml:"enabled"`
	ThresholdDPI float64 `mapstructure:"threshold_dpi" yaml:"threshold_dpi"`
	TargetDPI    float64 `mapstructure:"target_dpi" yaml:"target_dpi"`
}

// DefaultDownscaleConfig brings anything above 250 DPI down to 200 DPI.
func DefaultDownscaleConfig() DownscaleConfig {
	return DownscaleConfig{Enabled: true, ThresholdDPI: 250, TargetDPI: 200}
}

// DownscaleResult describes what Downscale did. Image is always usable: on
// error it is the unmodified input.
type DownscaleResult struct {
	Image          *image.Gray
	Triggered      bool
	Reason         string
	InputDPI       float64
	OutputDPI      float64
	InWidth        int
	InHeight       int
	OutWidth       int
	OutHeight      int
	PixelReduction float64
	Err            error
}

// Fields flattens the result for trace events.
func (r DownscaleResult) Fields() map[string]any {
	return map[string]any{
		"triggered":       r.Triggered,
		"reason":          r.Reason,
		"input_dpi":       r.InputDPI,
		"output_dpi":      r.OutputDPI,
		"in_width":        r.InWidth,
		"in_height":       r.InHeight,
		"out_width":       r.OutWidth,
		"out_height":      r.OutHeight,
		"pixel_reduction": r.PixelReduction,
	}
}

// resize is swapped in tests to exercise the fail-safe path.
var resize = func(img image.Image, w, h int) image.Image {
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// Downscale resizes img to cfg.TargetDPI when its detected resolution is known
// and above cfg.ThresholdDPI. It never upscales and never guesses an unknown
// resolution. Any failure, including a panic inside the resampler, returns the
// original image with a *ocrerr.DownscaleError in Err.
func Downscale(img *image.Gray, detectedDPI float64, cfg DownscaleConfig) (res DownscaleResult) {
	b := img.Bounds()
	res = DownscaleResult{
		Image:     img,
		InputDPI:  detectedDPI,
		OutputDPI: detectedDPI,
		InWidth:   b.Dx(),
		InHeight:  b.Dy(),
		OutWidth:  b.Dx(),
		OutHeight: b.Dy(),
	}

	switch {
	case !cfg.Enabled:
		res.Reason = ReasonDisabled
		return res
	case detectedDPI <= 0:
		res.Reason = ReasonUnknownDPI
		return res
	case detectedDPI <= cfg.ThresholdDPI:
		res.Reason = ReasonBelowThreshold
		return res
	}

	scale := cfg.TargetDPI / detectedDPI
	outW := int(math.Round(float64(b.Dx()) * scale))
	outH := int(math.Round(float64(b.Dy()) * scale))
	if scale >= 1 || outW >= b.Dx() || outH >= b.Dy() {
		res.Reason = ReasonNoReduction
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			res = failed(res, img, &ocrerr.DownscaleError{Op: "resize", Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	if outW < 1 || outH < 1 {
		return failed(res, img, &ocrerr.DownscaleError{Op: "resize", Err: fmt.Errorf("target size %dx%d is empty", outW, outH)})
	}
	resized := resize(img, outW, outH)
	if resized == nil || resized.Bounds().Dx() != outW || resized.Bounds().Dy() != outH {
		return failed(res, img, &ocrerr.DownscaleError{Op: "resize", Err: fmt.Errorf("resampler returned unexpected size for %dx%d", outW, outH)})
	}

	res.Image = utils.ToGray(resized)
	res.Triggered = true
	res.Reason = ReasonDownscaled
	res.OutputDPI = cfg.TargetDPI
	res.OutWidth, res.OutHeight = outW, outH
	res.PixelReduction = 1 - float64(outW*outH)/float64(b.Dx()*b.Dy())
	return res
}

func failed(res DownscaleResult, original *image.Gray, err error) DownscaleResult {
	b := original.Bounds()
	res.Image = original
	res.Triggered = false
	res.Reason = ReasonError
	res.OutputDPI = res.InputDPI
	res.OutWidth, res.OutHeight = b.Dx(), b.Dy()
	res.PixelReduction = 0
	res.Err = err
	return res
}
