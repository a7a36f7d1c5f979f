package preprocess

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/adaptocr/internal/recommend"
	"github.com/MeKo-Tech/adaptocr/internal/utils"
)

// PrepareConfig tunes the conditional preprocessing steps.
type PrepareConfig struct {
	SmoothSigma   float64 `mapstructure:"smooth_sigma" yaml:"smooth_sigma"`
	ContrastBoost float64 `mapstructure:"contrast_boost" yaml:"contrast_boost"` // percent, see imaging.AdjustContrast
}

// DefaultPrepareConfig returns mild smoothing and a 30% contrast boost.
func DefaultPrepareConfig() PrepareConfig {
	return PrepareConfig{SmoothSigma: 0.6, ContrastBoost: 30}
}

// Prepare applies the steps enabled in params and returns a new image. The
// input is never modified. Inversion runs first so later steps always see dark
// ink on light paper.
func Prepare(img *image.Gray, params recommend.Params, cfg PrepareConfig) *image.Gray {
	out := img
	if params.Invert {
		out = utils.InvertGray(out)
	}
	if params.SmoothBilevel && cfg.SmoothSigma > 0 {
		out = utils.ToGray(imaging.Blur(out, cfg.SmoothSigma))
	}
	if params.Deskew && params.SkewAngle != 0 {
		out = Deskew(out, params.SkewAngle)
	}
	if params.BoostContrast && cfg.ContrastBoost != 0 {
		out = utils.ToGray(imaging.AdjustContrast(out, cfg.ContrastBoost))
	}
	if out == img {
		return utils.CloneGray(img)
	}
	return out
}

// Deskew rotates img clockwise by skew degrees to undo a counter-clockwise
// tilt, filling uncovered corners with white and keeping the original size.
func Deskew(img *image.Gray, skew float64) *image.Gray {
	b := img.Bounds()
	rot := imaging.Rotate(img, -skew, color.White)
	return utils.ToGray(imaging.CropCenter(rot, b.Dx(), b.Dy()))
}
