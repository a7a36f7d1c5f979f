package redaction

import (
	"image"
	"math"

	"github.com/MeKo-Tech/adaptocr/internal/utils"
)

// ValidateConfig tunes the three confidence subscores and their combination.
type ValidateConfig struct {
	UniformityNorm      float64 `mapstructure:"uniformity_norm" yaml:"uniformity_norm"`
	EdgeDensityNorm     float64 `mapstructure:"edge_density_norm" yaml:"edge_density_norm"`
	EdgeGradient        int     `mapstructure:"edge_gradient" yaml:"edge_gradient"`
	ContrastNorm        float64 `mapstructure:"contrast_norm" yaml:"contrast_norm"`
	RingWidth           int     `mapstructure:"ring_width" yaml:"ring_width"`
	WeightUniformity    float64 `mapstructure:"weight_uniformity" yaml:"weight_uniformity"`
	WeightEdgeDensity   float64 `mapstructure:"weight_edge_density" yaml:"weight_edge_density"`
	WeightContrast      float64 `mapstructure:"weight_contrast" yaml:"weight_contrast"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
}

// DefaultValidateConfig returns the production weights and threshold.
func DefaultValidateConfig() ValidateConfig {
	return ValidateConfig{
		UniformityNorm:      48,
		EdgeDensityNorm:     0.15,
		EdgeGradient:        48,
		ContrastNorm:        96,
		RingWidth:           3,
		WeightUniformity:    0.4,
		WeightEdgeDensity:   0.3,
		WeightContrast:      0.3,
		ConfidenceThreshold: 0.65,
	}
}

// ScoredBox is a candidate with its confidence subscores, each in [0,1].
type ScoredBox struct {
	Candidate
	Uniformity       float64
	EdgeDensity      float64
	BoundaryContrast float64
	Score            float64
	Validated        bool
}

// Validation is the outcome of scoring a candidate set.
type Validation struct {
	Scored   []ScoredBox // every candidate, input order
	Accepted []ScoredBox // the validated subset, input order
}

// Rects returns the rectangles of the accepted boxes.
func (v Validation) Rects() []image.Rectangle {
	out := make([]image.Rectangle, len(v.Accepted))
	for i, s := range v.Accepted {
		out[i] = s.Rect
	}
	return out
}

// Rejected is the number of candidates that failed validation.
func (v Validation) Rejected() int { return len(v.Scored) - len(v.Accepted) }

// Gate decides whether the redaction word-box pass runs. It depends only on
// the number of validated boxes.
func Gate(v Validation) bool { return len(v.Accepted) > 0 }

// Validate scores every candidate and returns freshly allocated slices; the
// input is left untouched.
func Validate(img *image.Gray, cands []Candidate, cfg ValidateConfig) Validation {
	v := Validation{Scored: make([]ScoredBox, 0, len(cands))}
	for _, c := range cands {
		s := ScoredBox{
			Candidate:        c,
			Uniformity:       uniformity(img, c.Rect, cfg.UniformityNorm),
			EdgeDensity:      edgeDensity(img, c.Rect, cfg.EdgeGradient, cfg.EdgeDensityNorm),
			BoundaryContrast: boundaryContrast(img, c.Rect, cfg.RingWidth, cfg.ContrastNorm),
		}
		s.Score = composite(s, cfg)
		s.Validated = s.Score >= cfg.ConfidenceThreshold
		v.Scored = append(v.Scored, s)
		if s.Validated {
			v.Accepted = append(v.Accepted, s)
		}
	}
	return v
}

// composite is the weighted mean of the subscores. Weights are normalized so
// the result stays in [0,1]; all-zero weights fall back to equal weighting.
func composite(s ScoredBox, cfg ValidateConfig) float64 {
	wu, we, wc := cfg.WeightUniformity, cfg.WeightEdgeDensity, cfg.WeightContrast
	sum := wu + we + wc
	if sum <= 0 {
		wu, we, wc, sum = 1, 1, 1, 3
	}
	return clamp01((wu*s.Uniformity + we*s.EdgeDensity + wc*s.BoundaryContrast) / sum)
}

func uniformity(img *image.Gray, r image.Rectangle, norm float64) float64 {
	r = r.Intersect(img.Bounds())
	n := utils.Area(r)
	if n == 0 || norm <= 0 {
		return 0
	}
	var sum, sumSq float64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for _, v := range img.Pix[img.PixOffset(r.Min.X, y):img.PixOffset(r.Max.X, y)] {
			f := float64(v)
			sum += f
			sumSq += f * f
		}
	}
	mean := sum / float64(n)
	variance := math.Max(0, sumSq/float64(n)-mean*mean)
	return 1 - math.Min(1, math.Sqrt(variance)/norm)
}

// edgeDensity scores the absence of internal structure: text, photos and
// halftones have many strong gradients inside the box, a filled bar has none.
func edgeDensity(img *image.Gray, r image.Rectangle, gradient int, norm float64) float64 {
	inner := r.Inset(1).Intersect(img.Bounds().Inset(1))
	n := utils.Area(inner)
	if n == 0 {
		return 1
	}
	if norm <= 0 {
		return 0
	}
	edges := 0
	for y := inner.Min.Y; y < inner.Max.Y; y++ {
		for x := inner.Min.X; x < inner.Max.X; x++ {
			gx := int(img.GrayAt(x+1, y).Y) - int(img.GrayAt(x-1, y).Y)
			gy := int(img.GrayAt(x, y+1).Y) - int(img.GrayAt(x, y-1).Y)
			if max(abs(gx), abs(gy)) >= gradient {
				edges++
			}
		}
	}
	frac := float64(edges) / float64(n)
	return 1 - math.Min(1, frac/norm)
}

// boundaryContrast compares a ring of width ring around the box with the box
// interior. A box that touches the page on every side has no ring and scores
// the neutral 0.5.
func boundaryContrast(img *image.Gray, r image.Rectangle, ring int, norm float64) float64 {
	bounds := img.Bounds()
	inside := r.Intersect(bounds)
	outer := utils.ExpandRect(r, ring).Intersect(bounds)
	if utils.Area(inside) == 0 || norm <= 0 {
		return 0.5
	}
	var inSum, ringSum float64
	var inN, ringN int
	for y := outer.Min.Y; y < outer.Max.Y; y++ {
		for x := outer.Min.X; x < outer.Max.X; x++ {
			v := float64(img.GrayAt(x, y).Y)
			if (image.Point{X: x, Y: y}).In(inside) {
				inSum += v
				inN++
			} else {
				ringSum += v
				ringN++
			}
		}
	}
	if ringN == 0 {
		return 0.5
	}
	diff := ringSum/float64(ringN) - inSum/float64(inN)
	return clamp01(diff / norm)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
