// Package redaction finds solid dark boxes that black out text on a page and
// scores how confident we are that each one is a deliberate redaction rather
// than a photo, a table rule or a heavy heading.
package redaction

import (
	"image"
	"sort"

	"github.com/MeKo-Tech/adaptocr/internal/utils"
)

// DetectConfig holds the geometric gates applied to dark components.
type DetectConfig struct {
	DarknessThreshold uint8   `mapstructure:"darkness_threshold" yaml:"darkness_threshold"`
	MinWidth          int     `mapstructure:"min_width" yaml:"min_width"`
	MinHeight         int     `mapstructure:"min_height" yaml:"min_height"`
	MinAspectRatio    float64 `mapstructure:"min_aspect_ratio" yaml:"min_aspect_ratio"`
	MinArea           int     `mapstructure:"min_area" yaml:"min_area"`
	MinSolidity       float64 `mapstructure:"min_solidity" yaml:"min_solidity"`
	MaxWidthFraction  float64 `mapstructure:"max_width_fraction" yaml:"max_width_fraction"`
}

// DefaultDetectConfig returns gates tuned for 200-300 DPI office scans.
func DefaultDetectConfig() DetectConfig {
	return DetectConfig{
		DarknessThreshold: 20,
		MinWidth:          40,
		MinHeight:         8,
		MinAspectRatio:    2.0,
		MinArea:           600,
		MinSolidity:       0.85,
		MaxWidthFraction:  0.95,
	}
}

// Candidate is a dark component that passed the geometric gates.
type Candidate struct {
	Rect        image.Rectangle
	Area        int
	Darkness    float64 // 1 - mean/255 over the component pixels
	Solidity    float64 // component area / bounding box area
	AspectRatio float64 // width / height
}

// Detect returns candidate redaction boxes ordered top-to-bottom, then
// left-to-right. It never modifies img.
func Detect(img *image.Gray, cfg DetectConfig) []Candidate {
	if utils.IsEmpty(img) {
		return nil
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := utils.PackedPix(img)
	thr := cfg.DarknessThreshold
	mask := utils.ThresholdMask(img, func(v uint8) bool { return v <= thr })

	maxWidth := cfg.MaxWidthFraction * float64(w)
	var out []Candidate
	for _, c := range utils.ConnectedComponents(mask, w, h, pix) {
		bw, bh := c.Bounds.Dx(), c.Bounds.Dy()
		cand := Candidate{
			Rect:        c.Bounds.Add(b.Min),
			Area:        c.Area,
			Darkness:    1 - c.Mean()/255,
			Solidity:    c.Solidity(),
			AspectRatio: float64(bw) / float64(bh),
		}
		if bw < cfg.MinWidth || bh < cfg.MinHeight {
			continue
		}
		if cand.AspectRatio < cfg.MinAspectRatio || cand.Area < cfg.MinArea || cand.Solidity < cfg.MinSolidity {
			continue
		}
		if cfg.MaxWidthFraction > 0 && float64(bw) > maxWidth {
			// Page-wide rules and footers, not redactions.
			continue
		}
		out = append(out, cand)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rect.Min.Y != out[j].Rect.Min.Y {
			return out[i].Rect.Min.Y < out[j].Rect.Min.Y
		}
		return out[i].Rect.Min.X < out[j].Rect.Min.X
	})
	return out
}

// Rects returns the rectangles of cands.
func Rects(cands []Candidate) []image.Rectangle {
	out := make([]image.Rectangle, len(cands))
	for i, c := range cands {
		out[i] = c.Rect
	}
	return out
}
