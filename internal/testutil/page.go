// Package testutil builds synthetic page images for tests: text pages, bar
// patterns, speckle and noise, redaction bars and skewed scans.
package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// PageConfig describes a synthetic text page.
type PageConfig struct {
	Width      int
	Height     int
	Lines      []string
	Scale      int // integer upscaling of the 7x13 bitmap font, 1 = native
	Margin     int
	LineGap    int
	Background uint8
	Foreground uint8
}

// DefaultPageConfig returns a small white page with three lines of black text.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		Width:      400,
		Height:     300,
		Lines:      []string{"The quick brown fox", "jumps over the lazy dog", "Invoice 12345 total 99.50"},
		Scale:      2,
		Margin:     20,
		LineGap:    12,
		Background: 255,
		Foreground: 0,
	}
}

// TextPage renders cfg.Lines with the basic bitmap font.
func TextPage(cfg PageConfig) *image.Gray {
	scale := max(cfg.Scale, 1)
	face := basicfont.Face7x13
	lineH := face.Metrics().Height.Ceil()

	smallW := max(cfg.Width/scale, 1)
	smallH := max(cfg.Height/scale, 1)
	small := image.NewGray(image.Rect(0, 0, smallW, smallH))
	draw.Draw(small, small.Bounds(), image.NewUniform(color.Gray{Y: cfg.Background}), image.Point{}, draw.Src)

	d := &font.Drawer{Dst: small, Src: image.NewUniform(color.Gray{Y: cfg.Foreground}), Face: face}
	margin := cfg.Margin / scale
	gap := cfg.LineGap / scale
	for i, line := range cfg.Lines {
		d.Dot = fixed.P(margin, margin+(i+1)*lineH+i*gap)
		d.DrawString(line)
	}
	if scale == 1 {
		return small
	}
	return Upscale(small, cfg.Width, cfg.Height)
}

// Blank returns a page filled with a single gray level.
func Blank(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// HorizontalBars draws full-width dark bars of the given thickness separated
// by gap pixels of white, starting at the top margin.
func HorizontalBars(w, h, thickness, gap, margin int) *image.Gray {
	img := Blank(w, h, 255)
	for y := margin; y+thickness <= h-margin; y += thickness + gap {
		FillRect(img, image.Rect(margin, y, w-margin, y+thickness), 0)
	}
	return img
}

// FillRect paints r with gray level v, clipped to the image.
func FillRect(img *image.Gray, r image.Rectangle, v uint8) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := img.Pix[img.PixOffset(r.Min.X, y):img.PixOffset(r.Max.X, y)]
		for i := range row {
			row[i] = v
		}
	}
}

// AddSpeckle sets n pseudo-random isolated pixels to black.
func AddSpeckle(img *image.Gray, n int, seed int64) *image.Gray {
	out := clone(img)
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // test data
	b := out.Bounds()
	for i := 0; i < n; i++ {
		x := b.Min.X + rng.Intn(b.Dx())
		y := b.Min.Y + rng.Intn(b.Dy())
		out.SetGray(x, y, color.Gray{Y: 0})
	}
	return out
}

// AddGaussianNoise perturbs every pixel with N(0, sigma²) noise.
func AddGaussianNoise(img *image.Gray, sigma float64, seed int64) *image.Gray {
	out := clone(img)
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // test data
	for i, v := range out.Pix {
		n := float64(v) + rng.NormFloat64()*sigma
		switch {
		case n < 0:
			n = 0
		case n > 255:
			n = 255
		}
		out.Pix[i] = uint8(n + 0.5)
	}
	return out
}

// Rotate turns img counter-clockwise by deg degrees onto a white canvas of the
// same size.
func Rotate(img *image.Gray, deg float64) *image.Gray {
	rot := imaging.Rotate(img, deg, color.White)
	rot = imaging.CropCenter(rot, img.Bounds().Dx(), img.Bounds().Dy())
	return toGray(rot)
}

// Upscale resizes img with nearest-neighbour, keeping hard edges.
func Upscale(img *image.Gray, w, h int) *image.Gray {
	return toGray(imaging.Resize(img, w, h, imaging.NearestNeighbor))
}

// Words returns n space-separated filler words.
func Words(n int) string {
	base := []string{"lorem", "ipsum", "dolor", "sit", "amet", "consectetur", "adipiscing", "elit"}
	out := make([]string, n)
	for i := range out {
		out[i] = base[i%len(base)]
	}
	return strings.Join(out, " ")
}

func clone(img *image.Gray) *image.Gray {
	out := image.NewGray(img.Rect)
	copy(out.Pix, img.Pix)
	return out
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
