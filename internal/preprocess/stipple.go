package preprocess

import (
	"image"

	"github.com/MeKo-Tech/adaptocr/internal/utils"
)

// StippleTransform joins dotted or broken glyph strokes: invert, dilate the
// now-bright ink with a kernel×kernel max filter, invert back. A kernel below 2
// returns a copy.
func StippleTransform(img *image.Gray, kernel int) *image.Gray {
	if kernel < 2 {
		return utils.CloneGray(img)
	}
	return utils.InvertGray(dilate(utils.InvertGray(img), kernel))
}

// dilate applies a square max filter. The square kernel is separable, so a
// horizontal pass followed by a vertical pass is equivalent to the full 2-D
// neighbourhood scan.
func dilate(img *image.Gray, kernel int) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	src := utils.PackedPix(img)
	lo := (kernel - 1) / 2
	hi := kernel - 1 - lo

	tmp := make([]uint8, w*h)
	for y := range h {
		row := src[y*w : (y+1)*w]
		for x := range w {
			var m uint8
			for k := max(0, x-lo); k <= min(w-1, x+hi); k++ {
				if row[k] > m {
					m = row[k]
				}
			}
			tmp[y*w+x] = m
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			var m uint8
			for k := max(0, y-lo); k <= min(h-1, y+hi); k++ {
				if v := tmp[k*w+x]; v > m {
					m = v
				}
			}
			out.Pix[y*out.Stride+x] = m
		}
	}
	return out
}
