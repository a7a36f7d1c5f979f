package utils

import (
	"image"
	"image/color"
	"image/draw"
)

// ToGray converts img to an 8-bit grayscale image whose bounds start at (0,0).
// A *image.Gray already anchored at the origin is returned as is.
func ToGray(img image.Image) *image.Gray {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) {
		return g
	}
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < b.Dy(); y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
	case *image.NRGBA:
		for y := 0; y < b.Dy(); y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < b.Dx(); x++ {
				r, g, bl, a := row[x*4], row[x*4+1], row[x*4+2], row[x*4+3]
				out.Pix[y*out.Stride+x] = compositeOnWhite(luma(uint32(r), uint32(g), uint32(bl)), a)
			}
		}
	default:
		// Transparent regions render as paper white, which is what a scanner sees.
		rgba := image.NewRGBA(out.Bounds())
		draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Over)
		for y := 0; y < b.Dy(); y++ {
			row := rgba.Pix[y*rgba.Stride:]
			for x := 0; x < b.Dx(); x++ {
				out.Pix[y*out.Stride+x] = luma(uint32(row[x*4]), uint32(row[x*4+1]), uint32(row[x*4+2]))
			}
		}
	}
	return out
}

// luma uses the ITU-R BT.601 weights in fixed point, like color.GrayModel.
func luma(r, g, b uint32) uint8 {
	return uint8((19595*r + 38470*g + 7471*b + 1<<15) >> 16)
}

func compositeOnWhite(v uint8, a uint8) uint8 {
	if a == 0xff {
		return v
	}
	return uint8((uint32(v)*uint32(a) + 255*uint32(255-a) + 127) / 255)
}

// CloneGray returns a deep copy of img.
func CloneGray(img *image.Gray) *image.Gray {
	out := image.NewGray(img.Rect)
	copy(out.Pix, img.Pix)
	return out
}

// InvertGray returns the photographic negative of img.
func InvertGray(img *image.Gray) *image.Gray {
	out := image.NewGray(img.Rect)
	for i, v := range img.Pix {
		out.Pix[i] = 255 - v
	}
	return out
}

// Histogram counts pixels per gray level.
func Histogram(img *image.Gray) [256]int {
	var h [256]int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for _, v := range row {
			h[v]++
		}
	}
	return h
}

// IsEmpty reports whether img is nil or has no pixels.
func IsEmpty(img image.Image) bool {
	if img == nil {
		return true
	}
	b := img.Bounds()
	return b.Dx() <= 0 || b.Dy() <= 0
}
