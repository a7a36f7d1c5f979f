// Package preprocess decodes page images and applies the adaptive
// transformations chosen by the recommender: orientation, grayscale, bilevel
// smoothing, deskew, inversion, contrast, DPI downscaling and the stipple
// transform used by the second recognition pass.
package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder

	"github.com/MeKo-Tech/adaptocr/internal/ocrerr"
	"github.com/MeKo-Tech/adaptocr/internal/utils"
)

// Frame is one decoded page of an input image.
type Frame struct {
	Index       int
	Gray        *image.Gray
	MetadataDPI float64 // resolution declared by this frame's container, 0 if none
	Format      string

	// Err is set, and Gray is nil, for a page of a multi-page container that
	// could not be decoded. The other pages are still returned.
	Err error
}

// Decode sniffs the format of data and returns its frames in order. GIF
// inputs yield one frame per image and multi-page TIFFs one frame per page,
// each with its own resolution; other formats yield one frame with EXIF
// orientation applied. Every failure is an *ocrerr.ImageDecodeError.
func Decode(data []byte) ([]Frame, error) {
	if len(data) == 0 {
		return nil, &ocrerr.ImageDecodeError{Err: errors.New("empty input")}
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &ocrerr.ImageDecodeError{Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &ocrerr.ImageDecodeError{Err: fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)}
	}

	if format == "gif" {
		return decodeGIF(data)
	}
	if format == "tiff" {
		if ifds := utils.TIFFPages(data); len(ifds) > 1 {
			return decodeTIFFPages(data, ifds), nil
		}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ocrerr.ImageDecodeError{Err: err}
	}
	gray := utils.ToGray(img)
	if utils.IsEmpty(gray) {
		return nil, &ocrerr.ImageDecodeError{Err: errors.New("decoded image has no pixels")}
	}
	return []Frame{{Index: 0, Gray: gray, MetadataDPI: utils.ReadDPI(data), Format: format}}, nil
}

// decodeGIF renders every frame onto a white canvas of the logical screen
// size. GIF carries no resolution metadata, so every frame reports 0.
func decodeGIF(data []byte) ([]Frame, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, &ocrerr.ImageDecodeError{Err: err}
	}
	if len(g.Image) == 0 {
		return nil, &ocrerr.ImageDecodeError{Err: errors.New("gif has no frames")}
	}
	screen := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if screen.Empty() {
		screen = g.Image[0].Bounds()
	}
	frames := make([]Frame, 0, len(g.Image))
	for i, pal := range g.Image {
		canvas := image.NewRGBA(screen)
		draw.Draw(canvas, screen, image.NewUniform(color.White), image.Point{}, draw.Src)
		draw.Draw(canvas, pal.Bounds(), pal, pal.Bounds().Min, draw.Over)
		frames = append(frames, Frame{Index: i, Gray: utils.ToGray(canvas), Format: "gif"})
	}
	return frames, nil
}

// decodeTIFFPages decodes every directory of a multi-page TIFF. A page that
// fails keeps its slot with Err set.
func decodeTIFFPages(data []byte, ifds []int) []Frame {
	frames := make([]Frame, 0, len(ifds))
	for i, ifd := range ifds {
		page := utils.TIFFPage(data, ifd)
		f := Frame{Index: i, Format: "tiff", MetadataDPI: utils.ReadDPI(page)}
		img, err := imaging.Decode(bytes.NewReader(page), imaging.AutoOrientation(true))
		if err != nil {
			f.Err = &ocrerr.ImageDecodeError{Source: fmt.Sprintf("tiff page %d", i+1), Err: err}
			frames = append(frames, f)
			continue
		}
		if gray := utils.ToGray(img); !utils.IsEmpty(gray) {
			f.Gray = gray
		} else {
			f.Err = &ocrerr.ImageDecodeError{Source: fmt.Sprintf("tiff page %d", i+1), Err: errors.New("decoded image has no pixels")}
		}
		frames = append(frames, f)
	}
	return frames
}
