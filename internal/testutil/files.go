package testutil

import (
	"encoding/binary"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/adaptocr/internal/utils"
)

// EncodePNG encodes img as PNG, declaring dpi when positive.
func EncodePNG(t testing.TB, img image.Image, dpi float64) []byte {
	t.Helper()
	data, err := utils.EncodePNGWithDPI(img, dpi)
	require.NoError(t, err)
	return data
}

// WriteFile writes data to dir/name, creating parent directories.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// WritePNG encodes img with dpi and writes it to dir/name.
func WritePNG(t testing.TB, dir, name string, img image.Image, dpi float64) string {
	t.Helper()
	return WriteFile(t, dir, name, EncodePNG(t, img, dpi))
}

// TIFFPage is one page of EncodeTIFF output.
type TIFFPage struct {
	Image       *image.Gray
	DPI         float64
	Compression uint16 // 0 writes uncompressed data
}

// EncodeTIFF writes an 8-bit grayscale little-endian TIFF with one directory
// per page, each declaring its own resolution in dots per inch.
func EncodeTIFF(t testing.TB, pages ...TIFFPage) []byte {
	t.Helper()
	require.NotEmpty(t, pages)
	le := binary.LittleEndian
	buf := []byte{'I', 'I', 42, 0, 0, 0, 0, 0}
	link := 4
	for _, p := range pages {
		b := p.Image.Bounds()
		w, h := b.Dx(), b.Dy()
		strip := len(buf)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := p.Image.PixOffset(b.Min.X, y)
			buf = append(buf, p.Image.Pix[i:i+w]...)
		}
		if len(buf)%2 == 1 {
			buf = append(buf, 0)
		}
		res := len(buf)
		dpi := uint32(math.Round(p.DPI))
		for range 2 {
			buf = le.AppendUint32(buf, dpi)
			buf = le.AppendUint32(buf, 1)
		}
		compression := p.Compression
		if compression == 0 {
			compression = 1
		}
		entries := [][3]uint32{ // tag, type, value
			{256, 4, uint32(w)},
			{257, 4, uint32(h)},
			{258, 3, 8},
			{259, 3, uint32(compression)},
			{262, 3, 1},
			{273, 4, uint32(strip)},
			{277, 3, 1},
			{278, 4, uint32(h)},
			{279, 4, uint32(w * h)},
			{282, 5, uint32(res)},
			{283, 5, uint32(res + 8)},
			{296, 3, 2},
		}
		le.PutUint32(buf[link:], uint32(len(buf)))
		buf = le.AppendUint16(buf, uint16(len(entries)))
		for _, e := range entries {
			buf = le.AppendUint16(buf, uint16(e[0]))
			buf = le.AppendUint16(buf, uint16(e[1]))
			buf = le.AppendUint32(buf, 1)
			if e[1] == 3 {
				buf = le.AppendUint16(buf, uint16(e[2]))
				buf = le.AppendUint16(buf, 0)
			} else {
				buf = le.AppendUint32(buf, e[2])
			}
		}
		link = len(buf)
		buf = le.AppendUint32(buf, 0)
	}
	return buf
}
