package utils

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tiffChain builds directories that carry only a resolution, one per dpi.
func tiffChain(dpis ...uint32) []byte {
	order := binary.LittleEndian
	const dirSize = 2 + 2*12 + 4 + 8
	buf := []byte("II*\x00")
	buf = order.AppendUint32(buf, 8)
	for i, dpi := range dpis {
		ifd := 8 + i*dirSize
		buf = order.AppendUint16(buf, 2)
		buf = order.AppendUint16(buf, 282)
		buf = order.AppendUint16(buf, 5)
		buf = order.AppendUint32(buf, 1)
		buf = order.AppendUint32(buf, uint32(ifd+30))
		buf = order.AppendUint16(buf, 296)
		buf = order.AppendUint16(buf, 3)
		buf = order.AppendUint32(buf, 1)
		buf = order.AppendUint32(buf, 2)
		next := uint32(0)
		if i < len(dpis)-1 {
			next = uint32(ifd + dirSize)
		}
		buf = order.AppendUint32(buf, next)
		buf = order.AppendUint32(buf, dpi)
		buf = order.AppendUint32(buf, 1)
	}
	return buf
}

func TestTIFFPages(t *testing.T) {
	data := tiffChain(300, 200, 600)
	ifds := TIFFPages(data)
	require.Len(t, ifds, 3)
	assert.Equal(t, 8, ifds[0])

	for i, want := range []float64{300, 200, 600} {
		assert.InDelta(t, want, ReadDPI(TIFFPage(data, ifds[i])), 0.01, "page %d", i)
	}
	assert.InDelta(t, 300, ReadDPI(data), 0.01, "original stream is untouched")
}

func TestTIFFPages_StopsOnLoop(t *testing.T) {
	data := tiffChain(300, 200)
	ifds := TIFFPages(data)
	require.Len(t, ifds, 2)
	// Point the last directory back at the first.
	binary.LittleEndian.PutUint32(data[ifds[1]+26:], uint32(ifds[0]))
	assert.Equal(t, ifds, TIFFPages(data))
}

func TestTIFFPages_NotTIFF(t *testing.T) {
	assert.Nil(t, TIFFPages(nil))
	assert.Nil(t, TIFFPages([]byte("\x89PNG\r\n\x1a\n")))
	assert.Nil(t, TIFFPages([]byte("II*\x00\xff\xff\x00\x00")))

	png := []byte("\x89PNG\r\n\x1a\n")
	assert.Equal(t, png, TIFFPage(png, 8))
}
