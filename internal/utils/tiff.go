package utils

import (
	"bytes"
	"encoding/binary"
)

// maxTIFFPages bounds the directory walk of a corrupt or hostile stream.
const maxTIFFPages = 4096

func tiffByteOrder(data []byte) (binary.ByteOrder, bool) {
	switch {
	case bytes.HasPrefix(data, []byte("II*\x00")):
		return binary.LittleEndian, true
	case bytes.HasPrefix(data, []byte("MM\x00*")):
		return binary.BigEndian, true
	}
	return nil, false
}

// TIFFPages returns the offsets of the image file directories of a TIFF
// stream in chain order. The walk stops at a loop or an out-of-range offset.
// Non-TIFF input yields nil.
func TIFFPages(data []byte) []int {
	order, ok := tiffByteOrder(data)
	if !ok || len(data) < 8 {
		return nil
	}
	var offsets []int
	seen := make(map[int]bool)
	off := int(order.Uint32(data[4:]))
	for off != 0 && len(offsets) < maxTIFFPages {
		if off < 8 || off+2 > len(data) || seen[off] {
			break
		}
		seen[off] = true
		offsets = append(offsets, off)
		next := off + 2 + int(order.Uint16(data[off:]))*12
		if next+4 > len(data) {
			break
		}
		off = int(order.Uint32(data[next:]))
	}
	return offsets
}

// TIFFPage returns a copy of data whose header points at the directory at
// ifd, so single-image decoders and ReadDPI see that page. Offsets inside a
// TIFF are absolute, so the rest of the stream is reused unchanged.
func TIFFPage(data []byte, ifd int) []byte {
	order, ok := tiffByteOrder(data)
	if !ok || len(data) < 8 {
		return data
	}
	out := bytes.Clone(data)
	order.PutUint32(out[4:], uint32(ifd))
	return out
}
