package utils

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"math"
)

const metersPerInch = 0.0254

var (
	pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

	errNotPNG = errors.New("not a PNG stream")
)

// ReadDPI extracts the horizontal resolution declared in the container
// metadata of an encoded image. It understands PNG pHYs, JPEG JFIF, TIFF
// XResolution and BMP pixels-per-meter. Zero means no usable declaration.
func ReadDPI(data []byte) float64 {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		return pngDPI(data)
	case len(data) > 3 && data[0] == 0xff && data[1] == 0xd8:
		return jpegDPI(data)
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return tiffDPI(data)
	case bytes.HasPrefix(data, []byte("BM")):
		return bmpDPI(data)
	}
	return 0
}

func pngDPI(data []byte) float64 {
	pos := len(pngSignature)
	for pos+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[pos:]))
		kind := string(data[pos+4 : pos+8])
		body := pos + 8
		if length < 0 || body+length > len(data) {
			return 0
		}
		switch kind {
		case "pHYs":
			if length < 9 || data[body+8] != 1 {
				// Unit 0 only carries an aspect ratio.
				return 0
			}
			ppm := binary.BigEndian.Uint32(data[body:])
			return roundDPI(float64(ppm) * metersPerInch)
		case "IDAT", "IEND":
			return 0
		}
		pos = body + length + 4
	}
	return 0
}

func jpegDPI(data []byte) float64 {
	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xff {
			return 0
		}
		marker := data[pos+1]
		if marker == 0xd8 || (marker >= 0xd0 && marker <= 0xd7) || marker == 0x01 {
			pos += 2
			continue
		}
		if marker == 0xda || marker == 0xd9 {
			return 0
		}
		segLen := int(binary.BigEndian.Uint16(data[pos+2:]))
		seg := pos + 4
		if segLen < 2 || pos+2+segLen > len(data) {
			return 0
		}
		if marker == 0xe0 && segLen >= 16 && bytes.Equal(data[seg:seg+5], []byte("JFIF\x00")) {
			units := data[seg+7]
			x := float64(binary.BigEndian.Uint16(data[seg+8:]))
			switch units {
			case 1:
				return x
			case 2:
				return roundDPI(x * 2.54)
			}
			return 0
		}
		pos += 2 + segLen
	}
	return 0
}

func tiffDPI(data []byte) float64 {
	var order binary.ByteOrder = binary.LittleEndian
	if data[0] == 'M' {
		order = binary.BigEndian
	}
	if len(data) < 8 {
		return 0
	}
	ifd := int(order.Uint32(data[4:]))
	if ifd+2 > len(data) {
		return 0
	}
	n := int(order.Uint16(data[ifd:]))
	var (
		xres float64
		unit uint16 = 2
	)
	for i := 0; i < n; i++ {
		entry := ifd + 2 + i*12
		if entry+12 > len(data) {
			break
		}
		tag := order.Uint16(data[entry:])
		switch tag {
		case 282: // XResolution, RATIONAL
			off := int(order.Uint32(data[entry+8:]))
			if off+8 <= len(data) {
				num := order.Uint32(data[off:])
				den := order.Uint32(data[off+4:])
				if den != 0 {
					xres = float64(num) / float64(den)
				}
			}
		case 296: // ResolutionUnit, SHORT
			unit = order.Uint16(data[entry+8:])
		}
	}
	switch unit {
	case 2:
		return roundDPI(xres)
	case 3:
		return roundDPI(xres * 2.54)
	}
	return 0
}

func bmpDPI(data []byte) float64 {
	if len(data) < 42 {
		return 0
	}
	ppm := int32(binary.LittleEndian.Uint32(data[38:]))
	if ppm <= 0 {
		return 0
	}
	return roundDPI(float64(ppm) * metersPerInch)
}

// roundDPI removes the rounding noise introduced by pixels-per-meter units.
func roundDPI(v float64) float64 {
	return math.Round(v*10) / 10
}

// EncodePNGWithDPI encodes img as PNG and declares dpi in a pHYs chunk so the
// recognition engine sees the effective resolution. dpi <= 0 writes no chunk.
func EncodePNGWithDPI(img image.Image, dpi float64) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, &ImageProcessingError{Operation: "encode_png", Err: err}
	}
	if dpi <= 0 {
		return buf.Bytes(), nil
	}
	out, err := SetPNGDPI(buf.Bytes(), dpi)
	if err != nil {
		return nil, &ImageProcessingError{Operation: "encode_png", Err: err}
	}
	return out, nil
}

// SetPNGDPI inserts a pHYs chunk right after IHDR, replacing any existing one.
func SetPNGDPI(data []byte, dpi float64) ([]byte, error) {
	const ihdrEnd = 8 + 4 + 4 + 13 + 4
	if !bytes.HasPrefix(data, pngSignature) || len(data) < ihdrEnd || string(data[12:16]) != "IHDR" {
		return nil, errNotPNG
	}
	if dpi <= 0 || math.IsNaN(dpi) || math.IsInf(dpi, 0) {
		return nil, fmt.Errorf("invalid dpi %v", dpi)
	}
	ppm := uint32(math.Round(dpi / metersPerInch))

	chunk := make([]byte, 4+4+9+4)
	binary.BigEndian.PutUint32(chunk[0:], 9)
	copy(chunk[4:], "pHYs")
	binary.BigEndian.PutUint32(chunk[8:], ppm)
	binary.BigEndian.PutUint32(chunk[12:], ppm)
	chunk[16] = 1
	binary.BigEndian.PutUint32(chunk[17:], crc32.ChecksumIEEE(chunk[4:17]))

	out := make([]byte, 0, len(data)+len(chunk))
	out = append(out, data[:ihdrEnd]...)
	out = append(out, chunk...)
	out = append(out, stripChunk(data[ihdrEnd:], "pHYs")...)
	return out, nil
}

func stripChunk(chunks []byte, kind string) []byte {
	out := make([]byte, 0, len(chunks))
	pos := 0
	for pos+8 <= len(chunks) {
		length := int(binary.BigEndian.Uint32(chunks[pos:]))
		end := pos + 12 + length
		if end > len(chunks) {
			return append(out, chunks[pos:]...)
		}
		if string(chunks[pos+4:pos+8]) != kind {
			out = append(out, chunks[pos:end]...)
		}
		pos = end
	}
	return append(out, chunks[pos:]...)
}
