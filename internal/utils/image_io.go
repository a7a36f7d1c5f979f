package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SupportedImageExtensions lists raster formats the decoder understands.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff", ".gif"}

// SupportedDocumentExtensions adds container formats whose pages are images.
var SupportedDocumentExtensions = append(append([]string{}, SupportedImageExtensions...), ".pdf")

// IsSupportedImage reports whether the path has a supported raster extension.
func IsSupportedImage(path string) bool {
	return hasExt(path, SupportedImageExtensions)
}

// IsSupportedDocument reports whether the path is a raster image or a PDF.
func IsSupportedDocument(path string) bool {
	return hasExt(path, SupportedDocumentExtensions)
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range exts {
		if ext == s {
			return true
		}
	}
	return false
}

// MaxImageFileSize bounds how much of a single input file is read into memory.
const MaxImageFileSize = 256 << 20

// ReadImageFile reads an encoded image into memory so both the pixel decoder
// and the DPI metadata reader can look at the same bytes.
func ReadImageFile(path string) ([]byte, error) {
	if path == "" {
		return nil, &ImageProcessingError{Operation: "load", Err: errors.New("empty path")}
	}
	f, err := os.Open(path) //nolint:gosec // G304: reading user-provided image path is expected
	if err != nil {
		return nil, &ImageProcessingError{Operation: "load", Err: err}
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageFileSize+1))
	if err != nil {
		return nil, &ImageProcessingError{Operation: "load", Err: err}
	}
	if len(data) > MaxImageFileSize {
		return nil, &ImageProcessingError{Operation: "load", Err: fmt.Errorf("file exceeds %d bytes", MaxImageFileSize)}
	}
	if len(data) == 0 {
		return nil, &ImageProcessingError{Operation: "load", Err: errors.New("empty file")}
	}
	return data, nil
}
