// Package source turns input files into documents: ordered lists of encoded
// page images ready for decoding.
package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/adaptocr/internal/ocrerr"
	"github.com/MeKo-Tech/adaptocr/internal/utils"
)

// Part is one encoded image of a document. A part may still decode into
// several frames (multi-image GIF).
type Part struct {
	Name string
	Page int // 1-based PDF page, 0 for standalone images
	Data []byte
}

// Document is a unit of group concurrency.
type Document struct {
	ID    string
	Name  string
	Parts []Part
	Err   error // load failure, reported as a failed document
}

// Options controls how files are loaded.
type Options struct {
	PDFPages         string `mapstructure:"pdf_pages" yaml:"pdf_pages"` // e.g. "1-3,5"; empty = all
	PDFUserPassword  string `mapstructure:"pdf_user_password" yaml:"pdf_user_password,omitempty"`
	PDFOwnerPassword string `mapstructure:"pdf_owner_password" yaml:"pdf_owner_password,omitempty"`
}

// FromBytes wraps an in-memory image as a single-part document.
func FromBytes(name string, data []byte) Document {
	return Document{
		ID:    uuid.NewString(),
		Name:  name,
		Parts: []Part{{Name: name, Data: data}},
	}
}

// Load reads path into a document. Failures are recorded in Document.Err so
// that the caller can report the file instead of aborting the batch.
func Load(path string, opts Options) Document {
	doc := Document{ID: uuid.NewString(), Name: path}
	if !utils.IsSupportedDocument(path) {
		doc.Err = &ocrerr.ImageDecodeError{Source: path, Err: fmt.Errorf("unsupported file type %q", filepath.Ext(path))}
		return doc
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		parts, err := extractPDF(path, opts)
		if err != nil {
			doc.Err = &ocrerr.ImageDecodeError{Source: path, Err: err}
			return doc
		}
		if len(parts) == 0 {
			doc.Err = &ocrerr.ImageDecodeError{Source: path, Err: errors.New("no page images found")}
			return doc
		}
		doc.Parts = parts
		return doc
	}
	data, err := utils.ReadImageFile(path)
	if err != nil {
		doc.Err = &ocrerr.ImageDecodeError{Source: path, Err: err}
		return doc
	}
	doc.Parts = []Part{{Name: filepath.Base(path), Data: data}}
	return doc
}

// LoadAll loads every path in order.
func LoadAll(paths []string, opts Options) []Document {
	docs := make([]Document, len(paths))
	for i, p := range paths {
		docs[i] = Load(p, opts)
	}
	return docs
}

// Frames counts the parts of every document; documents that failed to load
// count as one.
func Frames(docs []Document) int {
	n := 0
	for _, d := range docs {
		n += max(len(d.Parts), 1)
	}
	return n
}
