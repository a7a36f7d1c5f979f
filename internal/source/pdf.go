package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/MeKo-Tech/adaptocr/internal/utils"
)

// extractPDF pulls the embedded page images out of a PDF. Scanned PDFs carry
// one image per page; the raw encoded bytes are kept so their own resolution
// metadata survives.
func extractPDF(path string, opts Options) ([]Part, error) {
	pages, err := ParsePageRange(opts.PDFPages)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", opts.PDFPages, err)
	}
	var selected []string
	for _, p := range pages {
		selected = append(selected, strconv.Itoa(p))
	}

	tempDir, err := os.MkdirTemp("", "adaptocr-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	conf := model.NewDefaultConfiguration()
	conf.UserPW = opts.PDFUserPassword
	conf.OwnerPW = opts.PDFOwnerPassword
	if err := api.ExtractImagesFile(path, tempDir, selected, conf); err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}
	return collectExtracted(tempDir)
}

// collectExtracted reads the extracted files ordered by page, then by name.
func collectExtracted(dir string) ([]Part, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var parts []Part
	for _, e := range entries {
		if e.IsDir() || !utils.IsSupportedImage(e.Name()) {
			continue
		}
		page, ok := pageFromFilename(e.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name())) //nolint:gosec // G304: temp dir we created
		if err != nil || len(data) == 0 {
			continue
		}
		parts = append(parts, Part{Name: e.Name(), Page: page, Data: data})
	}
	sort.SliceStable(parts, func(i, j int) bool {
		if parts[i].Page != parts[j].Page {
			return parts[i].Page < parts[j].Page
		}
		return parts[i].Name < parts[j].Name
	})
	return parts, nil
}

// pageFromFilename understands pdfcpu's "<stem>_<page>_<id>.<ext>" names and
// the older "page_<page>_image_<n>.<ext>" layout.
func pageFromFilename(name string) (int, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	fields := strings.Split(stem, "_")
	if len(fields) >= 2 && fields[0] == "page" {
		if n, err := strconv.Atoi(fields[1]); err == nil && n > 0 {
			return n, true
		}
	}
	if len(fields) >= 3 {
		if n, err := strconv.Atoi(fields[len(fields)-2]); err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

// ParsePageRange parses "1-5" or "1,3,5" into page numbers. Empty means all.
func ParsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}
	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

func parseRangeToken(part string) ([]int, error) {
	if strings.Contains(part, "-") {
		bounds := strings.Split(part, "-")
		if len(bounds) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
		if err != nil || start < 1 {
			return nil, fmt.Errorf("invalid start page: %s", bounds[0])
		}
		end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", bounds[1])
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := strconv.Atoi(part)
	if err != nil || page < 1 {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	return []int{page}, nil
}
