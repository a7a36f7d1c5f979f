package profile

import "math"

type paperSize struct {
	name  string
	short float64 // inches
	long  float64
}

var paperSizes = []paperSize{
	{"letter", 8.5, 11},
	{"a4", 8.27, 11.69},
	{"legal", 8.5, 14},
}

var standardDPIs = []float64{72, 96, 100, 150, 200, 240, 300, 400, 600}

// detectDPI applies the tiered fallback: trusted metadata, then the page
// geometry of a known paper size, else 0. It never guesses outside those.
func (a *Analyzer) detectDPI(w, h int, metadataDPI float64) (float64, string) {
	if metadataDPI >= a.cfg.MinMetadataDPI && metadataDPI <= a.cfg.MaxMetadataDPI {
		return metadataDPI, DPISourceMetadata
	}
	if dpi := a.paperSizeDPI(w, h); dpi > 0 {
		return dpi, DPISourcePaperSize
	}
	return 0, DPISourceUnknown
}

func (a *Analyzer) paperSizeDPI(w, h int) float64 {
	short, long := float64(min(w, h)), float64(max(w, h))
	if short <= 0 {
		return 0
	}
	aspect := long / short
	if aspect < a.cfg.AspectMin || aspect > a.cfg.AspectMax {
		return 0
	}

	var match *paperSize
	bestDiff := math.Inf(1)
	for i := range paperSizes {
		diff := math.Abs(aspect - paperSizes[i].long/paperSizes[i].short)
		if diff < bestDiff {
			bestDiff, match = diff, &paperSizes[i]
		}
	}
	if match == nil || bestDiff > a.cfg.PaperAspectTolerance {
		return 0
	}

	dpi := short / match.short
	for _, std := range standardDPIs {
		if math.Abs(dpi-std)/std <= a.cfg.DPISnapTolerance {
			dpi = std
			break
		}
	}
	if dpi < a.cfg.MinHeuristicDPI || dpi > a.cfg.MaxHeuristicDPI {
		return 0
	}
	return math.Round(dpi*10) / 10
}
