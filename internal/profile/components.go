package profile

import (
	"sort"

	"github.com/MeKo-Tech/adaptocr/internal/utils"
)

// strokeStats returns the median stroke width of non-speck components and the
// number of specks. For a stroke of thickness t and length L the area is t·L
// and the boundary is about 2·L, so 2·area/boundary recovers t.
func strokeStats(comps []utils.Component, speckMax int) (float64, int) {
	specks := 0
	widths := make([]float64, 0, len(comps))
	for _, c := range comps {
		if c.Area <= speckMax {
			specks++
			continue
		}
		if c.Boundary == 0 {
			continue
		}
		widths = append(widths, 2*float64(c.Area)/float64(c.Boundary))
	}
	return median(widths), specks
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
