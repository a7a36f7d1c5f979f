package profile

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestOtsu_SeparabilityInUnitInterval(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("0 <= separability <= 1", prop.ForAll(
		func(counts []int) bool {
			var hist [256]int
			for i, c := range counts {
				hist[(i*37)%256] += c
			}
			r := otsu(hist)
			return r.separability >= 0 && r.separability <= 1
		},
		gen.SliceOfN(16, gen.IntRange(0, 1000)),
	))
	properties.Property("two-level histograms are perfectly separable", prop.ForAll(
		func(lo, hi, nlo, nhi int) bool {
			if lo == hi {
				return true
			}
			var hist [256]int
			hist[lo] += nlo
			hist[hi] += nhi
			r := otsu(hist)
			return r.separability > 0.999
		},
		gen.IntRange(0, 255), gen.IntRange(0, 255), gen.IntRange(1, 500), gen.IntRange(1, 500),
	))
	properties.TestingRun(t)
}

func TestMedian(t *testing.T) {
	if median(nil) != 0 || median([]float64{3, 1, 2}) != 2 || median([]float64{4, 1, 2, 3}) != 2.5 {
		t.Fatal("median mismatch")
	}
}
