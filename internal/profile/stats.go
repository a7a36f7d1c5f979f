package profile

import (
	"math"
)

type otsuResult struct {
	threshold    uint8
	separability float64
	mean         float64
	darkFraction float64 // share of pixels at or below the threshold
}

// otsu picks the threshold maximizing between-class variance and reports the
// separability η = σ_B²(t*) / σ_T². A single-valued histogram yields η = 0.
func otsu(hist [256]int) otsuResult {
	var total, sum float64
	for v, n := range hist {
		total += float64(n)
		sum += float64(v) * float64(n)
	}
	if total == 0 {
		return otsuResult{}
	}
	mean := sum / total

	var varT float64
	for v, n := range hist {
		d := float64(v) - mean
		varT += d * d * float64(n)
	}
	varT /= total

	res := otsuResult{threshold: uint8(math.Round(mean)), mean: mean}
	if varT == 0 {
		return res
	}

	var wB, sumB, best float64
	bestT := 0
	for t := 0; t < 255; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := (wB / total) * (wF / total) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			bestT = t
		}
	}

	var dark float64
	for v := 0; v <= bestT; v++ {
		dark += float64(hist[v])
	}
	res.threshold = uint8(bestT)
	res.separability = math.Min(1, best/varT)
	res.darkFraction = dark / total
	return res
}

// isBilevel reports whether the two most populated gray levels cover at least
// coverage of the pixels. A single-level image is not bilevel.
func isBilevel(hist [256]int, total int, coverage float64) bool {
	if total == 0 {
		return false
	}
	first, second := 0, 0
	for _, n := range hist {
		switch {
		case n > first:
			first, second = n, first
		case n > second:
			second = n
		}
	}
	if second == 0 {
		return false
	}
	return float64(first+second)/float64(total) >= coverage
}

// noiseSigma is Immerkær's fast estimate: convolve with the difference of two
// Laplacians, which cancels image structure to first order, and scale the mean
// absolute response to a Gaussian sigma.
func noiseSigma(pix []uint8, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}
	var acc float64
	for y := 1; y < h-1; y++ {
		up, row, down := (y-1)*w, y*w, (y+1)*w
		for x := 1; x < w-1; x++ {
			v := int(pix[up+x-1]) - 2*int(pix[up+x]) + int(pix[up+x+1]) -
				2*int(pix[row+x-1]) + 4*int(pix[row+x]) - 2*int(pix[row+x+1]) +
				int(pix[down+x-1]) - 2*int(pix[down+x]) + int(pix[down+x+1])
			if v < 0 {
				v = -v
			}
			acc += float64(v)
		}
	}
	return math.Sqrt(math.Pi/2) * acc / (6 * float64(w-2) * float64(h-2))
}
