package profile

import "math"

// estimateSkew finds the text-line angle by projection profiles: for each
// candidate angle the sampled ink pixels are projected onto the rotated
// vertical axis, and the angle whose histogram is most peaked (largest sum of
// squared bin counts) wins. An exact tie keeps the smaller magnitude.
func estimateSkew(mask []bool, w, h int, cfg Config) float64 {
	if cfg.SkewStep <= 0 || cfg.SkewMaxAngle <= 0 {
		return 0
	}
	pts := samplePoints(mask, w, h, cfg.SkewSamplePoints)
	if len(pts) < 2 {
		return 0
	}

	// Rotated coordinate y·cosθ + x·sinθ stays within [-w, w+h].
	offset := w + 1
	bins := make([]int, 2*w+h+3)

	steps := int(math.Round(cfg.SkewMaxAngle / cfg.SkewStep))
	best := 0.0
	bestScore := -1.0
	for i := -steps; i <= steps; i++ {
		angle := float64(i) * cfg.SkewStep
		rad := angle * math.Pi / 180
		sin, cos := math.Sin(rad), math.Cos(rad)

		clear(bins)
		for _, p := range pts {
			r := int(math.Round(float64(p[1])*cos+float64(p[0])*sin)) + offset
			if r >= 0 && r < len(bins) {
				bins[r]++
			}
		}
		var score float64
		for _, n := range bins {
			score += float64(n) * float64(n)
		}
		if score > bestScore || (score == bestScore && math.Abs(angle) < math.Abs(best)) {
			best, bestScore = angle, score
		}
	}
	return best
}

// samplePoints takes every k-th ink pixel in raster order so the sample is a
// deterministic function of the mask.
func samplePoints(mask []bool, w, h, limit int) [][2]int {
	count := 0
	for _, m := range mask[:w*h] {
		if m {
			count++
		}
	}
	if count == 0 {
		return nil
	}
	stride := 1
	if limit > 0 && count > limit {
		stride = (count + limit - 1) / limit
	}
	pts := make([][2]int, 0, count/stride+1)
	seen := 0
	for y := range h {
		for x := range w {
			if !mask[y*w+x] {
				continue
			}
			if seen%stride == 0 {
				pts = append(pts, [2]int{x, y})
			}
			seen++
		}
	}
	return pts
}
