package utils

import (
	"image"

	"github.com/MeKo-Tech/adaptocr/internal/mempool"
)

// Component summarizes one 4-connected region of a binary mask.
type Component struct {
	Area     int
	Boundary int // pixels with at least one 4-neighbour outside the region
	Bounds   image.Rectangle
	Sum      int64 // sum of the underlying gray values, when provided
}

// Mean returns the average underlying gray value of the component.
func (c Component) Mean() float64 {
	if c.Area == 0 {
		return 0
	}
	return float64(c.Sum) / float64(c.Area)
}

// Solidity is the filled fraction of the bounding box.
func (c Component) Solidity() float64 {
	a := Area(c.Bounds)
	if a == 0 {
		return 0
	}
	return float64(c.Area) / float64(a)
}

var dirs4 = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// ConnectedComponents finds 4-connected regions of true pixels in a row-major
// mask of size w×h. values, when non-nil, supplies the gray level per pixel for
// Component.Sum. Components are returned in raster order of their first pixel.
func ConnectedComponents(mask []bool, w, h int, values []uint8) []Component {
	if w <= 0 || h <= 0 || len(mask) < w*h {
		return nil
	}
	visited := mempool.GetBool(w * h)
	defer mempool.PutBool(visited)
	queue := mempool.GetInt(w * h)
	defer mempool.PutInt(queue)

	var comps []Component
	for y := range h {
		for x := range w {
			idx := y*w + x
			if !mask[idx] || visited[idx] {
				continue
			}
			comps = append(comps, floodComponent(mask, visited, queue, values, w, h, idx))
		}
	}
	return comps
}

// floodComponent runs a BFS from seed. queue is scratch space of length w*h;
// each pixel is enqueued at most once so it never overflows.
func floodComponent(mask, visited []bool, queue []int, values []uint8, w, h, seed int) Component {
	sx, sy := seed%w, seed/w
	c := Component{Bounds: image.Rect(sx, sy, sx+1, sy+1)}
	head, tail := 0, 0
	queue[tail] = seed
	tail++
	visited[seed] = true

	for head < tail {
		ci := queue[head]
		head++
		cx, cy := ci%w, ci/w

		c.Area++
		if values != nil {
			c.Sum += int64(values[ci])
		}
		c.Bounds = c.Bounds.Union(image.Rect(cx, cy, cx+1, cy+1))

		edge := false
		for _, d := range dirs4 {
			nx, ny := cx+d[0], cy+d[1]
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				edge = true
				continue
			}
			ni := ny*w + nx
			if !mask[ni] {
				edge = true
				continue
			}
			if !visited[ni] {
				visited[ni] = true
				queue[tail] = ni
				tail++
			}
		}
		if edge {
			c.Boundary++
		}
	}
	return c
}

// ThresholdMask marks pixels of img for which keep returns true.
// The caller owns the returned slice.
func ThresholdMask(img *image.Gray, keep func(v uint8) bool) []bool {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := make([]bool, w*h)
	for y := range h {
		row := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := range w {
			mask[y*w+x] = keep(row[x])
		}
	}
	return mask
}

// PackedPix returns the pixels of img as a tightly packed row-major slice.
func PackedPix(img *image.Gray) []uint8 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if img.Stride == w && b.Min == (image.Point{}) {
		return img.Pix[:w*h]
	}
	out := make([]uint8, w*h)
	for y := range h {
		copy(out[y*w:(y+1)*w], img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	return out
}
