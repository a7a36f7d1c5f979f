package utils

import (
	"image"
	"sort"
)

// IntersectionArea returns the pixel area shared by a and b.
func IntersectionArea(a, b image.Rectangle) int {
	in := a.Intersect(b)
	if in.Empty() {
		return 0
	}
	return in.Dx() * in.Dy()
}

// Area returns the pixel area of r, zero for empty rectangles.
func Area(r image.Rectangle) int {
	if r.Empty() {
		return 0
	}
	return r.Dx() * r.Dy()
}

// ReadingOrderLess orders rectangles top-to-bottom, then left-to-right.
// Rectangles whose vertical centers lie within half the shorter height of each
// other are treated as one line.
func ReadingOrderLess(a, b image.Rectangle) bool {
	ca := (a.Min.Y + a.Max.Y) / 2
	cb := (b.Min.Y + b.Max.Y) / 2
	tol := min(a.Dy(), b.Dy()) / 2
	if abs(ca-cb) > tol {
		return ca < cb
	}
	if a.Min.X != b.Min.X {
		return a.Min.X < b.Min.X
	}
	return a.Min.Y < b.Min.Y
}

// SortReadingOrder sorts rects in place using ReadingOrderLess.
func SortReadingOrder(rects []image.Rectangle) {
	sort.SliceStable(rects, func(i, j int) bool { return ReadingOrderLess(rects[i], rects[j]) })
}

// ClampRect clips r to bounds.
func ClampRect(r, bounds image.Rectangle) image.Rectangle {
	return r.Intersect(bounds)
}

// ExpandRect grows r by n pixels on every side.
func ExpandRect(r image.Rectangle, n int) image.Rectangle {
	return image.Rect(r.Min.X-n, r.Min.Y-n, r.Max.X+n, r.Max.Y+n)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
