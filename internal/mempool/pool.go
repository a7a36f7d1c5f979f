// Package mempool keeps size-classed scratch buffers for the per-pixel passes
// (foreground masks, visited maps, BFS queues) so profiling many pages does not
// churn the allocator.
package mempool

import (
	"sync"
)

var (
	boolPools sync.Map // key: size class (int), value: *sync.Pool
	intPools  sync.Map // key: size class (int), value: *sync.Pool
)

// sizeClass rounds n up to a multiple of 4096 elements.
func sizeClass(n int) int {
	const step = 4096
	if n <= step {
		return step
	}
	return ((n + step - 1) / step) * step
}

func poolFor[T any](pools *sync.Map, cls int) *sync.Pool {
	if p, ok := pools.Load(cls); ok {
		return p.(*sync.Pool)
	}
	p, _ := pools.LoadOrStore(cls, &sync.Pool{New: func() any {
		buf := make([]T, cls)
		return &buf
	}})
	return p.(*sync.Pool)
}

func get[T any](pools *sync.Map, n int) []T {
	cls := sizeClass(n)
	bp, ok := poolFor[T](pools, cls).Get().(*[]T)
	if !ok || cap(*bp) < cls {
		return make([]T, n)
	}
	buf := (*bp)[:n]
	clear(buf)
	return buf
}

func put[T any](pools *sync.Map, buf []T) {
	if cap(buf) == 0 {
		return
	}
	cls := cap(buf)
	if cls != sizeClass(cls) {
		// Foreign slice; don't pollute a bucket with an odd capacity.
		return
	}
	full := buf[:cls]
	poolFor[T](pools, cls).Put(&full)
}

// GetBool returns a zeroed []bool of length n. Return it with PutBool.
func GetBool(n int) []bool { return get[bool](&boolPools, n) }

// PutBool returns buf to its pool. Nil is ignored.
func PutBool(buf []bool) { put(&boolPools, buf) }

// GetInt returns a zeroed []int of length n. Return it with PutInt.
func GetInt(n int) []int { return get[int](&intPools, n) }

// PutInt returns buf to its pool. Nil is ignored.
func PutInt(buf []int) { put(&intPools, buf) }
