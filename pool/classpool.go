// File: pool/classpool.go
// Package pool implements size-classed reuse on top of sync.Pool.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

// sizeClasses are the reusable region capacities, smallest first.
var sizeClasses = []int{
	2 * 1024,
	4 * 1024,
	8 * 1024,
	16 * 1024,
	32 * 1024,
	64 * 1024,
	128 * 1024,
	256 * 1024,
	512 * 1024,
	1024 * 1024,
}

// sizeClassUpperBound returns the index of the smallest class >= size, or -1.
func sizeClassUpperBound(size int) int {
	for i, c := range sizeClasses {
		if size <= c {
			return i
		}
	}
	return -1
}

// minPooled is the smallest request served from a class. Smaller requests
// get an exact heap region so rounding never wastes more than half a class.
const minPooled = 1024

// ClassPool reuses regions per size class. Requests below minPooled or
// above the largest class are served by the heap and not pooled.
type ClassPool struct {
	classes []*SyncPool[*[]byte]
}

// NewClassPool creates a pool with one sync.Pool per size class.
func NewClassPool() *ClassPool {
	p := &ClassPool{classes: make([]*SyncPool[*[]byte], len(sizeClasses))}
	for i, c := range sizeClasses {
		size := c
		p.classes[i] = NewSyncPool(func() *[]byte {
			b := make([]byte, size)
			return &b
		})
	}
	return p
}

// Alloc returns a region of exactly n bytes.
func (p *ClassPool) Alloc(n int) ([]byte, bool) {
	if n < 0 {
		return nil, false
	}
	idx := sizeClassUpperBound(n)
	if idx < 0 || n < minPooled {
		return make([]byte, n), true
	}
	bp := p.classes[idx].Get()
	return (*bp)[:n], true
}

// Free returns b to its class when its capacity matches one exactly.
func (p *ClassPool) Free(b []byte) {
	c := cap(b)
	idx := sizeClassUpperBound(c)
	if idx < 0 || sizeClasses[idx] != c {
		return
	}
	b = b[:c]
	p.classes[idx].Put(&b)
}

// Stats returns fresh allocations and pool hits since creation.
func (p *ClassPool) Stats() (allocs, reuses int64) {
	for _, c := range p.classes {
		gets, created := c.Stats()
		allocs += created
		reuses += gets - created
	}
	return allocs, reuses
}

var _ Allocator = (*ClassPool)(nil)
