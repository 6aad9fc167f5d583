// File: adapter/geometry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cursor geometry as pure functions of the cursors and the capacity.

package adapter

// tailSpace is the free span between the write cursor and the end of storage.
func tailSpace(size, w int) int { return size - w }

// headSpace is the consumed span in front of the read cursor.
func headSpace(r int) int { return r }

// linearFree is the free space a linear buffer can offer after compaction.
func linearFree(size, r, w int) int { return headSpace(r) + tailSpace(size, w) }

// ring is the cursor state of the circular strategy.
//
// Unwrapped (r <= w): unread bytes are [r, w).
// Wrapped   (r >  w): unread bytes are [r, wrap) followed by [0, w).
// While wrapped the writer keeps w < r, so r == w always means empty.
type ring struct {
	r, w, wrap, size int
}

func (g ring) wrapped() bool { return g.r > g.w }

func (g ring) empty() bool { return g.r == g.w }

// used returns the number of unread bytes.
func (g ring) used() int {
	if g.wrapped() {
		return (g.wrap - g.r) + g.w
	}
	return g.w - g.r
}

// tail is the writable span after w in the unwrapped configuration.
func (g ring) tail() int { return tailSpace(g.size, g.w) }

// head is the writable span before r when the writer wraps; one byte is
// kept free so w never catches up with r.
func (g ring) head() int { return headSpace(g.r) - 1 }

// middle is the writable span between w and r in the wrapped configuration.
func (g ring) middle() int { return g.r - g.w - 1 }

// free returns the largest frame the ring can take, allowing compaction.
//
// Unwrapped, compaction moves [r, w) to the front, leaving size - used
// contiguous bytes. Wrapped, moving [r, wrap) to the end of storage joins
// the space after wrap to the middle gap, which keeps its slack byte.
func (g ring) free() int {
	switch {
	case g.empty():
		return g.size
	case g.wrapped():
		return g.middle() + (g.size - g.wrap)
	default:
		return g.size - g.used()
	}
}
