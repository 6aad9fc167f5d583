// File: pool/allocator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

// Allocator hands out byte regions of an exact length.
//
// Alloc reports false instead of panicking when memory is exhausted, so
// callers can wait and retry. Free returns a region obtained from Alloc;
// the caller must not touch it afterwards.
type Allocator interface {
	Alloc(n int) ([]byte, bool)
	Free(b []byte)
}

// Heap allocates straight from the Go heap; Free leaves reclamation to the GC.
type Heap struct{}

// Alloc returns a fresh zeroed region.
func (Heap) Alloc(n int) ([]byte, bool) {
	if n < 0 {
		return nil, false
	}
	return make([]byte, n), true
}

// Free is a no-op.
func (Heap) Free([]byte) {}

var _ Allocator = Heap{}
