// File: fake/allocator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import "sync"

// Allocator is a fake pool.Allocator that counts traffic and can be told
// to fail.
type Allocator struct {
	mu       sync.Mutex
	fail     bool
	allocs   int
	frees    int
	inUse    int
	failures int
}

// NewAllocator creates a working allocator.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Alloc returns a fresh region unless failing is set.
func (a *Allocator) Alloc(n int) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail || n < 0 {
		a.failures++
		return nil, false
	}
	a.allocs++
	a.inUse += n
	return make([]byte, n), true
}

// Free records the release of b.
func (a *Allocator) Free(b []byte) {
	if b == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frees++
	a.inUse -= len(b)
}

// SetFail toggles allocation failure.
func (a *Allocator) SetFail(fail bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fail = fail
}

// Stats returns successful allocations, frees, and failed attempts.
func (a *Allocator) Stats() (allocs, frees, failures int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocs, a.frees, a.failures
}

// InUse returns allocated bytes not yet freed.
func (a *Allocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inUse
}
