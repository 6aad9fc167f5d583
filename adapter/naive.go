// File: adapter/naive.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package adapter

import (
	"github.com/momentics/wsproxy/api"
)

// shrinkThreshold is the spare capacity above which Naive reallocates.
const shrinkThreshold = 4096

// Naive keeps every unread byte in one growing region.
//
// It never rejects a frame for lack of capacity, so an idle consumer lets
// it grow until the allocator refuses, and every partial read moves the
// remainder to the front. Use it only as a baseline.
type Naive struct {
	base

	region   []byte // from the allocator; unread bytes are region[r:w]
	r, w     int
	inflight bool
	released bool
}

// NewNaive creates an unbounded adapter. Capacity is ignored; the wait
// timeout only bounds allocation retries.
func NewNaive(opts ...Option) *Naive {
	a := &Naive{}
	a.init(KindNaive, opts)
	return a
}

// Ingest appends the frame, growing the region through the allocator when
// the tail is too short.
func (a *Naive) Ingest(src api.FrameSource) error {
	n := src.Len()

	a.ingestMu.Lock()
	defer a.ingestMu.Unlock()

	a.mon.mu.Lock()
	if a.released {
		a.mon.mu.Unlock()
		return ErrReleased
	}
	if n == 0 {
		a.mon.mu.Unlock()
		return a.receiveEmpty(src)
	}
	a.shiftFront()

	start := a.cfg.clock.Now()
	ok := a.mon.waitFor(a.cfg.timeout, a.cfg.allocRetry, func() bool {
		return a.released || len(a.region)-a.w >= n || a.grow(a.w+n)
	})
	a.cfg.metrics.waited(a.kind, a.cfg.clock.Since(start))
	if a.released {
		a.mon.mu.Unlock()
		return ErrReleased
	}
	if !ok {
		a.mon.mu.Unlock()
		return a.noSpace(src, true)
	}
	dst := a.region[a.w : a.w+n]
	a.inflight = true
	a.mon.mu.Unlock()

	err := a.receive(src, dst)

	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	a.inflight = false
	if a.released {
		a.freeRegion()
		return ErrReleased
	}
	if err != nil {
		return err
	}
	a.w += n
	a.accepted(n)
	return nil
}

// Available returns the number of unread bytes.
func (a *Naive) Available() int {
	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	return a.w - a.r
}

// Read copies out unread bytes and moves the remainder to the front.
func (a *Naive) Read(p []byte) int {
	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	n := copy(p, a.region[a.r:a.w])
	if n == 0 {
		return 0
	}
	a.r += n
	a.shiftFront()
	a.shrink()
	a.cfg.metrics.read(a.kind, n)
	a.mon.broadcast()
	return n
}

// Peek returns the next unread byte.
func (a *Naive) Peek() (byte, bool) {
	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	if a.r == a.w {
		return 0, false
	}
	return a.region[a.r], true
}

// Release returns the region to the allocator once no receive is using it.
func (a *Naive) Release() {
	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	if a.released {
		return
	}
	a.released = true
	a.r, a.w = 0, 0
	if !a.inflight {
		a.freeRegion()
	}
	a.mon.broadcast()
}

// grow replaces the region with one of at least need bytes, doubling when
// the allocator allows. Caller holds mon.mu and no receive is in flight.
func (a *Naive) grow(need int) bool {
	size := max(need, 2*len(a.region))
	buf, ok := a.cfg.alloc.Alloc(size)
	if !ok && size > need {
		buf, ok = a.cfg.alloc.Alloc(need)
	}
	if !ok {
		return false
	}
	a.w = copy(buf, a.region[a.r:a.w])
	a.r = 0
	a.freeRegion()
	a.region = buf
	return true
}

// shiftFront moves unread bytes to the start of the region. The region
// must stay put while a receive is in flight.
func (a *Naive) shiftFront() {
	if a.inflight || a.r == 0 {
		return
	}
	a.w = copy(a.region, a.region[a.r:a.w])
	a.r = 0
}

// shrink gives back spare capacity above shrinkThreshold.
func (a *Naive) shrink() {
	if a.inflight || a.r != 0 || len(a.region)-a.w <= shrinkThreshold {
		return
	}
	if a.w == 0 {
		a.freeRegion()
		return
	}
	buf, ok := a.cfg.alloc.Alloc(a.w)
	if !ok {
		return
	}
	copy(buf, a.region[:a.w])
	a.cfg.alloc.Free(a.region)
	a.region = buf
}

func (a *Naive) freeRegion() {
	if a.region != nil {
		a.cfg.alloc.Free(a.region)
		a.region = nil
	}
}

var _ api.BufferAdapter = (*Naive)(nil)
