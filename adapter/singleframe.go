// File: adapter/singleframe.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package adapter

import (
	"github.com/momentics/wsproxy/api"
)

// SingleFrame buffers at most one frame.
//
// The next frame waits until the previous one was read completely. The
// region is sized to each frame, so memory use tracks the current frame
// rather than a configured worst case. Capacity, when positive, caps the
// frame size.
type SingleFrame struct {
	base

	buf      []byte // current frame; len(buf) is its size
	r        int
	loaded   bool
	inflight bool
	released bool
}

// NewSingleFrame creates a one-frame adapter. WithCapacity(0) lifts the
// frame size limit.
func NewSingleFrame(opts ...Option) *SingleFrame {
	a := &SingleFrame{}
	a.init(KindSingleFrame, opts)
	return a
}

// Ingest waits for the previous frame to be consumed, sizes the region to
// the new frame and receives into it.
func (a *SingleFrame) Ingest(src api.FrameSource) error {
	n := src.Len()
	if a.cfg.capacity > 0 && n > a.cfg.capacity {
		return a.tooLarge(src, a.cfg.capacity)
	}

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

	allocFailed := false
	start := a.cfg.clock.Now()
	ok := a.mon.waitFor(a.cfg.timeout, a.cfg.allocRetry, func() bool {
		if a.released {
			return true
		}
		if a.loaded {
			return false
		}
		if len(a.buf) != n {
			a.freeFrame()
			buf, ok := a.cfg.alloc.Alloc(n)
			if !ok {
				allocFailed = true
				return false
			}
			a.buf = buf
		}
		allocFailed = false
		return true
	})
	a.cfg.metrics.waited(a.kind, a.cfg.clock.Since(start))
	if a.released {
		a.mon.mu.Unlock()
		return ErrReleased
	}
	if !ok {
		a.mon.mu.Unlock()
		return a.noSpace(src, allocFailed)
	}
	dst := a.buf
	a.inflight = true
	a.mon.mu.Unlock()

	// Readers ignore buf until loaded is set.
	err := a.receive(src, dst)

	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	a.inflight = false
	if a.released {
		a.freeFrame()
		return ErrReleased
	}
	if err != nil {
		return err
	}
	a.r, a.loaded = 0, true
	a.accepted(n)
	return nil
}

// Available returns the unread bytes of the current frame.
func (a *SingleFrame) Available() int {
	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	if !a.loaded {
		return 0
	}
	return len(a.buf) - a.r
}

// Read copies out the current frame; finishing it admits the next one.
func (a *SingleFrame) Read(p []byte) int {
	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	if !a.loaded {
		return 0
	}
	n := copy(p, a.buf[a.r:])
	a.r += n
	if a.r == len(a.buf) {
		a.loaded = false
		a.r = 0
		a.mon.broadcast()
	}
	if n > 0 {
		a.cfg.metrics.read(a.kind, n)
	}
	return n
}

// Peek returns the next unread byte of the current frame.
func (a *SingleFrame) Peek() (byte, bool) {
	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	if !a.loaded {
		return 0, false
	}
	return a.buf[a.r], true
}

// Release returns the frame region to the allocator once no receive is
// using it.
func (a *SingleFrame) Release() {
	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	if a.released {
		return
	}
	a.released = true
	a.r, a.loaded = 0, false
	if !a.inflight {
		a.freeFrame()
	}
	a.mon.broadcast()
}

func (a *SingleFrame) freeFrame() {
	if a.buf != nil {
		a.cfg.alloc.Free(a.buf)
		a.buf = nil
	}
}

var _ api.BufferAdapter = (*SingleFrame)(nil)
