// File: adapter/circular.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package adapter

import (
	"go.uber.org/zap"

	"github.com/momentics/wsproxy/api"
)

// Circular treats its fixed region as a ring.
//
// A frame goes after the write cursor when it fits there; otherwise the
// writer wraps to the start of storage and the reader follows once it
// reaches the wrap boundary. Compaction runs only when neither span is
// large enough on its own. One byte of slack keeps the write cursor from
// reaching the read cursor while wrapped.
type Circular struct {
	base

	buf      []byte
	g        ring
	inflight bool
	released bool
}

// NewCircular allocates a ring of the configured capacity.
func NewCircular(opts ...Option) (*Circular, error) {
	a := &Circular{}
	a.init(KindCircular, opts)
	buf, err := allocRegion(&a.cfg)
	if err != nil {
		return nil, err
	}
	a.buf = buf
	a.g.size = len(buf)
	return a, nil
}

// Ingest waits until the ring can take the frame, places it and receives
// the payload in place.
func (a *Circular) Ingest(src api.FrameSource) error {
	n := src.Len()
	if n > a.cfg.capacity {
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

	start := a.cfg.clock.Now()
	ok := a.mon.waitFor(a.cfg.timeout, 0, func() bool { return a.released || a.g.free() >= n })
	a.cfg.metrics.waited(a.kind, a.cfg.clock.Since(start))
	if a.released {
		a.mon.mu.Unlock()
		return ErrReleased
	}
	if !ok {
		a.mon.mu.Unlock()
		return a.noSpace(src, false)
	}
	at := a.place(n)
	dst := a.buf[at : at+n]
	a.inflight = true
	a.mon.mu.Unlock()

	err := a.receive(src, dst)

	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	a.inflight = false
	if a.released {
		a.freeRing()
		return ErrReleased
	}
	if err != nil {
		a.resetIfDrained()
		return err
	}
	a.g.w += n
	a.accepted(n)
	return nil
}

// place chooses where n bytes go and moves the cursors so that the write
// cursor points at that offset. Caller holds mon.mu and has checked free().
func (a *Circular) place(n int) int {
	g := &a.g
	switch {
	case g.empty():
		g.r, g.w, g.wrap = 0, 0, 0
	case !g.wrapped() && g.tail() >= n:
	case !g.wrapped() && g.head() >= n:
		g.wrap, g.w = g.w, 0
	case g.wrapped() && g.middle() >= n:
	case g.wrapped():
		// Move [r, wrap) flush with the end so the space after wrap joins
		// the middle gap.
		shift := g.size - g.wrap
		copy(a.buf[g.r+shift:], a.buf[g.r:g.wrap])
		a.log.Debug("compacted wrapped tail", zap.Int("shift", shift), zap.Int("moved", g.wrap-g.r))
		g.r += shift
		g.wrap = g.size
		a.cfg.metrics.compacted(a.kind)
	default:
		moved := copy(a.buf, a.buf[g.r:g.w])
		a.log.Debug("compacted", zap.Int("moved", moved), zap.Int("offset", g.r))
		g.r, g.w = 0, moved
		a.cfg.metrics.compacted(a.kind)
	}
	return g.w
}

// Available returns the number of unread bytes in both spans.
func (a *Circular) Available() int {
	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	return a.g.used()
}

// Read consumes [r, wrap) first when wrapped, then [0, w).
func (a *Circular) Read(p []byte) int {
	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()

	total := 0
	if a.g.wrapped() {
		n := copy(p, a.buf[a.g.r:a.g.wrap])
		a.g.r += n
		total += n
		p = p[n:]
		if a.g.r == a.g.wrap {
			a.g.r, a.g.wrap = 0, 0
		}
	}
	if !a.g.wrapped() {
		n := copy(p, a.buf[a.g.r:a.g.w])
		a.g.r += n
		total += n
	}
	if total == 0 {
		return 0
	}
	a.resetIfDrained()
	a.cfg.metrics.read(a.kind, total)
	a.mon.broadcast()
	return total
}

// Peek returns the next unread byte.
func (a *Circular) Peek() (byte, bool) {
	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	if a.g.empty() {
		return 0, false
	}
	return a.buf[a.g.r], true
}

// Release returns the ring to the allocator, once any receive in flight
// has completed.
func (a *Circular) Release() {
	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	if a.released {
		return
	}
	a.released = true
	a.g = ring{}
	if !a.inflight {
		a.freeRing()
	}
	a.mon.broadcast()
}

func (a *Circular) freeRing() {
	if a.buf != nil {
		a.cfg.alloc.Free(a.buf)
		a.buf = nil
	}
}

// cursors returns a snapshot of the ring state.
func (a *Circular) cursors() ring {
	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	return a.g
}

func (a *Circular) resetIfDrained() {
	if a.g.empty() && !a.inflight {
		a.g.r, a.g.w, a.g.wrap = 0, 0, 0
	}
}

var _ api.BufferAdapter = (*Circular)(nil)
