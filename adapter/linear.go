// File: adapter/linear.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed linear region shared by Static and Shifting.

package adapter

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/momentics/wsproxy/api"
)

type linear struct {
	base

	buf      []byte // fixed region of capacity bytes
	r, w     int    // unread bytes are buf[r:w]
	inflight bool   // buf[w:w+n] is being received
	compact  bool   // shift unread bytes to the front when the tail is short
	released bool
}

func (l *linear) initRegion(kind Kind, opts []Option) error {
	l.init(kind, opts)
	buf, err := allocRegion(&l.cfg)
	if err != nil {
		return err
	}
	l.buf = buf
	return nil
}

// allocRegion obtains the fixed region of a bounded strategy.
func allocRegion(cfg *config) ([]byte, error) {
	if cfg.capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", api.ErrInvalidArgument, cfg.capacity)
	}
	buf, ok := cfg.alloc.Alloc(cfg.capacity)
	if !ok {
		return nil, fmt.Errorf("%w: region of %d bytes", api.ErrAllocationFailure, cfg.capacity)
	}
	return buf, nil
}

// fits reports whether n bytes can be placed, resetting a drained region
// first. Caller holds mon.mu and no receive is in flight.
func (l *linear) fits(n int) bool {
	if l.r == l.w {
		l.r, l.w = 0, 0
	}
	size := len(l.buf)
	if tailSpace(size, l.w) >= n {
		return true
	}
	return l.compact && linearFree(size, l.r, l.w) >= n
}

// shift moves the unread bytes to the front of the region.
func (l *linear) shift() {
	moved := copy(l.buf, l.buf[l.r:l.w])
	l.log.Debug("compacted", zap.Int("moved", moved), zap.Int("offset", l.r))
	l.r, l.w = 0, moved
	l.cfg.metrics.compacted(l.kind)
}

// Ingest waits until the frame fits, then receives it at the write cursor.
func (l *linear) Ingest(src api.FrameSource) error {
	n := src.Len()
	if n > l.cfg.capacity {
		return l.tooLarge(src, l.cfg.capacity)
	}

	l.ingestMu.Lock()
	defer l.ingestMu.Unlock()

	l.mon.mu.Lock()
	if l.released {
		l.mon.mu.Unlock()
		return ErrReleased
	}
	if n == 0 {
		l.mon.mu.Unlock()
		return l.receiveEmpty(src)
	}

	start := l.cfg.clock.Now()
	ok := l.mon.waitFor(l.cfg.timeout, 0, func() bool { return l.released || l.fits(n) })
	l.cfg.metrics.waited(l.kind, l.cfg.clock.Since(start))
	if l.released {
		l.mon.mu.Unlock()
		return ErrReleased
	}
	if !ok {
		l.mon.mu.Unlock()
		return l.noSpace(src, false)
	}
	if tailSpace(len(l.buf), l.w) < n {
		l.shift()
	}
	dst := l.buf[l.w : l.w+n]
	l.inflight = true
	l.mon.mu.Unlock()

	err := l.receive(src, dst)

	l.mon.mu.Lock()
	defer l.mon.mu.Unlock()
	l.inflight = false
	if l.released {
		l.freeRegion()
		return ErrReleased
	}
	if err != nil {
		l.resetIfDrained()
		return err
	}
	l.w += n
	l.accepted(n)
	return nil
}

// Available returns the number of unread bytes.
func (l *linear) Available() int {
	l.mon.mu.Lock()
	defer l.mon.mu.Unlock()
	return l.w - l.r
}

// Read copies out unread bytes and wakes a waiting producer.
func (l *linear) Read(p []byte) int {
	l.mon.mu.Lock()
	defer l.mon.mu.Unlock()
	n := copy(p, l.buf[l.r:l.w])
	if n == 0 {
		return 0
	}
	l.r += n
	l.resetIfDrained()
	l.cfg.metrics.read(l.kind, n)
	l.mon.broadcast()
	return n
}

// Peek returns the next unread byte.
func (l *linear) Peek() (byte, bool) {
	l.mon.mu.Lock()
	defer l.mon.mu.Unlock()
	if l.r == l.w {
		return 0, false
	}
	return l.buf[l.r], true
}

// Release returns the region to the allocator. A receive in flight keeps
// the region until it completes.
func (l *linear) Release() {
	l.mon.mu.Lock()
	defer l.mon.mu.Unlock()
	if l.released {
		return
	}
	l.released = true
	l.r, l.w = 0, 0
	if !l.inflight {
		l.freeRegion()
	}
	l.mon.broadcast()
}

func (l *linear) freeRegion() {
	if l.buf != nil {
		l.cfg.alloc.Free(l.buf)
		l.buf = nil
	}
}

// cursors returns r and w for tests and debug output.
func (l *linear) cursors() (r, w int) {
	l.mon.mu.Lock()
	defer l.mon.mu.Unlock()
	return l.r, l.w
}

// resetIfDrained restores maximal contiguous free space once empty.
func (l *linear) resetIfDrained() {
	if l.r == l.w && !l.inflight {
		l.r, l.w = 0, 0
	}
}
