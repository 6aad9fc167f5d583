// File: adapter/dynamic.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package adapter

import (
	"github.com/eapache/queue"

	"github.com/momentics/wsproxy/api"
)

// Dynamic queues every frame in its own allocation.
//
// The sum of queued chunk sizes never exceeds the capacity. A chunk is
// freed only once all of its bytes were read, so partially consumed chunks
// still count against the limit. Small allocations avoid one large
// contiguous region at the cost of per-frame overhead and fragmentation.
type Dynamic struct {
	base

	chunks   *queue.Queue // []byte, arrival order
	queued   int          // total size of queued chunks
	offset   int          // consumed bytes of the front chunk
	released bool
}

// NewDynamic creates a chunk-list adapter bounded by the configured capacity.
func NewDynamic(opts ...Option) *Dynamic {
	a := &Dynamic{chunks: queue.New()}
	a.init(KindDynamic, opts)
	return a
}

// Ingest waits until the frame fits under the capacity and its chunk can
// be allocated, then receives the payload into the new chunk.
func (a *Dynamic) Ingest(src api.FrameSource) error {
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

	var chunk []byte
	sizeOK := false
	start := a.cfg.clock.Now()
	ok := a.mon.waitFor(a.cfg.timeout, a.cfg.allocRetry, func() bool {
		sizeOK = a.queued+n <= a.cfg.capacity
		if !sizeOK {
			return false
		}
		buf, ok := a.cfg.alloc.Alloc(n)
		if !ok {
			return false
		}
		chunk = buf
		return true
	})
	a.cfg.metrics.waited(a.kind, a.cfg.clock.Since(start))
	a.mon.mu.Unlock()
	if !ok {
		return a.noSpace(src, sizeOK)
	}

	// The chunk is private until queued, so no lock is needed to fill it.
	if err := a.receive(src, chunk); err != nil {
		a.cfg.alloc.Free(chunk)
		return err
	}

	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	if a.released {
		a.cfg.alloc.Free(chunk)
		return ErrReleased
	}
	a.chunks.Add(chunk)
	a.queued += n
	a.accepted(n)
	return nil
}

// Available returns the number of unread bytes across all chunks.
func (a *Dynamic) Available() int {
	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	return a.queued - a.offset
}

// Read drains chunks front to back, freeing each one once fully consumed.
func (a *Dynamic) Read(p []byte) int {
	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()

	total := 0
	freed := false
	for len(p) > 0 && a.chunks.Length() > 0 {
		front := a.chunks.Peek().([]byte)
		n := copy(p, front[a.offset:])
		a.offset += n
		total += n
		p = p[n:]
		if a.offset == len(front) {
			a.chunks.Remove()
			a.queued -= len(front)
			a.offset = 0
			a.cfg.alloc.Free(front)
			freed = true
		}
	}
	if freed {
		a.mon.broadcast()
	}
	if total > 0 {
		a.cfg.metrics.read(a.kind, total)
	}
	return total
}

// Peek returns the next unread byte of the front chunk.
func (a *Dynamic) Peek() (byte, bool) {
	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	if a.chunks.Length() == 0 {
		return 0, false
	}
	return a.chunks.Peek().([]byte)[a.offset], true
}

// Chunks returns the number of queued chunks.
func (a *Dynamic) Chunks() int {
	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	return a.chunks.Length()
}

// Release frees every queued chunk.
func (a *Dynamic) Release() {
	a.mon.mu.Lock()
	defer a.mon.mu.Unlock()
	for a.chunks.Length() > 0 {
		a.cfg.alloc.Free(a.chunks.Remove().([]byte))
	}
	a.queued, a.offset, a.released = 0, 0, true
	a.mon.broadcast()
}

var _ api.BufferAdapter = (*Dynamic)(nil)
