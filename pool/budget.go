// File: pool/budget.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Hard memory budget: the total backing capacity handed out and not yet
// freed never exceeds the limit. Models the fixed heap of a small device,
// where malloc returns NULL instead of growing.

package pool

import "sync/atomic"

// Budget wraps an Allocator with a byte limit shared by all its users.
type Budget struct {
	next  Allocator
	limit int64
	inUse atomic.Int64
}

// NewBudget limits next to limit outstanding bytes. A nil next uses Heap.
func NewBudget(next Allocator, limit int) *Budget {
	if next == nil {
		next = Heap{}
	}
	return &Budget{next: next, limit: int64(limit)}
}

// Alloc fails without side effects when the region would push the
// outstanding bytes over the limit. The charge is the capacity of the
// returned region, which may exceed n when next rounds up.
func (b *Budget) Alloc(n int) ([]byte, bool) {
	if n < 0 || !b.reserve(int64(n)) {
		return nil, false
	}
	buf, ok := b.next.Alloc(n)
	if !ok {
		b.inUse.Add(-int64(n))
		return nil, false
	}
	if extra := int64(cap(buf) - n); extra > 0 && !b.reserve(extra) {
		b.inUse.Add(-int64(n))
		b.next.Free(buf)
		return nil, false
	}
	return buf, true
}

func (b *Budget) reserve(n int64) bool {
	for {
		cur := b.inUse.Load()
		if cur+n > b.limit {
			return false
		}
		if b.inUse.CompareAndSwap(cur, cur+n) {
			return true
		}
	}
}

// Free releases cap(buf) bytes back to the budget. buf must keep the
// capacity it was allocated with.
func (b *Budget) Free(buf []byte) {
	if buf == nil {
		return
	}
	b.inUse.Add(-int64(cap(buf)))
	b.next.Free(buf)
}

// InUse returns the outstanding byte count.
func (b *Budget) InUse() int { return int(b.inUse.Load()) }

// Limit returns the configured limit.
func (b *Budget) Limit() int { return int(b.limit) }

var _ Allocator = (*Budget)(nil)
