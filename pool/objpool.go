// File: pool/objpool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"sync"
	"sync/atomic"
)

// ObjectPool is a generic object pool.
type ObjectPool[T any] interface {
	Get() T
	Put(T)
}

// SyncPool is a typed sync.Pool that counts how often it had to create a
// fresh object. An optional reset hook runs on every Put.
type SyncPool[T any] struct {
	pool  sync.Pool
	reset func(T)

	gets    atomic.Int64
	created atomic.Int64
}

// NewSyncPool creates a pool filled on demand by creator.
func NewSyncPool[T any](creator func() T) *SyncPool[T] {
	sp := &SyncPool[T]{}
	sp.pool.New = func() any {
		sp.created.Add(1)
		return creator()
	}
	return sp
}

// WithReset installs fn to clear objects handed back with Put.
func (sp *SyncPool[T]) WithReset(fn func(T)) *SyncPool[T] {
	sp.reset = fn
	return sp
}

func (sp *SyncPool[T]) Get() T {
	sp.gets.Add(1)
	return sp.pool.Get().(T)
}

func (sp *SyncPool[T]) Put(obj T) {
	if sp.reset != nil {
		sp.reset(obj)
	}
	sp.pool.Put(obj)
}

// Stats returns the number of Gets and how many of them created an object.
func (sp *SyncPool[T]) Stats() (gets, created int64) {
	return sp.gets.Load(), sp.created.Load()
}

var _ ObjectPool[int] = (*SyncPool[int])(nil)
