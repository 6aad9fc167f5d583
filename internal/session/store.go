// File: internal/session/store.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Sharded, thread-safe session store for high concurrency.

package session

import (
	"hash/fnv"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Store holds sessions keyed by id.
type Store[T any] struct {
	shards []*shard[T]
	mask   uint32
	count  atomic.Int64
}

type shard[T any] struct {
	mu       sync.RWMutex
	sessions map[string]*Session[T]
}

// NewStore constructs a store with shardCount shards, rounded up to a
// power of two.
func NewStore[T any](shardCount int) *Store[T] {
	if shardCount <= 0 {
		shardCount = 16
	}
	n := nextPowerOfTwo(uint32(shardCount))
	shards := make([]*shard[T], n)
	for i := range shards {
		shards[i] = &shard[T]{sessions: make(map[string]*Session[T])}
	}
	return &Store[T]{shards: shards, mask: n - 1}
}

func (m *Store[T]) shard(id string) *shard[T] {
	return m.shards[fnv32(id)&m.mask]
}

// Create registers a new session holding a weak reference to v. conn,
// when not nil, is closed by Session.Close.
func (m *Store[T]) Create(remote string, v *T, conn io.Closer) *Session[T] {
	s := newSession(uuid.NewString(), remote, v, conn)
	sh := m.shard(s.id)
	sh.mu.Lock()
	sh.sessions[s.id] = s
	sh.mu.Unlock()
	m.count.Add(1)
	return s
}

// Get fetches a session if present.
func (m *Store[T]) Get(id string) (*Session[T], bool) {
	sh := m.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.sessions[id]
	return s, ok
}

// Delete cancels and removes the session.
func (m *Store[T]) Delete(id string) {
	sh := m.shard(id)
	sh.mu.Lock()
	s, ok := sh.sessions[id]
	if ok {
		delete(sh.sessions, id)
	}
	sh.mu.Unlock()
	if ok {
		s.Cancel()
		m.count.Add(-1)
	}
}

// Range calls fn for every session until fn returns false. fn runs
// without shard locks held.
func (m *Store[T]) Range(fn func(*Session[T]) bool) {
	for _, sh := range m.shards {
		sh.mu.RLock()
		batch := make([]*Session[T], 0, len(sh.sessions))
		for _, s := range sh.sessions {
			batch = append(batch, s)
		}
		sh.mu.RUnlock()
		for _, s := range batch {
			if !fn(s) {
				return
			}
		}
	}
}

// Len returns the number of registered sessions.
func (m *Store[T]) Len() int { return int(m.count.Load()) }

// fnv32 hashes a string to uint32.
func fnv32(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

// nextPowerOfTwo returns the next power-of-two >= v.
func nextPowerOfTwo(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
