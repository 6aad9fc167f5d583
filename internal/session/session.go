// File: internal/session/session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-connection record with cancellation and a weak value reference.

package session

import (
	"io"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"github.com/momentics/wsproxy/api"
)

// Session is the transport's record of one connection.
type Session[T any] struct {
	id      string
	remote  string
	created time.Time
	ref     weak.Pointer[T]
	conn    io.Closer
	status  atomic.Int32

	done chan struct{}
	once sync.Once
}

func newSession[T any](id, remote string, v *T, conn io.Closer) *Session[T] {
	s := &Session[T]{
		id:      id,
		remote:  remote,
		created: time.Now(),
		ref:     weak.Make(v),
		conn:    conn,
		done:    make(chan struct{}),
	}
	s.status.Store(int32(api.SessionConnecting))
	return s
}

// ID returns the unique session identifier.
func (s *Session[T]) ID() string { return s.id }

// Remote returns the peer address.
func (s *Session[T]) Remote() string { return s.remote }

// Created returns the registration time.
func (s *Session[T]) Created() time.Time { return s.created }

// Value returns the referenced value, or nil once it was collected.
func (s *Session[T]) Value() *T { return s.ref.Value() }

// Status returns the lifecycle state.
func (s *Session[T]) Status() api.SessionStatus {
	return api.SessionStatus(s.status.Load())
}

// SetStatus records a lifecycle transition.
func (s *Session[T]) SetStatus(st api.SessionStatus) {
	s.status.Store(int32(st))
}

// Cancel signals session teardown; idempotent.
func (s *Session[T]) Cancel() {
	s.once.Do(func() {
		s.SetStatus(api.SessionClosing)
		close(s.done)
	})
}

// Done returns a channel closed upon cancellation.
func (s *Session[T]) Done() <-chan struct{} {
	return s.done
}

// Close cancels the session and closes its connection.
func (s *Session[T]) Close() error {
	s.Cancel()
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
