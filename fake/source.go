// File: fake/source.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"fmt"
	"sync"
)

// Source is a fake api.FrameSource delivering one fixed payload.
type Source struct {
	mu        sync.Mutex
	data      []byte
	recvError error
	hold      chan struct{}
	entered   chan struct{}
	received  bool
	discarded bool
}

// NewSource creates a source for a copy of data.
func NewSource(data []byte) *Source {
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	return &Source{data: dataCopy}
}

// NewFailingSource announces n bytes and fails ReceiveInto with err.
func NewFailingSource(n int, err error) *Source {
	s := NewSource(make([]byte, n))
	s.recvError = err
	return s
}

// Len implements api.FrameSource.Len.
func (s *Source) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// ReceiveInto implements api.FrameSource.ReceiveInto.
func (s *Source) ReceiveInto(dst []byte) error {
	s.mu.Lock()
	hold, entered := s.hold, s.entered
	s.entered = nil
	s.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if hold != nil {
		<-hold
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.received || s.discarded {
		return ErrConsumed
	}
	if len(dst) != len(s.data) {
		return fmt.Errorf("fake: destination of %d bytes for %d byte frame", len(dst), len(s.data))
	}
	if s.recvError != nil {
		return s.recvError
	}
	copy(dst, s.data)
	s.received = true
	return nil
}

// Discard implements api.FrameSource.Discard.
func (s *Source) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.received || s.discarded {
		return ErrConsumed
	}
	s.discarded = true
	return nil
}

// Hold makes the next ReceiveInto block until release is called. The
// returned entered channel is closed once ReceiveInto has started.
func (s *Source) Hold() (entered <-chan struct{}, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hold = make(chan struct{})
	s.entered = make(chan struct{})
	var once sync.Once
	hold := s.hold
	return s.entered, func() { once.Do(func() { close(hold) }) }
}

// Received reports whether the payload was copied out.
func (s *Source) Received() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

// Discarded reports whether the payload was dropped.
func (s *Source) Discarded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discarded
}

// ErrConsumed is returned when a source is used twice.
var ErrConsumed = fmt.Errorf("fake: frame already consumed")
