// File: fake/sink.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"bytes"
	"fmt"
	"sync"
)

// Sink is a fake api.FrameSink recording every frame it accepts.
type Sink struct {
	mu         sync.Mutex
	frames     [][]byte
	sendError  error
	closeError error
	closed     bool
}

// NewSink creates an empty recording sink.
func NewSink() *Sink {
	return &Sink{frames: make([][]byte, 0)}
}

// SendFrame implements api.FrameSink.SendFrame.
func (s *Sink) SendFrame(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	if s.sendError != nil {
		return s.sendError
	}
	frame := make([]byte, len(p))
	copy(frame, p)
	s.frames = append(s.frames, frame)
	return nil
}

// Close marks the sink closed; later sends fail.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeError != nil {
		return s.closeError
	}
	s.closed = true
	return nil
}

// SetSendError configures the sink to fail SendFrame with err.
func (s *Sink) SetSendError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendError = err
}

// SetCloseError configures the sink to fail Close with err.
func (s *Sink) SetCloseError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeError = err
}

// Frames returns copies of all accepted frames.
func (s *Sink) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.frames))
	copy(out, s.frames)
	return out
}

// Bytes returns all accepted frames concatenated.
func (s *Sink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Join(s.frames, nil)
}

// Closed reports whether Close succeeded.
func (s *Sink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ErrSinkClosed is returned by SendFrame after Close.
var ErrSinkClosed = fmt.Errorf("fake: sink is closed")
