// File: adapter/sink.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package adapter

import (
	"sync"

	"github.com/momentics/wsproxy/api"
)

// sinkSlot holds the outbound handle under its own lock so that sending is
// never held up by inbound buffering.
type sinkSlot struct {
	mu   sync.Mutex
	sink api.FrameSink
}

// SetSink attaches s, or detaches when s is nil, and returns the previous sink.
func (s *sinkSlot) SetSink(sink api.FrameSink) api.FrameSink {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.sink
	s.sink = sink
	return prev
}

// Send forwards p to the attached sink. It returns len(p) when the sink
// accepted the bytes and 0 when detached or the send failed.
func (s *sinkSlot) Send(p []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink == nil {
		return 0
	}
	if err := s.sink.SendFrame(p); err != nil {
		return 0
	}
	return len(p)
}

// Connected reports whether a sink is attached.
func (s *sinkSlot) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink != nil
}
