// File: server/sink.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"net"
	"sync"
	"time"

	"github.com/momentics/wsproxy/api"
	"github.com/momentics/wsproxy/pool"
	"github.com/momentics/wsproxy/protocol"
)

// headerScratch recycles frame header buffers.
var headerScratch = pool.NewSyncPool(func() *[]byte {
	b := make([]byte, 0, protocol.MaxFrameHeaderLen)
	return &b
}).WithReset(func(b *[]byte) { *b = (*b)[:0] })

// wsSink writes unmasked server frames to one connection. Writes from the
// read loop (pong, close) and from the consumer are serialized.
type wsSink struct {
	mu      sync.Mutex
	conn    net.Conn
	timeout time.Duration
	closed  bool
	metrics *Metrics
}

func newSink(conn net.Conn, timeout time.Duration, m *Metrics) *wsSink {
	return &wsSink{conn: conn, timeout: timeout, metrics: m}
}

// SendFrame sends p as one binary frame.
func (s *wsSink) SendFrame(p []byte) error {
	return s.write(protocol.OpcodeBinary, p)
}

func (s *wsSink) write(opcode byte, p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return api.ErrNotConnected
	}
	return s.writeLocked(opcode, p)
}

func (s *wsSink) writeLocked(opcode byte, p []byte) error {
	hp := headerScratch.Get()
	defer headerScratch.Put(hp)
	*hp = protocol.AppendFrameHeader(*hp, true, opcode, len(p))

	if s.timeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
			return err
		}
	}
	bufs := net.Buffers{*hp, p}
	_, err := bufs.WriteTo(s.conn)
	return err
}

// closeWith sends a close frame once and shuts the connection.
func (s *wsSink) closeWith(code uint16, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.writeLocked(protocol.OpcodeClose, protocol.ClosePayload(code, reason))
	s.metrics.closeSent(code)
	return s.conn.Close()
}

// Close performs a normal closure; Conn.Stop reaches it through io.Closer.
func (s *wsSink) Close() error {
	return s.closeWith(protocol.CloseNormalClosure, "")
}

// shutdown closes the connection without a close frame.
func (s *wsSink) shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

var _ api.FrameSink = (*wsSink)(nil)
