// File: server/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"io"
	"time"

	"github.com/momentics/wsproxy/api"
)

// handle is the shared owner of one connection's adapter. Every Conn copy
// points at it; the transport side only links to it weakly.
type handle struct {
	adapter api.BufferAdapter
	id      string
	remote  string
	created time.Time
}

// Conn is a byte-stream view of one accepted connection. The zero Conn is
// the "nobody waiting" value returned by Accept.
type Conn struct {
	h *handle
}

// Valid reports whether the Conn still has something to offer: buffered
// bytes or a live peer.
func (c Conn) Valid() bool {
	return c.h != nil && (c.h.adapter.Available() > 0 || c.h.adapter.Connected())
}

// ID returns the connection identifier, empty for the zero Conn.
func (c Conn) ID() string {
	if c.h == nil {
		return ""
	}
	return c.h.id
}

// RemoteAddr returns the peer address, empty for the zero Conn.
func (c Conn) RemoteAddr() string {
	if c.h == nil {
		return ""
	}
	return c.h.remote
}

// Write sends p to the peer as one binary frame.
func (c Conn) Write(p []byte) (int, error) {
	if c.h == nil {
		return 0, api.ErrNotConnected
	}
	if len(p) == 0 {
		return 0, nil
	}
	if n := c.h.adapter.Send(p); n > 0 {
		return n, nil
	}
	return 0, api.ErrNotConnected
}

// WriteByte sends a single byte.
func (c Conn) WriteByte(b byte) error {
	_, err := c.Write([]byte{b})
	return err
}

// Read copies buffered bytes into p without blocking. It returns
// ErrWouldBlock when nothing is buffered but the peer is connected, and
// io.EOF once the peer is gone and everything was drained.
func (c Conn) Read(p []byte) (int, error) {
	if c.h == nil {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	if n := c.h.adapter.Read(p); n > 0 {
		return n, nil
	}
	if c.h.adapter.Connected() {
		return 0, api.ErrWouldBlock
	}
	// The peer may have delivered a last frame before detaching.
	if n := c.h.adapter.Read(p); n > 0 {
		return n, nil
	}
	return 0, io.EOF
}

// ReadByte reads one byte with the same rules as Read.
func (c Conn) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := c.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// Available returns the number of buffered bytes.
func (c Conn) Available() int {
	if c.h == nil {
		return 0
	}
	return c.h.adapter.Available()
}

// Peek returns the next buffered byte without consuming it.
func (c Conn) Peek() (byte, bool) {
	if c.h == nil {
		return 0, false
	}
	return c.h.adapter.Peek()
}

// Connected reports whether the peer can still be written to.
func (c Conn) Connected() bool {
	return c.h != nil && c.h.adapter.Connected()
}

// Stop detaches the peer and closes it. Buffered bytes stay readable.
func (c Conn) Stop() {
	if c.h == nil {
		return
	}
	if closer, ok := c.h.adapter.SetSink(nil).(io.Closer); ok {
		_ = closer.Close()
	}
}
