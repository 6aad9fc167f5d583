// File: api/adapter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Contracts between the WebSocket transport edge and the buffer adapters
// that expose inbound frames as a byte stream.

package api

// FrameSource is one inbound frame announced by the transport.
// The payload has not been read yet: the adapter chooses where it lands.
type FrameSource interface {
	// Len returns the announced payload length in bytes.
	Len() int

	// ReceiveInto transfers the payload into dst, which is exactly Len() bytes.
	// On error dst contents are undefined and nothing is committed.
	ReceiveInto(dst []byte) error

	// Discard consumes and drops the payload.
	Discard() error
}

// FrameSink pushes outbound bytes to the connected peer.
type FrameSink interface {
	// SendFrame queues p to the peer as a single binary frame.
	SendFrame(p []byte) error
}

// BufferAdapter converts inbound frames into a consumable byte stream.
//
// Exactly one producer calls Ingest; exactly one consumer calls Available,
// Read and Peek. Sink operations may be called from either side and never
// contend with inbound buffering.
type BufferAdapter interface {
	// Ingest stores one frame. It is the only operation that may wait, and
	// only for space, bounded by the adapter's wait timeout. A failed Ingest
	// never makes any byte of the frame visible to the consumer.
	Ingest(src FrameSource) error

	// Available returns the number of unread bytes.
	Available() int

	// Read copies up to len(p) unread bytes into p and returns the count.
	Read(p []byte) int

	// Peek returns the next unread byte without consuming it.
	Peek() (byte, bool)

	// SetSink attaches s (nil detaches) and returns the previous sink.
	SetSink(s FrameSink) FrameSink

	// Send forwards p to the attached sink; returns len(p) on success, 0 otherwise.
	Send(p []byte) int

	// Connected reports whether a sink is attached.
	Connected() bool
}
