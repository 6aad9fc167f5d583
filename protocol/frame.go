// File: protocol/frame.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Frame header encoding/decoding and masking. Headers are decoded without
// touching the payload so the reader decides where the payload lands.

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrProtocol reports a frame that violates RFC 6455.
var ErrProtocol = errors.New("websocket protocol violation")

// FrameHeader is a decoded WebSocket frame header.
type FrameHeader struct {
	Fin     bool
	Opcode  byte
	Masked  bool
	Length  int64
	MaskKey [4]byte
}

// ReadFrameHeader reads one frame header from r. Reserved bits, fragmented
// or oversized control frames and lengths with the top bit set are
// rejected with ErrProtocol.
func ReadFrameHeader(r io.Reader) (FrameHeader, error) {
	var h FrameHeader
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:2]); err != nil {
		return h, err
	}
	if buf[0]&RsvBits != 0 {
		return h, fmt.Errorf("%w: reserved bits set", ErrProtocol)
	}
	h.Fin = buf[0]&FinBit != 0
	h.Opcode = buf[0] & 0x0F
	h.Masked = buf[1]&MaskBit != 0
	h.Length = int64(buf[1] & 0x7F)

	switch h.Length {
	case 126:
		if _, err := io.ReadFull(r, buf[:2]); err != nil {
			return h, err
		}
		h.Length = int64(binary.BigEndian.Uint16(buf[:2]))
	case 127:
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return h, err
		}
		n := binary.BigEndian.Uint64(buf[:8])
		if n>>63 != 0 {
			return h, fmt.Errorf("%w: payload length overflow", ErrProtocol)
		}
		h.Length = int64(n)
	}

	if IsControl(h.Opcode) {
		if !h.Fin {
			return h, fmt.Errorf("%w: fragmented control frame", ErrProtocol)
		}
		if h.Length > MaxControlPayloadLen {
			return h, fmt.Errorf("%w: control frame of %d bytes", ErrProtocol, h.Length)
		}
	}

	if h.Masked {
		if _, err := io.ReadFull(r, h.MaskKey[:]); err != nil {
			return h, err
		}
	}
	return h, nil
}

// AppendFrameHeader appends an unmasked server frame header to dst.
func AppendFrameHeader(dst []byte, fin bool, opcode byte, length int) []byte {
	b0 := opcode & 0x0F
	if fin {
		b0 |= FinBit
	}
	switch {
	case length <= 125:
		return append(dst, b0, byte(length))
	case length <= 0xFFFF:
		dst = append(dst, b0, 126)
		return binary.BigEndian.AppendUint16(dst, uint16(length))
	default:
		dst = append(dst, b0, 127)
		return binary.BigEndian.AppendUint64(dst, uint64(length))
	}
}

// AppendFrame appends a complete unmasked frame carrying payload.
func AppendFrame(dst []byte, opcode byte, payload []byte) []byte {
	dst = AppendFrameHeader(dst, true, opcode, len(payload))
	return append(dst, payload...)
}

// Unmask XORs p with key, starting at payload offset pos, and returns the
// offset following p. Masking a payload in pieces gives the same result as
// masking it whole.
func Unmask(p []byte, key [4]byte, pos int) int {
	for i := range p {
		p[i] ^= key[(pos+i)&3]
	}
	return pos + len(p)
}
