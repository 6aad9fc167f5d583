// File: server/source.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"
	"io"

	"github.com/momentics/wsproxy/protocol"
)

var errPayloadConsumed = errors.New("frame payload already consumed")

// frameSource exposes one data frame's payload, still on the wire, to an
// adapter. The adapter reads it exactly once, into its own storage or
// into nowhere.
type frameSource struct {
	r        io.Reader
	hdr      protocol.FrameHeader
	consumed bool
}

func (f *frameSource) Len() int { return int(f.hdr.Length) }

func (f *frameSource) ReceiveInto(dst []byte) error {
	if f.consumed {
		return errPayloadConsumed
	}
	f.consumed = true
	if _, err := io.ReadFull(f.r, dst); err != nil {
		return err
	}
	if f.hdr.Masked {
		protocol.Unmask(dst, f.hdr.MaskKey, 0)
	}
	return nil
}

func (f *frameSource) Discard() error {
	if f.consumed {
		return errPayloadConsumed
	}
	f.consumed = true
	_, err := io.CopyN(io.Discard, f.r, f.hdr.Length)
	return err
}
