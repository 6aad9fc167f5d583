// File: server/readloop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"bufio"
	"errors"
	"io"
	"runtime"

	"go.uber.org/zap"

	"github.com/momentics/wsproxy/adapter"
	"github.com/momentics/wsproxy/api"
	"github.com/momentics/wsproxy/internal/session"
	"github.com/momentics/wsproxy/protocol"
)

// readLoop is the adapter's producer. It returns the close code to send
// to the peer, or 0 when the connection is already unusable.
func (s *Server) readLoop(link *session.Session[handle], r *bufio.Reader, sink *wsSink, log *zap.Logger) (uint16, string) {
	var ctrl [protocol.MaxControlPayloadLen]byte
	fragmented := false // a data message is open awaiting continuations
	for {
		hdr, err := protocol.ReadFrameHeader(r)
		if err != nil {
			if errors.Is(err, protocol.ErrProtocol) {
				log.Debug("protocol error", zap.Error(err))
				return protocol.CloseProtocolError, "protocol error"
			}
			if !errors.Is(err, io.EOF) {
				log.Debug("read failed", zap.Error(err))
			}
			return 0, ""
		}
		if !hdr.Masked {
			return protocol.CloseProtocolError, "unmasked client frame"
		}

		if protocol.IsControl(hdr.Opcode) {
			payload := ctrl[:hdr.Length]
			if _, err := io.ReadFull(r, payload); err != nil {
				return 0, ""
			}
			protocol.Unmask(payload, hdr.MaskKey, 0)

			switch hdr.Opcode {
			case protocol.OpcodePing:
				if err := sink.write(protocol.OpcodePong, payload); err != nil {
					return 0, ""
				}
			case protocol.OpcodePong:
			case protocol.OpcodeClose:
				code, _, err := protocol.ParseClosePayload(payload)
				if err != nil {
					return protocol.CloseProtocolError, "invalid close frame"
				}
				if code == protocol.CloseNoStatusRcvd {
					code = protocol.CloseNormalClosure
				}
				return code, ""
			default:
				return protocol.CloseProtocolError, "unknown opcode"
			}
			continue
		}

		switch hdr.Opcode {
		case protocol.OpcodeContinuation:
			if !fragmented {
				return protocol.CloseProtocolError, "continuation without message"
			}
		case protocol.OpcodeText, protocol.OpcodeBinary:
			if fragmented {
				return protocol.CloseProtocolError, "message inside fragmented message"
			}
		default:
			return protocol.CloseProtocolError, "unknown opcode"
		}
		fragmented = !hdr.Fin
		if hdr.Length > s.maxFramePayload {
			log.Info("frame above payload limit", zap.Int64("len", hdr.Length), zap.Int64("limit", s.maxFramePayload))
			return protocol.CloseMessageTooBig, "frame too large"
		}
		if code, reason, ok := s.deliver(link, r, hdr, log); !ok {
			return code, reason
		}
	}
}

// deliver hands one data frame to the adapter, if it is still owned by
// anyone. The strong reference taken here ends with the call.
func (s *Server) deliver(link *session.Session[handle], r io.Reader, hdr protocol.FrameHeader, log *zap.Logger) (uint16, string, bool) {
	h := link.Value()
	if h == nil {
		return protocol.CloseGoingAway, "consumer gone", false
	}
	src := &frameSource{r: r, hdr: hdr}
	err := h.adapter.Ingest(src)
	runtime.KeepAlive(h)
	switch {
	case err == nil:
		return 0, "", true
	case errors.Is(err, api.ErrTransportReceiveFailed):
		log.Debug("payload read failed", zap.Error(err))
		return 0, "", false
	case errors.Is(err, adapter.ErrReleased):
		return protocol.CloseGoingAway, "consumer gone", false
	case errors.Is(err, api.ErrFrameTooLarge),
		errors.Is(err, api.ErrNoSpace),
		errors.Is(err, api.ErrAllocationFailure):
		log.Warn("frame rejected", zap.Int64("len", hdr.Length), zap.Error(err))
		return protocol.ClosePolicyViolation, "buffer full", false
	default:
		log.Error("ingest failed", zap.Error(err))
		return protocol.CloseInternalServerErr, "internal error", false
	}
}
