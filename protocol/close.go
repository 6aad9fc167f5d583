// File: protocol/close.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// ClosePayload builds a close frame body. The reason is truncated so that
// the body fits a control frame.
func ClosePayload(code uint16, reason string) []byte {
	if len(reason) > MaxControlPayloadLen-2 {
		reason = reason[:MaxControlPayloadLen-2]
		for !utf8.ValidString(reason) {
			reason = reason[:len(reason)-1]
		}
	}
	p := make([]byte, 2, 2+len(reason))
	binary.BigEndian.PutUint16(p, code)
	return append(p, reason...)
}

// ParseClosePayload decodes a close frame body. An empty body yields
// CloseNoStatusRcvd.
func ParseClosePayload(p []byte) (code uint16, reason string, err error) {
	switch {
	case len(p) == 0:
		return CloseNoStatusRcvd, "", nil
	case len(p) == 1:
		return 0, "", fmt.Errorf("%w: close payload of 1 byte", ErrProtocol)
	}
	code = binary.BigEndian.Uint16(p)
	if !validCloseCode(code) {
		return 0, "", fmt.Errorf("%w: close code %d", ErrProtocol, code)
	}
	if !utf8.Valid(p[2:]) {
		return 0, "", fmt.Errorf("%w: close reason is not UTF-8", ErrProtocol)
	}
	return code, string(p[2:]), nil
}

func validCloseCode(code uint16) bool {
	switch {
	case code >= 3000 && code <= 4999:
		return true
	case code < 1000 || code > 1011:
		return false
	}
	return code != 1004 && code != CloseNoStatusRcvd && code != CloseAbnormalClosure
}
