// File: protocol/upgrader.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Upgrade validates an HTTP request for a WebSocket upgrade, negotiates a
// subprotocol, computes the Sec-WebSocket-Accept key per RFC6455 and
// returns the response headers that complete the handshake.

package protocol

import (
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxHandshakeHeadersSize defines the maximum combined length of handshake headers.
const MaxHandshakeHeadersSize = 8192

const acceptGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// ErrBadHandshake reports a request that cannot be upgraded.
var ErrBadHandshake = errors.New("bad websocket handshake")

// Upgrade checks r and returns the 101 response headers. When subprotocols
// is non-empty the first protocol offered by the client that appears in
// it is selected; a client offering none of them is still accepted
// without Sec-WebSocket-Protocol.
func Upgrade(r *http.Request, subprotocols []string) (http.Header, error) {
	if r.Method != http.MethodGet {
		return nil, fmt.Errorf("%w: method %s", ErrBadHandshake, r.Method)
	}

	total := 0
	for k, vs := range r.Header {
		total += len(k)
		for _, v := range vs {
			total += len(v)
		}
		if total > MaxHandshakeHeadersSize {
			return nil, fmt.Errorf("%w: headers too large", ErrBadHandshake)
		}
	}

	if !headerContainsToken(r.Header, "Connection", "Upgrade") ||
		!headerContainsToken(r.Header, "Upgrade", "websocket") {
		return nil, fmt.Errorf("%w: invalid upgrade headers", ErrBadHandshake)
	}

	key := r.Header.Get("Sec-WebSocket-Key")
	if key == "" {
		return nil, fmt.Errorf("%w: missing Sec-WebSocket-Key", ErrBadHandshake)
	}
	if v := r.Header.Get("Sec-WebSocket-Version"); v != "13" {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrBadHandshake, v)
	}

	resp := make(http.Header)
	resp.Set("Upgrade", "websocket")
	resp.Set("Connection", "Upgrade")
	resp.Set("Sec-WebSocket-Accept", AcceptKey(key))
	if proto := selectSubprotocol(r.Header, subprotocols); proto != "" {
		resp.Set("Sec-WebSocket-Protocol", proto)
	}
	return resp, nil
}

// AcceptKey derives Sec-WebSocket-Accept from the client key.
func AcceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key + acceptGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// WriteHandshakeResponse writes the 101 status line and hdr to w.
func WriteHandshakeResponse(w io.Writer, hdr http.Header) error {
	if _, err := io.WriteString(w, "HTTP/1.1 101 Switching Protocols\r\n"); err != nil {
		return err
	}
	if err := hdr.Write(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

func selectSubprotocol(h http.Header, supported []string) string {
	if len(supported) == 0 {
		return ""
	}
	for _, v := range h.Values("Sec-WebSocket-Protocol") {
		for _, offered := range strings.Split(v, ",") {
			offered = strings.TrimSpace(offered)
			for _, s := range supported {
				if offered == s {
					return s
				}
			}
		}
	}
	return ""
}

// headerContainsToken checks if headerName contains the given token, case-insensitive.
func headerContainsToken(h http.Header, headerName, token string) bool {
	for _, v := range h.Values(headerName) {
		for _, p := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(p), token) {
				return true
			}
		}
	}
	return false
}
