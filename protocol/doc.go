// Package protocol
// Author: momentics <momentics@gmail.com>
//
// RFC 6455 wire layer: frame header codec, masking, close payloads and the
// HTTP upgrade handshake. Payloads are never buffered here; callers read
// them straight into their own storage after ReadFrameHeader.
// Extensions and compression are not negotiated.
package protocol
