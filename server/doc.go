// Package server
// Author: momentics <momentics@gmail.com>
//
// WebSocket endpoint feeding buffer adapters.
//
// Each upgraded connection gets its own adapter from an adapter.Factory.
// The connection's read loop is the adapter's only producer: it decodes
// frame headers and lets the adapter receive payloads straight into its
// storage. The consumer claims connections from the accept queue as Conn
// values and drains them without blocking.
//
// Conn values own the adapter. The read loop keeps only a weak link, so
// once the consumer drops every Conn the adapter storage is released and
// the peer is told the endpoint is going away.
package server
