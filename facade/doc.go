// File: facade/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package facade wires configuration, logging, metrics, the adapter factory
// and the WebSocket server into one runnable Bridge, and ships the built-in
// stream consumers.
package facade
