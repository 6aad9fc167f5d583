// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and constants.

package api

// SessionStatus enumerates the state of a transport link.
type SessionStatus int32

const (
	SessionUnknown SessionStatus = iota
	SessionConnecting
	SessionActive
	SessionClosing
	SessionClosed
)

func (s SessionStatus) String() string {
	switch s {
	case SessionConnecting:
		return "connecting"
	case SessionActive:
		return "active"
	case SessionClosing:
		return "closing"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ServiceInfo exposes descriptive build- and runtime info for external tools.
type ServiceInfo struct {
	Name    string
	Version string
	Commit  string
}
