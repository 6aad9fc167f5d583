// File: server/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/momentics/wsproxy/protocol"
)

// Option customizes server initialization.
type Option func(*Server)

// WithLogger sets the logger; the server logs under "server".
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithSubprotocols lists the subprotocols the server may select, in order
// of preference.
func WithSubprotocols(protos ...string) Option {
	return func(s *Server) {
		s.subprotocols = append([]string(nil), protos...)
	}
}

// WithMaxFramePayload closes connections sending larger data frames with 1009.
func WithMaxFramePayload(n int64) Option {
	return func(s *Server) {
		s.maxFramePayload = n
	}
}

// WithWriteTimeout bounds every frame write to the peer. Zero disables it.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.writeTimeout = d
	}
}

// WithUserTimeout sets TCP_USER_TIMEOUT on accepted sockets, bounding how
// long sent data may stay unacknowledged before the kernel drops the
// connection. Zero keeps the system default. Ignored off linux.
func WithUserTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.userTimeout = d
	}
}

// WithMaxPending rejects upgrades with 503 while n connections wait to be
// accepted. Zero means no limit.
func WithMaxPending(n int) Option {
	return func(s *Server) {
		s.maxPending = n
	}
}

// WithMetrics records connection activity into m.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithRegistry registers fresh server metrics with reg.
func WithRegistry(reg prometheus.Registerer) Option {
	return WithMetrics(NewMetrics(reg))
}

func (s *Server) applyDefaults() {
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.maxFramePayload <= 0 {
		s.maxFramePayload = protocol.MaxFramePayload
	}
	if s.writeTimeout < 0 {
		s.writeTimeout = 0
	}
	if s.userTimeout < 0 {
		s.userTimeout = 0
	}
}
