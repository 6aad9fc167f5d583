// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"
	"net"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/eapache/queue"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/momentics/wsproxy/adapter"
	"github.com/momentics/wsproxy/api"
	"github.com/momentics/wsproxy/internal/session"
	"github.com/momentics/wsproxy/protocol"
)

// Server upgrades HTTP requests to WebSocket connections, runs their read
// loops and queues them for the consumer.
type Server struct {
	factory adapter.Factory
	log     *zap.Logger
	metrics *Metrics

	subprotocols    []string
	maxFramePayload int64
	writeTimeout    time.Duration
	userTimeout     time.Duration
	maxPending      int

	links *session.Store[handle]
	loops sync.WaitGroup

	mu      sync.Mutex
	pending *queue.Queue // Conn
	closed  bool
}

// New builds a server creating one adapter per connection with factory.
func New(factory adapter.Factory, opts ...Option) *Server {
	s := &Server{
		factory: factory,
		links:   session.NewStore[handle](16),
		pending: queue.New(),
	}
	for _, o := range opts {
		o(s)
	}
	s.applyDefaults()
	s.log = s.log.Named("server")
	return s
}

// ServeHTTP upgrades the request and serves the connection until the peer
// leaves, the consumer stops it, or the server closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hdr, err := protocol.Upgrade(r, s.subprotocols)
	if err != nil {
		s.log.Debug("upgrade refused", zap.String("remote", r.RemoteAddr), zap.Error(err))
		s.metrics.rejectedUpgrade("handshake")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if reason := s.admission(); reason != "" {
		s.metrics.rejectedUpgrade(reason)
		http.Error(w, reason, http.StatusServiceUnavailable)
		return
	}

	a, err := s.factory()
	if err != nil {
		s.log.Warn("adapter creation failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		s.metrics.rejectedUpgrade("adapter")
		http.Error(w, "no buffer available", http.StatusServiceUnavailable)
		return
	}

	netConn, brw, err := http.NewResponseController(w).Hijack()
	if err != nil {
		s.log.Error("hijack failed", zap.Error(err))
		release(a)
		http.Error(w, "websocket not supported", http.StatusInternalServerError)
		return
	}
	// Clear deadlines inherited from the HTTP server.
	_ = netConn.SetDeadline(time.Time{})
	if s.userTimeout > 0 {
		if err := setUserTimeout(netConn, s.userTimeout); err != nil {
			s.log.Debug("tcp user timeout not set", zap.Error(err))
		}
	}
	if err := protocol.WriteHandshakeResponse(brw.Writer, hdr); err == nil {
		err = brw.Flush()
	}
	if err != nil {
		s.log.Debug("handshake write failed", zap.Error(err))
		release(a)
		_ = netConn.Close()
		return
	}

	sink := newSink(netConn, s.writeTimeout, s.metrics)
	link := s.register(a, sink, r.RemoteAddr)
	if link == nil {
		_ = sink.closeWith(protocol.CloseGoingAway, "server closing")
		return
	}
	defer s.loops.Done()
	s.metrics.connOpened()
	defer s.metrics.connClosed()

	log := s.log.With(zap.String("conn", link.ID()), zap.String("remote", r.RemoteAddr))
	log.Debug("connection opened", zap.String("subprotocol", hdr.Get("Sec-WebSocket-Protocol")))
	link.SetStatus(api.SessionActive)

	code, reason := s.readLoop(link, brw.Reader, sink, log)

	s.links.Delete(link.ID())
	if h := link.Value(); h != nil {
		h.adapter.SetSink(nil)
	}
	if code != 0 {
		_ = sink.closeWith(code, reason)
	} else {
		_ = sink.shutdown()
	}
	link.SetStatus(api.SessionClosed)
	log.Debug("connection closed", zap.Uint16("code", code), zap.String("reason", reason))
}

// admission returns a non-empty reason when the upgrade must be refused.
func (s *Server) admission() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return "server closed"
	case s.maxPending > 0 && s.pending.Length() >= s.maxPending:
		return "accept queue full"
	}
	return ""
}

// register links a new connection, queues its Conn and accounts for its
// read loop. The returned link is the only reference the caller keeps.
func (s *Server) register(a api.BufferAdapter, sink *wsSink, remote string) *session.Session[handle] {
	h := &handle{adapter: a, remote: remote, created: time.Now()}
	link := s.links.Create(remote, h, goingAway{sink})
	h.id = link.ID()
	a.SetSink(sink)
	runtime.AddCleanup(h, collected, orphan{adapter: a, sink: sink, log: s.log, id: h.id})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.links.Delete(h.id)
		a.SetSink(nil)
		release(a)
		return nil
	}
	s.loops.Add(1)
	s.pending.Add(Conn{h: h})
	s.metrics.queueDepth(s.pending.Length())
	return link
}

// goingAway closes a connection on server shutdown.
type goingAway struct{ sink *wsSink }

func (g goingAway) Close() error {
	return g.sink.closeWith(protocol.CloseGoingAway, "server closing")
}

// orphan is what remains of a connection once no Conn refers to it.
type orphan struct {
	adapter api.BufferAdapter
	sink    *wsSink
	log     *zap.Logger
	id      string
}

func collected(o orphan) {
	o.log.Debug("connection abandoned by consumer", zap.String("conn", o.id))
	release(o.adapter)
	_ = o.sink.closeWith(protocol.CloseGoingAway, "consumer gone")
}

func release(a api.BufferAdapter) {
	if r, ok := a.(adapter.Releaser); ok {
		r.Release()
	}
}

// Accept returns the oldest connection not yet claimed, or the zero Conn
// when none is waiting. It never blocks.
func (s *Server) Accept() Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending.Length() == 0 {
		return Conn{}
	}
	c := s.pending.Remove().(Conn)
	s.metrics.queueDepth(s.pending.Length())
	return c
}

// Pending returns the number of connections waiting in Accept.
func (s *Server) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Length()
}

// Connections returns the number of connections with a live read loop.
func (s *Server) Connections() int {
	return s.links.Len()
}

// ConnInfo describes one live connection.
type ConnInfo struct {
	ID        string    `json:"id"`
	Remote    string    `json:"remote"`
	Status    string    `json:"status"`
	Since     time.Time `json:"since"`
	Buffered  int       `json:"buffered"`
	Abandoned bool      `json:"abandoned"`
}

// Snapshot lists live connections for debug output.
func (s *Server) Snapshot() []ConnInfo {
	var out []ConnInfo
	s.links.Range(func(l *session.Session[handle]) bool {
		info := ConnInfo{ID: l.ID(), Remote: l.Remote(), Status: l.Status().String(), Since: l.Created()}
		if h := l.Value(); h != nil {
			info.Buffered = h.adapter.Available()
		} else {
			info.Abandoned = true
		}
		out = append(out, info)
		return true
	})
	return out
}

// Close refuses new upgrades, closes every live connection and waits for
// their read loops. Queued Conns keep their buffered bytes.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return api.ErrServerClosed
	}
	s.closed = true
	s.mu.Unlock()

	var err error
	s.links.Range(func(l *session.Session[handle]) bool {
		if cerr := l.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = multierr.Append(err, cerr)
		}
		return true
	})
	s.loops.Wait()
	s.log.Info("server closed", zap.Int("pending", s.Pending()))
	return err
}
