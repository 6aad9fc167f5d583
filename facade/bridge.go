// File: facade/bridge.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bridge aggregates the service components behind a single entry point:
// HTTP routing, the WebSocket server and the consumer accept loop.

package facade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/wsproxy/adapter"
	"github.com/momentics/wsproxy/api"
	"github.com/momentics/wsproxy/control"
	"github.com/momentics/wsproxy/pool"
	"github.com/momentics/wsproxy/server"
)

// Info describes the running binary. The CLI overrides it at startup.
var Info = api.ServiceInfo{Name: "wsproxy", Version: "dev", Commit: "none"}

// ErrAlreadyRunning is returned by a second Run on the same Bridge.
var ErrAlreadyRunning = errors.New("bridge already running")

// Bridge is the top-level service.
type Bridge struct {
	cfg    *control.Config
	store  *control.Store
	log    *zap.Logger
	reg    *prometheus.Registry
	alloc  pool.Allocator
	srv    *server.Server
	debug  *control.DebugState
	router chi.Router
	clock  clock.Clock

	ln      net.Listener
	addrMu  sync.Mutex
	addr    net.Addr
	ready   chan struct{}
	running atomic.Bool
}

// Option customizes Bridge construction.
type Option func(*Bridge)

// WithLogger replaces the logger built from log_level and log_format.
// Reloads then leave the log level alone.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// WithRegistry registers metrics with reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(b *Bridge) { b.reg = reg }
}

// WithListener serves on ln instead of listening on listen_addr.
func WithListener(ln net.Listener) Option {
	return func(b *Bridge) { b.ln = ln }
}

// WithClock drives the accept loop from clk.
func WithClock(clk clock.Clock) Option {
	return func(b *Bridge) { b.clock = clk }
}

// New validates cfg and builds every component. Nothing listens until Run.
func New(cfg *control.Config, opts ...Option) (*Bridge, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Bridge{cfg: cfg, ready: make(chan struct{})}
	for _, o := range opts {
		o(b)
	}

	var level zap.AtomicLevel
	if b.log == nil {
		log, lvl, err := control.NewLogger(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return nil, err
		}
		b.log, level = log, lvl
	}
	b.log = b.log.Named("facade")
	if b.reg == nil {
		b.reg = control.NewRegistry()
	}
	if b.clock == nil {
		b.clock = clock.New()
	}
	b.store = control.NewStore(cfg, level)

	var (
		am *adapter.Metrics
		sm *server.Metrics
	)
	if cfg.Metrics {
		am = adapter.NewMetrics(b.reg)
		sm = server.NewMetrics(b.reg)
	}
	b.alloc = cfg.Allocator()
	factory, err := adapter.NewFactory(cfg.Kind(), cfg.AdapterOptions(b.alloc, b.log, am)...)
	if err != nil {
		return nil, fmt.Errorf("adapter factory: %w", err)
	}
	b.srv = server.New(factory,
		server.WithLogger(b.log),
		server.WithSubprotocols(cfg.Subprotocols...),
		server.WithMaxFramePayload(cfg.MaxFramePayload),
		server.WithWriteTimeout(cfg.WriteTimeout),
		server.WithUserTimeout(cfg.TCPUserTimeout),
		server.WithMaxPending(cfg.MaxPending),
		server.WithMetrics(sm),
	)

	b.debug = control.NewDebugState()
	b.registerDebug()
	b.router = b.routes()

	b.log.Info("bridge configured",
		zap.String("strategy", cfg.Strategy),
		zap.Int("capacity", cfg.Capacity),
		zap.Duration("wait_timeout", cfg.WaitTimeout),
		zap.Int("memory_budget", cfg.MemoryBudget))
	return b, nil
}

func (b *Bridge) registerDebug() {
	control.RegisterRuntimeStats(b.debug)
	b.debug.Register("connections", func() any { return b.srv.Connections() })
	b.debug.Register("pending", func() any { return b.srv.Pending() })
	b.debug.Register("links", func() any { return b.srv.Snapshot() })
	b.debug.Register("config", func() any { return b.store.Current() })
	if budget, ok := b.alloc.(*pool.Budget); ok {
		b.debug.Register("memory.in_use", func() any { return budget.InUse() })
	}
}

func (b *Bridge) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/hello", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Info)
	})
	if b.cfg.Metrics {
		r.Method(http.MethodGet, "/metrics", control.MetricsHandler(b.reg))
	}
	r.Method(http.MethodGet, "/debug/state", b.debug)
	r.Handle(b.cfg.Path, b.srv)
	return r
}

// Handler returns the HTTP routes without starting anything.
func (b *Bridge) Handler() http.Handler { return b.router }

// Server exposes the WebSocket server for direct Accept loops.
func (b *Bridge) Server() *server.Server { return b.srv }

// Store exposes the configuration holder for reloads.
func (b *Bridge) Store() *control.Store { return b.store }

// Debug exposes the debug state registry.
func (b *Bridge) Debug() *control.DebugState { return b.debug }

// Clock returns the clock driving the accept loop, for consumers to share.
func (b *Bridge) Clock() clock.Clock { return b.clock }

// Logger returns the bridge logger.
func (b *Bridge) Logger() *zap.Logger { return b.log }

// Ready is closed once Run is listening.
func (b *Bridge) Ready() <-chan struct{} { return b.ready }

// Addr returns the listening address, nil before Ready.
func (b *Bridge) Addr() net.Addr {
	b.addrMu.Lock()
	defer b.addrMu.Unlock()
	return b.addr
}

// Run serves HTTP and hands accepted connections to consume until ctx is
// cancelled or serving fails, then shuts down within shutdown_timeout.
func (b *Bridge) Run(ctx context.Context, consume Consumer) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	ln := b.ln
	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", b.cfg.ListenAddr); err != nil {
			return fmt.Errorf("listen %s: %w", b.cfg.ListenAddr, err)
		}
	}
	b.addrMu.Lock()
	b.addr = ln.Addr()
	b.addrMu.Unlock()
	close(b.ready)

	hs := &http.Server{
		Handler:           b.router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(b.log.Named("http")),
	}
	b.log.Info("listening", zap.Stringer("addr", ln.Addr()), zap.String("path", b.cfg.Path))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := hs.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return b.acceptLoop(gctx, consume)
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), b.cfg.ShutdownTimeout)
		defer cancel()
		err := hs.Shutdown(sctx)
		if cerr := b.srv.Close(); cerr != nil && !errors.Is(cerr, api.ErrServerClosed) {
			err = multierr.Append(err, cerr)
		}
		b.log.Info("bridge stopped", zap.Error(err))
		return err
	})
	return g.Wait()
}

// acceptLoop polls the server every accept_interval and runs consume on a
// goroutine per connection. It returns after every consumer has finished.
func (b *Bridge) acceptLoop(ctx context.Context, consume Consumer) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	tick := b.clock.Ticker(b.cfg.AcceptInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
		for c := b.srv.Accept(); c.ID() != ""; c = b.srv.Accept() {
			if !c.Valid() {
				continue
			}
			wg.Add(1)
			go func(c server.Conn) {
				defer wg.Done()
				log := b.log.With(zap.String("conn", c.ID()))
				if err := consume(ctx, c); err != nil && !errors.Is(err, context.Canceled) {
					log.Warn("consumer failed", zap.Error(err))
				}
				c.Stop()
				log.Debug("consumer finished")
			}(c)
		}
	}
}
