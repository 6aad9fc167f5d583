// File: adapter/options.go
// Package adapter defines functional options shared by all strategies.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package adapter

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/momentics/wsproxy/api"
	"github.com/momentics/wsproxy/pool"
)

const (
	DefaultCapacity    = 1024
	DefaultWaitTimeout = 3 * time.Second
	DefaultAllocRetry  = 10 * time.Millisecond
)

// config is the resolved per-adapter configuration.
type config struct {
	capacity   int
	timeout    time.Duration
	noSpaceErr error // nil drops rejected frames silently
	alloc      pool.Allocator
	allocRetry time.Duration
	clock      clock.Clock
	log        *zap.Logger
	metrics    *Metrics
}

// Option customizes adapter construction.
type Option func(*config)

func defaultConfig() config {
	return config{
		capacity:   DefaultCapacity,
		timeout:    DefaultWaitTimeout,
		noSpaceErr: api.ErrNoSpace,
		allocRetry: DefaultAllocRetry,
	}
}

func buildConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.alloc == nil {
		cfg.alloc = sharedClassPool
	}
	if cfg.clock == nil {
		cfg.clock = clock.New()
	}
	if cfg.log == nil {
		cfg.log = zap.NewNop()
	}
	return cfg
}

var sharedClassPool = pool.NewClassPool()

// WithCapacity sets the buffer size in bytes (max_size for Dynamic,
// maximum frame size for SingleFrame, where 0 means unbounded).
func WithCapacity(n int) Option {
	return func(c *config) {
		c.capacity = n
	}
}

// WithWaitTimeout bounds how long Ingest may wait for space.
func WithWaitTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithNoSpaceError sets the error reported when a frame cannot be stored.
// A nil error selects the silent-drop policy.
func WithNoSpaceError(err error) Option {
	return func(c *config) {
		c.noSpaceErr = err
	}
}

// WithDropOnNoSpace discards frames that cannot be stored and reports success.
func WithDropOnNoSpace() Option {
	return WithNoSpaceError(nil)
}

// WithAllocator sets the allocator used by Dynamic and SingleFrame regions
// and by the fixed regions of Static, Shifting and Circular.
func WithAllocator(a pool.Allocator) Option {
	return func(c *config) {
		c.alloc = a
	}
}

// WithAllocRetry sets how often a failed allocation is retried while waiting.
func WithAllocRetry(d time.Duration) Option {
	return func(c *config) {
		c.allocRetry = d
	}
}

// WithClock replaces the wall clock, e.g. with clock.NewMock() in tests.
func WithClock(clk clock.Clock) Option {
	return func(c *config) {
		c.clock = clk
	}
}

// WithLogger sets the logger; strategies log under their own name.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.log = l
	}
}

// WithMetrics records ingest and read activity into m.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}
