// File: control/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Service configuration loaded from YAML. Durations are written as Go
// duration strings ("3s", "250ms").

package control

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/momentics/wsproxy/adapter"
	"github.com/momentics/wsproxy/api"
	"github.com/momentics/wsproxy/pool"
)

// Config holds all service parameters.
type Config struct {
	ListenAddr   string   `yaml:"listen_addr" json:"listen_addr"`
	Path         string   `yaml:"path" json:"path"`
	Subprotocols []string `yaml:"subprotocols" json:"subprotocols"`

	Strategy      string        `yaml:"strategy" json:"strategy"`
	Capacity      int           `yaml:"capacity" json:"capacity"`
	WaitTimeout   time.Duration `yaml:"wait_timeout" json:"wait_timeout"`
	DropOnNoSpace bool          `yaml:"drop_on_no_space" json:"drop_on_no_space"`
	AllocRetry    time.Duration `yaml:"alloc_retry" json:"alloc_retry"`
	MemoryBudget  int           `yaml:"memory_budget" json:"memory_budget"` // backing bytes shared by all adapters of every strategy, 0 = unlimited

	MaxFramePayload int64         `yaml:"max_frame_payload" json:"max_frame_payload"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	MaxPending      int           `yaml:"max_pending" json:"max_pending"`
	TCPUserTimeout  time.Duration `yaml:"tcp_user_timeout" json:"tcp_user_timeout"` // linux only, 0 keeps the kernel default

	AcceptInterval  time.Duration `yaml:"accept_interval" json:"accept_interval"`
	PollInterval    time.Duration `yaml:"poll_interval" json:"poll_interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`
	Metrics   bool   `yaml:"metrics" json:"metrics"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      ":8080",
		Path:            "/ws",
		Strategy:        adapter.KindCircular.String(),
		Capacity:        adapter.DefaultCapacity,
		WaitTimeout:     adapter.DefaultWaitTimeout,
		AllocRetry:      adapter.DefaultAllocRetry,
		MaxFramePayload: 1 << 20,
		WriteTimeout:    10 * time.Second,
		MaxPending:      64,
		AcceptInterval:  10 * time.Millisecond,
		PollInterval:    5 * time.Millisecond,
		ShutdownTimeout: 5 * time.Second,
		LogLevel:        "info",
		LogFormat:       "console",
		Metrics:         true,
	}
}

// Load reads a YAML file over the defaults and validates the result.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: config: %w", api.ErrInvalidArgument, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and names.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	kind, err := adapter.ParseKind(c.Strategy)
	if err != nil {
		add("strategy %q is not one of %s", c.Strategy, strategyNames())
	}
	if c.ListenAddr == "" {
		add("listen_addr is empty")
	}
	if !strings.HasPrefix(c.Path, "/") {
		add("path %q must start with /", c.Path)
	}
	if err == nil && kind.Bounded() && c.Capacity <= 0 {
		add("capacity must be positive for %s", kind)
	}
	if c.Capacity < 0 {
		add("capacity is negative")
	}
	if c.MemoryBudget < 0 {
		add("memory_budget is negative")
	}
	if c.MaxFramePayload <= 0 {
		add("max_frame_payload must be positive")
	}
	if c.MaxPending < 0 {
		add("max_pending is negative")
	}
	for name, d := range map[string]time.Duration{
		"wait_timeout":     c.WaitTimeout,
		"alloc_retry":      c.AllocRetry,
		"write_timeout":    c.WriteTimeout,
		"tcp_user_timeout": c.TCPUserTimeout,
		"shutdown_timeout": c.ShutdownTimeout,
	} {
		if d < 0 {
			add("%s is negative", name)
		}
	}
	if c.AcceptInterval <= 0 {
		add("accept_interval must be positive")
	}
	if c.PollInterval <= 0 {
		add("poll_interval must be positive")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		add("log_level %q is invalid", c.LogLevel)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		add("log_format %q must be json or console", c.LogFormat)
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", api.ErrInvalidArgument, strings.Join(problems, "; "))
}

// Kind returns the configured strategy. Call Validate first.
func (c *Config) Kind() adapter.Kind {
	k, _ := adapter.ParseKind(c.Strategy)
	return k
}

// Allocator returns the allocator adapters draw from: a shared class pool,
// capped by memory_budget when set.
func (c *Config) Allocator() pool.Allocator {
	classes := pool.NewClassPool()
	if c.MemoryBudget > 0 {
		return pool.NewBudget(classes, c.MemoryBudget)
	}
	return classes
}

// AdapterOptions translates the buffering settings into adapter options.
func (c *Config) AdapterOptions(alloc pool.Allocator, log *zap.Logger, m *adapter.Metrics) []adapter.Option {
	opts := []adapter.Option{
		adapter.WithCapacity(c.Capacity),
		adapter.WithWaitTimeout(c.WaitTimeout),
		adapter.WithAllocRetry(c.AllocRetry),
		adapter.WithLogger(log),
		adapter.WithMetrics(m),
	}
	if alloc != nil {
		opts = append(opts, adapter.WithAllocator(alloc))
	}
	if c.DropOnNoSpace {
		opts = append(opts, adapter.WithDropOnNoSpace())
	}
	return opts
}

// YAML renders the configuration back to YAML.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func strategyNames() string {
	kinds := adapter.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}
