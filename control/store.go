// File: control/store.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Configuration holder with reload propagation. Only log_level takes
// effect on a running service; other fields reach listeners, which decide
// what they can apply.

package control

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Store holds the active configuration.
type Store struct {
	mu        sync.RWMutex
	cfg       *Config
	level     zap.AtomicLevel
	listeners []func(*Config)
}

// NewStore wraps cfg; level is the logger level Reload adjusts.
func NewStore(cfg *Config, level zap.AtomicLevel) *Store {
	return &Store{cfg: cfg, level: level}
}

// Current returns a copy of the active configuration.
func (s *Store) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.cfg
}

// OnReload registers a listener called after every successful reload.
func (s *Store) OnReload(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Reload loads path and swaps it in. On error the active configuration is
// kept.
func (s *Store) Reload(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	s.Set(cfg)
	return nil
}

// Set swaps in a validated configuration and notifies listeners
// synchronously.
func (s *Store) Set(cfg *Config) {
	s.mu.Lock()
	s.cfg = cfg
	listeners := append(([]func(*Config))(nil), s.listeners...)
	s.mu.Unlock()

	if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil && s.level != (zap.AtomicLevel{}) {
		s.level.SetLevel(lvl)
	}
	for _, fn := range listeners {
		fn(cfg)
	}
}
