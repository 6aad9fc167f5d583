// File: control/debug.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime debug handler and state registry for internal inspection.

package control

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
)

// DebugState holds registered state functions.
type DebugState struct {
	mu  sync.RWMutex
	fns map[string]func() any
}

// NewDebugState creates a state registry.
func NewDebugState() *DebugState {
	return &DebugState{
		fns: make(map[string]func() any),
	}
}

// Register inserts a named debug hook, replacing one of the same name.
func (ds *DebugState) Register(name string, fn func() any) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.fns[name] = fn
}

// DumpState returns output of all registered functions.
func (ds *DebugState) DumpState() map[string]any {
	ds.mu.RLock()
	fns := make(map[string]func() any, len(ds.fns))
	for k, fn := range ds.fns {
		fns[k] = fn
	}
	ds.mu.RUnlock()

	out := make(map[string]any, len(fns))
	for k, fn := range fns {
		out[k] = fn()
	}
	return out
}

// ServeHTTP writes DumpState as JSON.
func (ds *DebugState) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(ds.DumpState())
}

// RegisterRuntimeStats adds Go runtime figures.
func RegisterRuntimeStats(ds *DebugState) {
	ds.Register("runtime.cpus", func() any {
		return runtime.NumCPU()
	})
	ds.Register("runtime.goroutines", func() any {
		return runtime.NumGoroutine()
	})
	ds.Register("runtime.heap_inuse", func() any {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		return ms.HeapInuse
	})
}
