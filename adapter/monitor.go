// File: adapter/monitor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded-wait monitor: one lock, one broadcast channel, and a predicate
// re-evaluated after every wake-up.

package adapter

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type monitor struct {
	mu      sync.Mutex
	wake    chan struct{}
	waiters int
	clock   clock.Clock
}

// broadcast wakes every waiter. Caller holds mu.
func (m *monitor) broadcast() {
	if m.waiters == 0 || m.wake == nil {
		return
	}
	close(m.wake)
	m.wake = nil
}

// waitFor blocks until cond holds or timeout elapses, returning the final
// value of cond. Caller holds mu; it is released while sleeping and held
// again on return. A positive poll re-checks cond periodically even without
// a broadcast, for conditions that depend on state outside the adapter.
func (m *monitor) waitFor(timeout, poll time.Duration, cond func() bool) bool {
	if cond() {
		return true
	}
	if timeout <= 0 {
		return false
	}

	deadline := m.clock.Timer(timeout)
	defer deadline.Stop()

	var retry <-chan time.Time
	if poll > 0 {
		ticker := m.clock.Ticker(poll)
		defer ticker.Stop()
		retry = ticker.C
	}

	for {
		if m.wake == nil {
			m.wake = make(chan struct{})
		}
		wake := m.wake
		m.waiters++
		m.mu.Unlock()

		expired := false
		select {
		case <-wake:
		case <-retry:
		case <-deadline.C:
			expired = true
		}

		m.mu.Lock()
		m.waiters--
		if cond() {
			return true
		}
		if expired {
			return false
		}
	}
}
