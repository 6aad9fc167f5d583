package adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/momentics/wsproxy/api"
	"github.com/momentics/wsproxy/fake"
)

// waiting reports how many producers are parked in the monitor.
func (b *base) waiting() int {
	b.mon.mu.Lock()
	defer b.mon.mu.Unlock()
	return b.mon.waiters
}

type waiter interface {
	waiting() int
}

func newAdapter(t *testing.T, kind Kind, opts ...Option) api.BufferAdapter {
	t.Helper()
	a, err := New(kind, opts...)
	require.NoError(t, err)
	return a
}

func ingest(t *testing.T, a api.BufferAdapter, data []byte) {
	t.Helper()
	require.NoError(t, a.Ingest(fake.NewSource(data)))
}

func readN(t *testing.T, a api.BufferAdapter, n int) []byte {
	t.Helper()
	p := make([]byte, n)
	got := a.Read(p)
	require.Equal(t, n, got)
	return p
}

func drain(a api.BufferAdapter) []byte {
	out := make([]byte, 0, a.Available())
	p := make([]byte, 7)
	for {
		n := a.Read(p)
		if n == 0 {
			return out
		}
		out = append(out, p[:n]...)
	}
}

// awaitWaiter blocks until a producer is parked in a's monitor.
func awaitWaiter(t *testing.T, a api.BufferAdapter) {
	t.Helper()
	w := a.(waiter)
	require.Eventually(t, func() bool { return w.waiting() > 0 }, 2*time.Second, time.Millisecond)
}

func seq(n int, start byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = start + byte(i)
	}
	return b
}
