package facade

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/wsproxy/api"
)

// scriptedStream replays canned Read results and reports every call.
type scriptedStream struct {
	mu    sync.Mutex
	steps []any // string payload or error
	reads chan struct{}
}

func newScriptedStream(steps ...any) *scriptedStream {
	return &scriptedStream{steps: steps, reads: make(chan struct{}, 16)}
}

func (s *scriptedStream) Read(p []byte) (int, error) {
	s.reads <- struct{}{}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		return 0, io.EOF
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	if err, ok := step.(error); ok {
		return 0, err
	}
	return copy(p, step.(string)), nil
}

func expectReads(t *testing.T, s *scriptedStream, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.reads:
		case <-time.After(2 * time.Second):
			t.Fatalf("read %d of %d did not happen", i+1, n)
		}
	}
}

func expectNoRead(t *testing.T, s *scriptedStream) {
	t.Helper()
	select {
	case <-s.reads:
		t.Fatal("read without a clock tick")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPumpPollsOnClock(t *testing.T) {
	mock := clock.NewMock()
	s := newScriptedStream(api.ErrWouldBlock, "ab", api.ErrWouldBlock, "c")

	var got []byte
	done := make(chan error, 1)
	go func() {
		done <- pump(context.Background(), s, mock, time.Second, func(p []byte) error {
			got = append(got, p...)
			return nil
		})
	}()

	expectReads(t, s, 1)
	expectNoRead(t, s)

	mock.Add(time.Second)
	expectReads(t, s, 2) // "ab", then empty again
	expectNoRead(t, s)

	mock.Add(time.Second)
	expectReads(t, s, 2) // "c", then end of stream
	require.NoError(t, <-done)
	assert.Equal(t, "abc", string(got))
}

func TestPumpStopsOnCancel(t *testing.T) {
	mock := clock.NewMock()
	s := newScriptedStream(api.ErrWouldBlock)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- pump(ctx, s, mock, time.Second, func([]byte) error { return nil }) }()
	expectReads(t, s, 1)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestPumpReportsReadErrors(t *testing.T) {
	s := newScriptedStream(io.ErrUnexpectedEOF)
	err := pump(context.Background(), s, clock.NewMock(), time.Second, func([]byte) error { return nil })
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
