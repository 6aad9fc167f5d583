package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/wsproxy/adapter"
	"github.com/momentics/wsproxy/api"
	"github.com/momentics/wsproxy/protocol"
)

func newTestServer(t *testing.T, kind adapter.Kind, aopts []adapter.Option, opts ...Option) (*Server, string) {
	t.Helper()
	factory, err := adapter.NewFactory(kind, aopts...)
	require.NoError(t, err)
	s := New(factory, opts...)
	hs := httptest.NewServer(s)
	t.Cleanup(func() {
		_ = s.Close()
		hs.Close()
	})
	return s, "ws" + strings.TrimPrefix(hs.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))
	return c
}

func accept(t *testing.T, s *Server) Conn {
	t.Helper()
	var c Conn
	require.Eventually(t, func() bool {
		c = s.Accept()
		return c.Valid()
	}, 2*time.Second, time.Millisecond)
	return c
}

func readAvailable(t *testing.T, c Conn, n int) []byte {
	t.Helper()
	require.Eventually(t, func() bool { return c.Available() >= n }, 2*time.Second, time.Millisecond)
	p := make([]byte, n)
	got, err := c.Read(p)
	require.NoError(t, err)
	return p[:got]
}

func expectClose(t *testing.T, ws *websocket.Conn, code int) {
	t.Helper()
	for {
		_, _, err := ws.ReadMessage()
		if err == nil {
			continue
		}
		require.True(t, websocket.IsCloseError(err, code), "got %v, want close %d", err, code)
		return
	}
}

func TestStreamRoundTrip(t *testing.T) {
	for _, kind := range adapter.Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			s, url := newTestServer(t, kind, []adapter.Option{adapter.WithCapacity(64)})
			ws := dial(t, url)

			conn := accept(t, s)
			assert.NotEmpty(t, conn.ID())
			assert.Equal(t, 1, s.Connections())

			require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte("hello")))
			assert.Equal(t, "hello", string(readAvailable(t, conn, 5)))
			require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(" world")))
			assert.Equal(t, " world", string(readAvailable(t, conn, 6)))

			_, err := conn.Write([]byte("echo"))
			require.NoError(t, err)
			mt, msg, err := ws.ReadMessage()
			require.NoError(t, err)
			assert.Equal(t, websocket.BinaryMessage, mt)
			assert.Equal(t, "echo", string(msg))
		})
	}
}

func TestPingAnsweredWithPong(t *testing.T) {
	s, url := newTestServer(t, adapter.KindDynamic, nil)
	ws := dial(t, url)
	accept(t, s)

	pong := make(chan string, 1)
	ws.SetPongHandler(func(data string) error {
		pong <- data
		return nil
	})
	go func() { _, _, _ = ws.ReadMessage() }()

	require.NoError(t, ws.WriteControl(websocket.PingMessage, []byte("are you there"), time.Now().Add(time.Second)))
	select {
	case got := <-pong:
		assert.Equal(t, "are you there", got)
	case <-time.After(2 * time.Second):
		t.Fatal("no pong")
	}
}

// maskedFrame encodes a client frame with a short payload.
func maskedFrame(fin bool, opcode byte, payload []byte) []byte {
	b0 := opcode
	if fin {
		b0 |= protocol.FinBit
	}
	key := [4]byte{0x11, 0x22, 0x33, 0x44}
	out := append([]byte{b0, protocol.MaskBit | byte(len(payload))}, key[:]...)
	for i, c := range payload {
		out = append(out, c^key[i%4])
	}
	return out
}

func TestFragmentedMessageIsBuffered(t *testing.T) {
	s, url := newTestServer(t, adapter.KindDynamic, nil)
	ws := dial(t, url)
	conn := accept(t, s)

	raw := ws.UnderlyingConn()
	_, err := raw.Write(maskedFrame(false, protocol.OpcodeBinary, []byte("frag")))
	require.NoError(t, err)
	_, err = raw.Write(maskedFrame(true, protocol.OpcodeContinuation, []byte("ment")))
	require.NoError(t, err)
	assert.Equal(t, "fragment", string(readAvailable(t, conn, 8)))
}

func TestStrayContinuationCloses1002(t *testing.T) {
	_, url := newTestServer(t, adapter.KindDynamic, nil)
	ws := dial(t, url)
	_, err := ws.UnderlyingConn().Write(maskedFrame(true, protocol.OpcodeContinuation, []byte("orphan")))
	require.NoError(t, err)
	expectClose(t, ws, websocket.CloseProtocolError)
}

func TestDataFrameInsideFragmentCloses1002(t *testing.T) {
	_, url := newTestServer(t, adapter.KindDynamic, nil)
	ws := dial(t, url)
	raw := ws.UnderlyingConn()
	_, err := raw.Write(maskedFrame(false, protocol.OpcodeText, []byte("open")))
	require.NoError(t, err)
	_, err = raw.Write(maskedFrame(true, protocol.OpcodeBinary, []byte("again")))
	require.NoError(t, err)
	expectClose(t, ws, websocket.CloseProtocolError)
}

func TestOversizedFrameCloses1009(t *testing.T) {
	_, url := newTestServer(t, adapter.KindDynamic, nil, WithMaxFramePayload(8))
	ws := dial(t, url)
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, make([]byte, 9)))
	expectClose(t, ws, websocket.CloseMessageTooBig)
}

func TestBufferFullCloses1008(t *testing.T) {
	s, url := newTestServer(t, adapter.KindStatic,
		[]adapter.Option{adapter.WithCapacity(8), adapter.WithWaitTimeout(0)})
	ws := dial(t, url)
	conn := accept(t, s)

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte("123456")))
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte("789abc")))
	expectClose(t, ws, websocket.ClosePolicyViolation)

	// Bytes accepted before the rejection stay readable.
	assert.Equal(t, "123456", string(readAvailable(t, conn, 6)))
}

func TestDrainAfterPeerLeaves(t *testing.T) {
	s, url := newTestServer(t, adapter.KindShifting, []adapter.Option{adapter.WithCapacity(64)})
	ws := dial(t, url)
	conn := accept(t, s)

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte("last words")))
	require.NoError(t, ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	expectClose(t, ws, websocket.CloseNormalClosure)

	require.Eventually(t, func() bool { return !conn.Connected() }, 2*time.Second, time.Millisecond)
	assert.True(t, conn.Valid())
	assert.Equal(t, "last words", string(readAvailable(t, conn, 10)))
	_, err := conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
	assert.False(t, conn.Valid())
	require.Eventually(t, func() bool { return s.Connections() == 0 }, 2*time.Second, time.Millisecond)
}

func TestStopSendsNormalClosure(t *testing.T) {
	s, url := newTestServer(t, adapter.KindCircular, nil)
	ws := dial(t, url)
	conn := accept(t, s)
	conn.Stop()
	expectClose(t, ws, websocket.CloseNormalClosure)
	_, err := conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestAbandonedConnGoesAway(t *testing.T) {
	s, url := newTestServer(t, adapter.KindCircular, nil)
	ws := dial(t, url)
	func() {
		c := accept(t, s)
		require.True(t, c.Connected())
	}()

	done := make(chan error, 1)
	go func() {
		_, _, err := ws.ReadMessage()
		done <- err
	}()
	var err error
	require.Eventually(t, func() bool {
		runtime.GC()
		select {
		case err = <-done:
			return true
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestAcceptQueue(t *testing.T) {
	s, url := newTestServer(t, adapter.KindDynamic, nil, WithMaxPending(1))
	assert.False(t, s.Accept().Valid())

	dial(t, url)
	require.Eventually(t, func() bool { return s.Pending() == 1 }, 2*time.Second, time.Millisecond)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	assert.True(t, s.Accept().Valid())
	assert.Zero(t, s.Pending())
	ws := dial(t, url)
	assert.NotNil(t, ws)
}

func TestBadHandshake(t *testing.T) {
	s, url := newTestServer(t, adapter.KindDynamic, nil)
	resp, err := http.Get("http" + strings.TrimPrefix(url, "ws"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, s.Pending())
}

func TestSubprotocolNegotiation(t *testing.T) {
	_, url := newTestServer(t, adapter.KindDynamic, nil, WithSubprotocols("mqtt"))
	d := websocket.Dialer{Subprotocols: []string{"mqttv3.1", "mqtt"}}
	ws, _, err := d.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	assert.Equal(t, "mqtt", ws.Subprotocol())
}

func TestCloseSendsGoingAway(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, url := newTestServer(t, adapter.KindDynamic, nil, WithRegistry(reg))
	ws := dial(t, url)
	conn := accept(t, s)
	require.Len(t, s.Snapshot(), 1)

	require.NoError(t, s.Close())
	expectClose(t, ws, websocket.CloseGoingAway)
	assert.Zero(t, s.Connections())
	assert.False(t, conn.Connected())
	assert.ErrorIs(t, s.Close(), api.ErrServerClosed)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.accepted))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.metrics.active))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.closes.WithLabelValues("1001")))

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
