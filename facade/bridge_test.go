package facade

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/momentics/wsproxy/api"
	"github.com/momentics/wsproxy/control"
)

func testConfig() *control.Config {
	cfg := control.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Capacity = 256
	cfg.WaitTimeout = 500 * time.Millisecond
	cfg.AcceptInterval = time.Millisecond
	cfg.PollInterval = time.Millisecond
	cfg.ShutdownTimeout = time.Second
	cfg.MemoryBudget = 1 << 20
	return cfg
}

// runBridge starts b with consume and returns the WebSocket URL. The bridge
// is stopped when the test ends.
func runBridge(t *testing.T, b *Bridge, consume Consumer) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, consume) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("bridge did not stop")
		}
	})
	select {
	case <-b.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("bridge not ready")
	}
	return "ws://" + b.Addr().String() + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	return ws
}

func TestBridgeEcho(t *testing.T) {
	cfg := testConfig()
	b, err := New(cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	ws := dial(t, runBridge(t, b, Echo(nil, cfg.PollInterval)))

	for _, msg := range []string{"hello", "frames become a stream"} {
		require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte(msg)))
		var got []byte
		for len(got) < len(msg) {
			kind, p, err := ws.ReadMessage()
			require.NoError(t, err)
			assert.Equal(t, websocket.BinaryMessage, kind)
			got = append(got, p...)
		}
		assert.Equal(t, msg, string(got))
	}
}

func TestBridgeLogLines(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	cfg := testConfig()
	cfg.Strategy = "dynamic"
	b, err := New(cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	ws := dial(t, runBridge(t, b, LogLines(zap.New(core), nil, cfg.PollInterval)))

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte("alpha\nbe")))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("ta\ngamma")))
	require.NoError(t, ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	require.Eventually(t, func() bool { return logs.FilterMessage("line").Len() == 3 },
		2*time.Second, time.Millisecond)
	var lines []string
	for _, e := range logs.FilterMessage("line").All() {
		lines = append(lines, e.ContextMap()["text"].(string))
	}
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, lines)
}

func TestBridgeRoutes(t *testing.T) {
	b, err := New(testConfig(), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	h := b.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hello", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var info api.ServiceInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "wsproxy", info.Name)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wsproxy_server_connections_active")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var state map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.EqualValues(t, 0, state["connections"])
	assert.EqualValues(t, 0, state["memory.in_use"])
	assert.Contains(t, state, "config")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "plain GET is not an upgrade")
}

func TestBridgeMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics = false
	b, err := New(cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBridgeRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Strategy = "ring"
	_, err := New(cfg, WithLogger(zap.NewNop()))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestBridgeRunTwice(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	b, err := New(testConfig(), WithLogger(zap.NewNop()), WithListener(ln))
	require.NoError(t, err)
	runBridge(t, b, Echo(nil, time.Millisecond))
	assert.Equal(t, ln.Addr(), b.Addr())
	assert.ErrorIs(t, b.Run(context.Background(), Echo(nil, time.Millisecond)), ErrAlreadyRunning)
}

func TestConsumerByName(t *testing.T) {
	for _, name := range ConsumerNames() {
		c, err := ConsumerByName(name, nil, time.Millisecond, zap.NewNop())
		require.NoError(t, err, name)
		assert.NotNil(t, c)
	}
	_, err := ConsumerByName("tee", nil, time.Millisecond, zap.NewNop())
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}
