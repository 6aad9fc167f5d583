package control

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/momentics/wsproxy/adapter"
	"github.com/momentics/wsproxy/api"
	"github.com/momentics/wsproxy/pool"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wsproxy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, adapter.KindCircular, cfg.Kind())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
listen_addr: 127.0.0.1:9000
strategy: single-frame
capacity: 0
wait_timeout: 250ms
drop_on_no_space: true
memory_budget: 65536
subprotocols: [mqtt]
log_level: debug
log_format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, adapter.KindSingleFrame, cfg.Kind())
	assert.Equal(t, 250*time.Millisecond, cfg.WaitTimeout)
	assert.True(t, cfg.DropOnNoSpace)
	assert.Equal(t, []string{"mqtt"}, cfg.Subprotocols)
	assert.Equal(t, "/ws", cfg.Path, "unset keys keep defaults")

	budget, ok := cfg.Allocator().(*pool.Budget)
	require.True(t, ok)
	assert.Equal(t, 65536, budget.Limit())
}

func TestLoadRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":           "capacty: 10\n",
		"bad strategy":          "strategy: ring\n",
		"bounded zero cap":      "strategy: static\ncapacity: 0\n",
		"negative wait":         "wait_timeout: -1s\n",
		"negative user timeout": "tcp_user_timeout: -1s\n",
		"bad level":             "log_level: loud\n",
		"bad format":            "log_format: xml\n",
		"bad path":              "path: ws\n",
	}
	for name, body := range tests {
		_, err := Load(writeConfig(t, body))
		assert.ErrorIs(t, err, api.ErrInvalidArgument, name)
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestYAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = "dynamic"
	cfg.Subprotocols = []string{"chat"}
	data, err := cfg.YAML()
	require.NoError(t, err)
	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestAdapterOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = "static"
	cfg.Capacity = 8
	cfg.WaitTimeout = 0
	cfg.DropOnNoSpace = true

	a, err := adapter.New(cfg.Kind(), cfg.AdapterOptions(pool.Heap{}, zap.NewNop(), nil)...)
	require.NoError(t, err)
	require.NoError(t, a.Ingest(sourceOf(make([]byte, 9))), "dropped, not rejected")
	assert.Zero(t, a.Available())
}

func TestStoreReload(t *testing.T) {
	log, level, err := NewLogger("info", "json")
	require.NoError(t, err)
	defer log.Sync() //nolint:errcheck

	st := NewStore(DefaultConfig(), level)
	var seen []string
	st.OnReload(func(c *Config) { seen = append(seen, c.Strategy) })

	require.NoError(t, st.Reload(writeConfig(t, "log_level: debug\nstrategy: naive\n")))
	assert.Equal(t, zapcore.DebugLevel, level.Level())
	assert.Equal(t, "naive", st.Current().Strategy)
	assert.Equal(t, []string{"naive"}, seen)

	require.Error(t, st.Reload(writeConfig(t, "log_level: loud\n")))
	assert.Equal(t, "naive", st.Current().Strategy)
}

func TestNewLoggerRejects(t *testing.T) {
	_, _, err := NewLogger("loud", "json")
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	_, _, err = NewLogger("info", "xml")
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}
