package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/momentics/wsproxy/control"
	"github.com/momentics/wsproxy/facade"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStrategies(t *testing.T) {
	out, err := execute(t, "", "strategies")
	require.NoError(t, err)
	for _, name := range []string{"naive", "dynamic", "static", "single-frame", "shifting", "circular"} {
		assert.Contains(t, out, name)
	}
}

func TestVersionShort(t *testing.T) {
	out, err := execute(t, "", "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, facade.Info.Version+"\n", out)
}

func TestServeRejectsBadFlags(t *testing.T) {
	_, err := execute(t, "", "serve", "--strategy", "ring")
	assert.Error(t, err)
	_, err = execute(t, "", "serve", "--consumer", "tee", "--listen", "127.0.0.1:0")
	assert.Error(t, err)
}

func TestSendEchoes(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.AcceptInterval = time.Millisecond
	cfg.PollInterval = time.Millisecond
	b, err := facade.New(cfg, facade.WithLogger(zap.NewNop()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, facade.Echo(b.Clock(), cfg.PollInterval)) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()
	<-b.Ready()

	out, err := execute(t, "one\ntwo\n", "send", "--url", "ws://"+b.Addr().String()+"/ws", "--wait", "300ms")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", out)
}
