// File: facade/consumer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Built-in stream consumers run by the accept loop, one per connection.

package facade

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/momentics/wsproxy/api"
	"github.com/momentics/wsproxy/server"
)

// Consumer drains one accepted connection. It returns when the stream ends
// or ctx is cancelled; the accept loop stops the Conn afterwards.
type Consumer func(ctx context.Context, c server.Conn) error

const (
	readChunk  = 4096
	maxLineLen = 64 << 10
)

// Echo writes every received byte back to the peer. Bytes arriving after
// the peer left are drained and dropped. Empty reads are retried every
// poll on clk; a nil clk uses the wall clock.
func Echo(clk clock.Clock, poll time.Duration) Consumer {
	return func(ctx context.Context, c server.Conn) error {
		return pump(ctx, c, clk, poll, func(p []byte) error {
			if _, err := c.Write(p); err != nil && !errors.Is(err, api.ErrNotConnected) {
				return err
			}
			return nil
		})
	}
}

// LogLines logs every newline-terminated record at info level. A trailing
// record without newline is logged when the stream ends; records longer
// than 64 KiB are split.
func LogLines(log *zap.Logger, clk clock.Clock, poll time.Duration) Consumer {
	return func(ctx context.Context, c server.Conn) error {
		l := log.With(zap.String("conn", c.ID()), zap.String("remote", c.RemoteAddr()))
		var line bytes.Buffer
		emit := func() {
			l.Info("line", zap.ByteString("text", line.Bytes()))
			line.Reset()
		}
		err := pump(ctx, c, clk, poll, func(p []byte) error {
			for len(p) > 0 {
				i := bytes.IndexByte(p, '\n')
				if i < 0 {
					line.Write(p)
					if line.Len() >= maxLineLen {
						emit()
					}
					return nil
				}
				line.Write(p[:i])
				emit()
				p = p[i+1:]
			}
			return nil
		})
		if line.Len() > 0 {
			emit()
		}
		return err
	}
}

// ConsumerNames lists the names ConsumerByName accepts.
func ConsumerNames() []string { return []string{"echo", "log-lines"} }

// ConsumerByName returns a built-in consumer.
func ConsumerByName(name string, clk clock.Clock, poll time.Duration, log *zap.Logger) (Consumer, error) {
	switch name {
	case "echo":
		return Echo(clk, poll), nil
	case "log-lines", "loglines":
		return LogLines(log, clk, poll), nil
	}
	return nil, fmt.Errorf("%w: consumer %q", api.ErrInvalidArgument, name)
}

// stream is the read side of server.Conn.
type stream interface {
	Read(p []byte) (int, error)
}

// pump feeds buffered bytes to fn, sleeping poll between empty reads. It
// returns nil at end of stream.
func pump(ctx context.Context, s stream, clk clock.Clock, poll time.Duration, fn func([]byte) error) error {
	if clk == nil {
		clk = clock.New()
	}
	buf := make([]byte, readChunk)
	t := clk.Ticker(poll)
	defer t.Stop()
	for {
		n, err := s.Read(buf)
		if n > 0 {
			if ferr := fn(buf[:n]); ferr != nil {
				return ferr
			}
			continue
		}
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case !errors.Is(err, api.ErrWouldBlock):
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
