// File: adapter/base.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// State shared by every strategy: configuration, the ingest lock, the state
// monitor and the sink slot, plus the common reject/receive paths.

package adapter

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sys/cpu"

	"github.com/momentics/wsproxy/api"
)

// ErrReleased is returned by Ingest after the adapter storage was released.
var ErrReleased = errors.New("adapter released")

// Releaser is implemented by adapters whose storage can be handed back to
// the allocator once nothing references the adapter any more.
type Releaser interface {
	Release()
}

type base struct {
	cfg  config
	kind Kind
	log  *zap.Logger

	ingestMu sync.Mutex // one ingest in flight
	mon      monitor    // guards strategy state

	_ cpu.CacheLinePad
	sinkSlot
}

func (b *base) init(kind Kind, opts []Option) {
	b.cfg = buildConfig(opts)
	b.kind = kind
	b.log = b.cfg.log.Named("adapter." + kind.String())
	b.mon.clock = b.cfg.clock
}

// Capacity returns the configured capacity in bytes.
func (b *base) Capacity() int { return b.cfg.capacity }

// Kind returns the strategy implemented by the adapter.
func (b *base) Kind() Kind { return b.kind }

// receive hands dst to the source. Caller commits only on nil error.
func (b *base) receive(src api.FrameSource, dst []byte) error {
	if err := src.ReceiveInto(dst); err != nil {
		b.log.Error("frame receive failed", zap.Int("len", len(dst)), zap.Error(err))
		b.cfg.metrics.frame(b.kind, resultTransportError)
		return fmt.Errorf("%w: %w", api.ErrTransportReceiveFailed, err)
	}
	return nil
}

// receiveEmpty completes a zero-length frame; nothing is committed.
func (b *base) receiveEmpty(src api.FrameSource) error {
	if err := b.receive(src, nil); err != nil {
		return err
	}
	b.cfg.metrics.frame(b.kind, resultAccepted)
	return nil
}

// tooLarge rejects a frame that can never fit. Caller holds no lock.
func (b *base) tooLarge(src api.FrameSource, limit int) error {
	n := src.Len()
	if b.cfg.noSpaceErr == nil {
		return b.drop(src)
	}
	b.log.Debug("frame too large", zap.Int("len", n), zap.Int("capacity", limit))
	b.cfg.metrics.frame(b.kind, resultTooLarge)
	return fmt.Errorf("%w: %d bytes, capacity %d", api.ErrFrameTooLarge, n, limit)
}

// noSpace rejects a frame after the wait budget ran out. Caller holds no lock.
func (b *base) noSpace(src api.FrameSource, allocFailed bool) error {
	if b.cfg.noSpaceErr == nil {
		return b.drop(src)
	}
	b.log.Debug("no space for frame",
		zap.Int("len", src.Len()),
		zap.Duration("timeout", b.cfg.timeout),
		zap.Bool("alloc_failed", allocFailed))
	if allocFailed {
		b.cfg.metrics.frame(b.kind, resultAllocFailure)
		return errors.Join(b.cfg.noSpaceErr, api.ErrAllocationFailure)
	}
	b.cfg.metrics.frame(b.kind, resultNoSpace)
	return b.cfg.noSpaceErr
}

func (b *base) drop(src api.FrameSource) error {
	b.cfg.metrics.frame(b.kind, resultDropped)
	if err := src.Discard(); err != nil {
		return fmt.Errorf("%w: %w", api.ErrTransportReceiveFailed, err)
	}
	return nil
}

func (b *base) accepted(n int) {
	b.cfg.metrics.frame(b.kind, resultAccepted)
	b.cfg.metrics.ingested(b.kind, n)
}
