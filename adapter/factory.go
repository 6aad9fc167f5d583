// File: adapter/factory.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package adapter

import (
	"fmt"
	"strings"

	"github.com/momentics/wsproxy/api"
)

// Kind selects a buffering strategy.
type Kind int

const (
	KindNaive Kind = iota
	KindDynamic
	KindStatic
	KindSingleFrame
	KindShifting
	KindCircular
)

var kindNames = [...]string{
	KindNaive:       "naive",
	KindDynamic:     "dynamic",
	KindStatic:      "static",
	KindSingleFrame: "single-frame",
	KindShifting:    "shifting",
	KindCircular:    "circular",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Bounded reports whether the strategy enforces a total capacity.
func (k Kind) Bounded() bool {
	return k != KindNaive && k != KindSingleFrame
}

// ParseKind maps a strategy name to its Kind. Matching ignores case, and
// "singleframe" and "single_frame" are accepted for "single-frame".
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "_", "-")
	if name == "singleframe" {
		name = "single-frame"
	}
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown strategy %q", api.ErrInvalidArgument, s)
}

// Kinds lists every strategy in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range kindNames {
		out[i] = Kind(i)
	}
	return out
}

// Factory creates one adapter per accepted connection.
type Factory func() (api.BufferAdapter, error)

// New builds an adapter of the given kind.
func New(kind Kind, opts ...Option) (api.BufferAdapter, error) {
	if err := validate(kind, buildConfig(opts)); err != nil {
		return nil, err
	}
	switch kind {
	case KindNaive:
		return NewNaive(opts...), nil
	case KindDynamic:
		return NewDynamic(opts...), nil
	case KindStatic:
		return NewStatic(opts...)
	case KindSingleFrame:
		return NewSingleFrame(opts...), nil
	case KindShifting:
		return NewShifting(opts...)
	case KindCircular:
		return NewCircular(opts...)
	}
	return nil, fmt.Errorf("%w: strategy %s", api.ErrInvalidArgument, kind)
}

// NewFactory validates the options once and returns a Factory for kind.
func NewFactory(kind Kind, opts ...Option) (Factory, error) {
	if err := validate(kind, buildConfig(opts)); err != nil {
		return nil, err
	}
	return func() (api.BufferAdapter, error) {
		return New(kind, opts...)
	}, nil
}

func validate(kind Kind, cfg config) error {
	if kind < 0 || int(kind) >= len(kindNames) {
		return fmt.Errorf("%w: strategy %s", api.ErrInvalidArgument, kind)
	}
	if kind.Bounded() && cfg.capacity <= 0 {
		return fmt.Errorf("%w: %s needs a positive capacity, got %d", api.ErrInvalidArgument, kind, cfg.capacity)
	}
	if cfg.capacity < 0 {
		return fmt.Errorf("%w: negative capacity %d", api.ErrInvalidArgument, cfg.capacity)
	}
	if cfg.timeout < 0 {
		return fmt.Errorf("%w: negative wait timeout %s", api.ErrInvalidArgument, cfg.timeout)
	}
	if cfg.allocRetry < 0 {
		return fmt.Errorf("%w: negative alloc retry %s", api.ErrInvalidArgument, cfg.allocRetry)
	}
	return nil
}
