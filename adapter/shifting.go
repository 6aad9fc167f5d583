// File: adapter/shifting.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package adapter

import "github.com/momentics/wsproxy/api"

// Shifting is a Static region that compacts on demand.
//
// A frame is accepted once head and tail space together can hold it; when
// the tail alone is too short the unread bytes are moved to the front
// first. Each move costs time proportional to the unread bytes.
type Shifting struct {
	linear
}

// NewShifting allocates a fixed region of the configured capacity.
func NewShifting(opts ...Option) (*Shifting, error) {
	a := &Shifting{linear: linear{compact: true}}
	if err := a.initRegion(KindShifting, opts); err != nil {
		return nil, err
	}
	return a, nil
}

var _ api.BufferAdapter = (*Shifting)(nil)
