// File: adapter/static.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package adapter

import "github.com/momentics/wsproxy/api"

// Static stores frames back to back in one fixed region.
//
// A frame is accepted only when it fits between the write cursor and the
// end of the region. Space before the read cursor is recovered only when
// the consumer drains everything and both cursors return to the start.
type Static struct {
	linear
}

// NewStatic allocates a fixed region of the configured capacity.
func NewStatic(opts ...Option) (*Static, error) {
	a := &Static{}
	if err := a.initRegion(KindStatic, opts); err != nil {
		return nil, err
	}
	return a, nil
}

var _ api.BufferAdapter = (*Static)(nil)
