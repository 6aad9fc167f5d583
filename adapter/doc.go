// Package adapter
// Author: momentics <momentics@gmail.com>
//
// Buffer adapters: strategies for storing inbound WebSocket frames and
// serving them as a non-blocking byte stream under a fixed memory budget.
//
// Six interchangeable strategies implement api.BufferAdapter:
//   - Naive:       one growing slice, no bound (baseline only)
//   - Dynamic:     one allocation per frame, total bounded by capacity
//   - Static:      fixed linear region, cursors reset only when drained
//   - SingleFrame: at most one frame buffered at a time
//   - Shifting:    Static plus compaction of unread bytes to the front
//   - Circular:    fixed ring with wraparound placement and tail compaction
//
// A producer blocked in Ingest waits at most the configured timeout and is
// woken as soon as a Read frees space. Payloads are received straight into
// adapter-owned storage; readers never see a partially received frame.
package adapter
