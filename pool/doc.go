// Package pool
// Author: momentics <momentics@gmail.com>
//
// Memory layer for wsproxy buffer adapters.
// Provides size-classed byte allocation, a hard memory budget modelled on a
// small device heap, and a generic object pool.
// See allocator.go, classpool.go, budget.go for implementation details.
package pool
