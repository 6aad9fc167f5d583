// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable frame sources, sinks and allocators
// with error injection.
package fake
