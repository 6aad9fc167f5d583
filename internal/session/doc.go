// Package session
// Author: momentics <momentics@gmail.com>
//
// Transport-side connection records. A record refers to the shared
// per-connection value only weakly: looking it up never keeps it alive,
// so the owner of the value alone decides when it goes away.
package session
