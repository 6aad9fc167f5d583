// File: server/sockopt_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build !linux

package server

import (
	"net"
	"time"
)

func setUserTimeout(net.Conn, time.Duration) error { return nil }
