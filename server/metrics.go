// File: server/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects connection activity. A nil *Metrics records nothing.
type Metrics struct {
	active   prometheus.Gauge
	accepted prometheus.Counter
	rejected *prometheus.CounterVec
	pending  prometheus.Gauge
	closes   *prometheus.CounterVec
}

// NewMetrics registers the server collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		active: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "wsproxy",
			Subsystem: "server",
			Name:      "connections_active",
			Help:      "Connections with a running read loop.",
		}),
		accepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "wsproxy",
			Subsystem: "server",
			Name:      "connections_total",
			Help:      "Completed WebSocket upgrades.",
		}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wsproxy",
			Subsystem: "server",
			Name:      "upgrades_rejected_total",
			Help:      "Upgrade requests refused, by reason.",
		}, []string{"reason"}),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "wsproxy",
			Subsystem: "server",
			Name:      "accept_queue_depth",
			Help:      "Connections waiting to be accepted.",
		}),
		closes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wsproxy",
			Subsystem: "server",
			Name:      "close_frames_sent_total",
			Help:      "Close frames sent to peers, by close code.",
		}, []string{"code"}),
	}
}

func (m *Metrics) connOpened() {
	if m == nil {
		return
	}
	m.active.Inc()
	m.accepted.Inc()
}

func (m *Metrics) connClosed() {
	if m == nil {
		return
	}
	m.active.Dec()
}

func (m *Metrics) rejectedUpgrade(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) queueDepth(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

func (m *Metrics) closeSent(code uint16) {
	if m == nil {
		return
	}
	m.closes.WithLabelValues(strconv.Itoa(int(code))).Inc()
}
