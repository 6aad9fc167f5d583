// File: adapter/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package adapter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest outcomes recorded in frames_total.
const (
	resultAccepted       = "accepted"
	resultTooLarge       = "too_large"
	resultNoSpace        = "no_space"
	resultDropped        = "dropped"
	resultTransportError = "transport_error"
	resultAllocFailure   = "alloc_failure"
)

// Metrics collects adapter activity. A nil *Metrics records nothing, so
// adapters built without WithMetrics pay only a nil check.
type Metrics struct {
	framesTotal   *prometheus.CounterVec
	bytesIngested *prometheus.CounterVec
	bytesRead     *prometheus.CounterVec
	compactions   *prometheus.CounterVec
	waitSeconds   *prometheus.HistogramVec
}

// NewMetrics registers the adapter collectors with reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		framesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wsproxy",
			Subsystem: "adapter",
			Name:      "frames_total",
			Help:      "Frames offered to Ingest, by strategy and outcome.",
		}, []string{"strategy", "result"}),
		bytesIngested: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wsproxy",
			Subsystem: "adapter",
			Name:      "bytes_ingested_total",
			Help:      "Payload bytes committed to adapter storage.",
		}, []string{"strategy"}),
		bytesRead: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wsproxy",
			Subsystem: "adapter",
			Name:      "bytes_read_total",
			Help:      "Bytes consumed through Read.",
		}, []string{"strategy"}),
		compactions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wsproxy",
			Subsystem: "adapter",
			Name:      "compactions_total",
			Help:      "Times unread bytes were moved to coalesce free space.",
		}, []string{"strategy"}),
		waitSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wsproxy",
			Subsystem: "adapter",
			Name:      "ingest_wait_seconds",
			Help:      "Time Ingest spent waiting for space.",
			Buckets:   []float64{.0001, .001, .01, .05, .1, .5, 1, 3, 10},
		}, []string{"strategy"}),
	}
}

func (m *Metrics) frame(k Kind, result string) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(k.String(), result).Inc()
}

func (m *Metrics) ingested(k Kind, n int) {
	if m == nil {
		return
	}
	m.bytesIngested.WithLabelValues(k.String()).Add(float64(n))
}

func (m *Metrics) read(k Kind, n int) {
	if m == nil {
		return
	}
	m.bytesRead.WithLabelValues(k.String()).Add(float64(n))
}

func (m *Metrics) compacted(k Kind) {
	if m == nil {
		return
	}
	m.compactions.WithLabelValues(k.String()).Inc()
}

func (m *Metrics) waited(k Kind, d time.Duration) {
	if m == nil {
		return
	}
	m.waitSeconds.WithLabelValues(k.String()).Observe(d.Seconds())
}
