package adapter

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/momentics/wsproxy/fake"
)

func TestMetricsRecordOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	a := newAdapter(t, KindShifting, WithCapacity(8), WithWaitTimeout(0), WithMetrics(m))

	ingest(t, a, seq(6, 0))
	_ = a.Ingest(fake.NewSource(seq(9, 0)))
	_ = a.Ingest(fake.NewSource(seq(4, 0)))
	readN(t, a, 3)
	ingest(t, a, seq(4, 6)) // needs compaction

	strategy := KindShifting.String()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesTotal.WithLabelValues(strategy, resultAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesTotal.WithLabelValues(strategy, resultTooLarge)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesTotal.WithLabelValues(strategy, resultNoSpace)))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.bytesIngested.WithLabelValues(strategy)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.bytesRead.WithLabelValues(strategy)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compactions.WithLabelValues(strategy)))

	n, err := testutil.GatherAndCount(reg, "wsproxy_adapter_ingest_wait_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.frame(KindStatic, resultAccepted)
		m.ingested(KindStatic, 1)
		m.read(KindStatic, 1)
		m.compacted(KindStatic)
		m.waited(KindStatic, 0)
	})
}
