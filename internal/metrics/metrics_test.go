package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/d4z3x/pingd/internal/probe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveRequest(200)
	m.ObserveRequest(200)
	m.ObserveRequest(400)
	m.ObserveProbe("exec", 10*time.Millisecond, nil)
	m.ObserveProbe("exec", 0, errors.New("timeout"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.probes.WithLabelValues("exec", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.probes.WithLabelValues("exec", "failure")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.latency))
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err)

	first.ObserveRequest(404)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.requests.WithLabelValues("404")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest(200)
	m.ObserveProbe("icmp", time.Millisecond, nil)

	p := probe.ProberFunc(func(context.Context, string, time.Duration) (time.Duration, error) {
		return time.Millisecond, nil
	})
	d, err := Instrument(m, "exec", p).Probe(context.Background(), "h", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Millisecond, d)
}

func TestInstrument(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	boom := errors.New("boom")
	p := Instrument(m, "icmp", probe.ProberFunc(func(context.Context, string, time.Duration) (time.Duration, error) {
		return 0, boom
	}))

	_, err = p.Probe(context.Background(), "h", time.Second)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.probes.WithLabelValues("icmp", "failure")))
}
