package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/d4z3x/pingd/internal/probe"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	requests *prometheus.CounterVec
	probes   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New registers the pingd collectors on reg, reusing collectors that are
// already registered there.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pingd_requests_total",
		Help: "Responses written by the ping listener, by status code",
	}, []string{"status"})
	if err := register(reg, requests, &m.requests); err != nil {
		return nil, err
	}

	probes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pingd_probes_total",
		Help: "Reachability probes run, by prober and result",
	}, []string{"prober", "result"})
	if err := register(reg, probes, &m.probes); err != nil {
		return nil, err
	}

	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pingd_probe_latency_seconds",
		Help:    "Round-trip time of successful probes",
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"prober"})
	if err := register(reg, latency, &m.latency); err != nil {
		return nil, err
	}

	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T, dst *T) error {
	if err := reg.Register(c); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return fmt.Errorf("failed to register metric: %w", err)
		}
		existing, ok := are.ExistingCollector.(T)
		if !ok {
			return fmt.Errorf("metric registered with a different type: %w", err)
		}
		*dst = existing
		return nil
	}
	*dst = c
	return nil
}

func (m *Metrics) ObserveRequest(status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveProbe(prober string, latency time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.probes.WithLabelValues(prober, "failure").Inc()
		return
	}
	m.probes.WithLabelValues(prober, "success").Inc()
	m.latency.WithLabelValues(prober).Observe(latency.Seconds())
}

// Instrument records every probe made through p under the given prober label.
func Instrument(m *Metrics, prober string, p probe.Prober) probe.Prober {
	if m == nil {
		return p
	}
	return probe.ProberFunc(func(ctx context.Context, host string, timeout time.Duration) (time.Duration, error) {
		d, err := p.Probe(ctx, host, timeout)
		m.ObserveProbe(prober, d, err)
		return d, err
	})
}
