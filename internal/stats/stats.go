// Package stats summarizes recorded probe latencies.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary holds latency figures in milliseconds. Percentiles use the
// empirical quantile of the observed samples.
type Summary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min_ms"`
	Max    float64 `json:"max_ms"`
	Mean   float64 `json:"mean_ms"`
	StdDev float64 `json:"stddev_ms"`
	P50    float64 `json:"p50_ms"`
	P90    float64 `json:"p90_ms"`
	P99    float64 `json:"p99_ms"`
}

// Summarize does not modify latencies. An empty input yields a zero Summary.
func Summarize(latencies []float64) Summary {
	n := len(latencies)
	if n == 0 {
		return Summary{}
	}

	sorted := make([]float64, n)
	copy(sorted, latencies)
	sort.Float64s(sorted)

	s := Summary{
		Count: n,
		Min:   sorted[0],
		Max:   sorted[n-1],
		Mean:  round2(stat.Mean(sorted, nil)),
		P50:   stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90:   stat.Quantile(0.9, stat.Empirical, sorted, nil),
		P99:   stat.Quantile(0.99, stat.Empirical, sorted, nil),
	}
	if n > 1 {
		s.StdDev = round2(stat.StdDev(sorted, nil))
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
