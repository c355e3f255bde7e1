// Package prom reports diaggo metrics to Prometheus.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements diaggo.MetricsCollector with Prometheus metrics.
type Collector struct {
	ops        *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	elements   prometheus.Histogram
	iterations prometheus.Histogram
}

// New creates a Collector whose metrics are registered with reg. A nil reg
// uses the default registerer.
func New(reg prometheus.Registerer, namespace string) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Collector{
		ops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total operations by kind and result",
		}, []string{"operation", "result"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Operation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 12), // 0.1ms to ~7min
		}, []string{"operation"}),
		elements: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "matrix_elements",
			Help:      "Number of matrix elements per matrix construction",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 10),
		}),
		iterations: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lanczos_iterations",
			Help:      "Number of iterations per Lanczos run",
			Buckets:   []float64{10, 20, 50, 100, 200, 500, 1000},
		}),
	}
}

func (c *Collector) record(op string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.ops.WithLabelValues(op, result).Inc()
	c.duration.WithLabelValues(op).Observe(d.Seconds())
}

// RecordMatrix implements diaggo.MetricsCollector.
func (c *Collector) RecordMatrix(size int64, d time.Duration, err error) {
	c.record("matrix", d, err)
	if err == nil {
		c.elements.Observe(float64(size))
	}
}

// RecordApply implements diaggo.MetricsCollector.
func (c *Collector) RecordApply(_ int64, d time.Duration, err error) {
	c.record("apply", d, err)
}

// RecordLanczos implements diaggo.MetricsCollector.
func (c *Collector) RecordLanczos(iterations int, d time.Duration, err error) {
	c.record("lanczos", d, err)
	if err == nil {
		c.iterations.Observe(float64(iterations))
	}
}
