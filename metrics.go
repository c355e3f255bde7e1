package diaggo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see
// package metrics/prom for a Prometheus adapter.
type MetricsCollector interface {
	// RecordMatrix is called after each dense or sparse matrix construction.
	// size is the number of matrix elements or non-zeros produced.
	RecordMatrix(size int64, duration time.Duration, err error)

	// RecordApply is called after each operator application. dim is the
	// length of the input vector.
	RecordApply(dim int64, duration time.Duration, err error)

	// RecordLanczos is called after each Lanczos run.
	RecordLanczos(iterations int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordMatrix(int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordApply(int64, time.Duration, error)  {}
func (NoopMetricsCollector) RecordLanczos(int, time.Duration, error)  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	MatrixCount       atomic.Int64
	MatrixErrors      atomic.Int64
	MatrixElements    atomic.Int64
	ApplyCount        atomic.Int64
	ApplyErrors       atomic.Int64
	ApplyTotalNanos   atomic.Int64
	LanczosCount      atomic.Int64
	LanczosErrors     atomic.Int64
	LanczosIterations atomic.Int64
	LanczosTotalNanos atomic.Int64
}

// RecordMatrix implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMatrix(size int64, _ time.Duration, err error) {
	b.MatrixCount.Add(1)
	if err != nil {
		b.MatrixErrors.Add(1)
		return
	}
	b.MatrixElements.Add(size)
}

// RecordApply implements MetricsCollector.
func (b *BasicMetricsCollector) RecordApply(_ int64, duration time.Duration, err error) {
	b.ApplyCount.Add(1)
	b.ApplyTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ApplyErrors.Add(1)
	}
}

// RecordLanczos implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLanczos(iterations int, duration time.Duration, err error) {
	b.LanczosCount.Add(1)
	b.LanczosIterations.Add(int64(iterations))
	b.LanczosTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LanczosErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		MatrixCount:       b.MatrixCount.Load(),
		MatrixErrors:      b.MatrixErrors.Load(),
		MatrixElements:    b.MatrixElements.Load(),
		ApplyCount:        b.ApplyCount.Load(),
		ApplyErrors:       b.ApplyErrors.Load(),
		LanczosCount:      b.LanczosCount.Load(),
		LanczosErrors:     b.LanczosErrors.Load(),
		LanczosIterations: b.LanczosIterations.Load(),
	}
	if s.ApplyCount > 0 {
		s.ApplyAvgNanos = b.ApplyTotalNanos.Load() / s.ApplyCount
	}
	if s.LanczosCount > 0 {
		s.LanczosAvgNanos = b.LanczosTotalNanos.Load() / s.LanczosCount
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector.
type BasicMetricsStats struct {
	MatrixCount       int64
	MatrixErrors      int64
	MatrixElements    int64
	ApplyCount        int64
	ApplyErrors       int64
	ApplyAvgNanos     int64
	LanczosCount      int64
	LanczosErrors     int64
	LanczosIterations int64
	LanczosAvgNanos   int64
}
