package chunkstore

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    getCounter   prometheus.Counter
//	    getHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordGet(numBytes int, duration time.Duration, err error) {
//	    p.getCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordGet is called after each chunk retrieval.
	// numBytes is the chunk payload size, duration is the total time taken,
	// err is nil if successful.
	RecordGet(numBytes int, duration time.Duration, err error)

	// RecordPut is called after each chunk store operation.
	RecordPut(numBytes int, duration time.Duration, err error)

	// RecordHas is called after each chunk existence check.
	RecordHas(duration time.Duration, err error)

	// RecordList is called after each chunk listing.
	// count is the number of chunk identifiers returned.
	RecordList(count int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordGet(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordPut(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordHas(time.Duration, error)       {}
func (NoopMetricsCollector) RecordList(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	GetCount      atomic.Int64
	GetErrors     atomic.Int64
	GetBytes      atomic.Int64
	GetTotalNanos atomic.Int64
	PutCount      atomic.Int64
	PutErrors     atomic.Int64
	PutBytes      atomic.Int64
	PutTotalNanos atomic.Int64
	HasCount      atomic.Int64
	HasErrors     atomic.Int64
	ListCount     atomic.Int64
	ListErrors    atomic.Int64
	ListKeys      atomic.Int64
}

// RecordGet implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGet(numBytes int, duration time.Duration, err error) {
	b.GetCount.Add(1)
	b.GetTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.GetErrors.Add(1)
	} else {
		b.GetBytes.Add(int64(numBytes))
	}
}

// RecordPut implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPut(numBytes int, duration time.Duration, err error) {
	b.PutCount.Add(1)
	b.PutTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PutErrors.Add(1)
	} else {
		b.PutBytes.Add(int64(numBytes))
	}
}

// RecordHas implements MetricsCollector.
func (b *BasicMetricsCollector) RecordHas(duration time.Duration, err error) {
	b.HasCount.Add(1)
	if err != nil {
		b.HasErrors.Add(1)
	}
}

// RecordList implements MetricsCollector.
func (b *BasicMetricsCollector) RecordList(count int, duration time.Duration, err error) {
	b.ListCount.Add(1)
	if err != nil {
		b.ListErrors.Add(1)
	} else {
		b.ListKeys.Add(int64(count))
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		GetCount:    b.GetCount.Load(),
		GetErrors:   b.GetErrors.Load(),
		GetBytes:    b.GetBytes.Load(),
		GetAvgNanos: b.getAvgGetNanos(),
		PutCount:    b.PutCount.Load(),
		PutErrors:   b.PutErrors.Load(),
		PutBytes:    b.PutBytes.Load(),
		PutAvgNanos: b.getAvgPutNanos(),
		HasCount:    b.HasCount.Load(),
		HasErrors:   b.HasErrors.Load(),
		ListCount:   b.ListCount.Load(),
		ListErrors:  b.ListErrors.Load(),
		ListKeys:    b.ListKeys.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgGetNanos() int64 {
	count := b.GetCount.Load()
	if count == 0 {
		return 0
	}
	return b.GetTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgPutNanos() int64 {
	count := b.PutCount.Load()
	if count == 0 {
		return 0
	}
	return b.PutTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	GetCount    int64
	GetErrors   int64
	GetBytes    int64
	GetAvgNanos int64
	PutCount    int64
	PutErrors   int64
	PutBytes    int64
	PutAvgNanos int64
	HasCount    int64
	HasErrors   int64
	ListCount   int64
	ListErrors  int64
	ListKeys    int64
}
