package embfuse

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordLoad is called after each pretrained load step.
	// bytes is the size of the installed table; err is nil if successful.
	RecordLoad(feature string, bytes int64, duration time.Duration, err error)

	// RecordApply is called after each Apply. n is the number of IDs looked up.
	RecordApply(n int, duration time.Duration, err error)

	// RecordBackward is called after each Backward.
	RecordBackward(n int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLoad(string, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordApply(int, time.Duration, error)          {}
func (NoopMetricsCollector) RecordBackward(int, time.Duration, error)       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	LoadCount       atomic.Int64
	LoadErrors      atomic.Int64
	LoadedBytes     atomic.Int64
	ApplyCount      atomic.Int64
	ApplyErrors     atomic.Int64
	ApplyIDs        atomic.Int64
	ApplyTotalNanos atomic.Int64
	BackwardCount   atomic.Int64
	BackwardErrors  atomic.Int64
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(_ string, bytes int64, _ time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
		return
	}
	b.LoadedBytes.Add(bytes)
}

// RecordApply implements MetricsCollector.
func (b *BasicMetricsCollector) RecordApply(n int, duration time.Duration, err error) {
	b.ApplyCount.Add(1)
	b.ApplyIDs.Add(int64(n))
	b.ApplyTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ApplyErrors.Add(1)
	}
}

// RecordBackward implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBackward(_ int, _ time.Duration, err error) {
	b.BackwardCount.Add(1)
	if err != nil {
		b.BackwardErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	stats := BasicMetricsStats{
		LoadCount:      b.LoadCount.Load(),
		LoadErrors:     b.LoadErrors.Load(),
		LoadedBytes:    b.LoadedBytes.Load(),
		ApplyCount:     b.ApplyCount.Load(),
		ApplyErrors:    b.ApplyErrors.Load(),
		ApplyIDs:       b.ApplyIDs.Load(),
		BackwardCount:  b.BackwardCount.Load(),
		BackwardErrors: b.BackwardErrors.Load(),
	}
	if stats.ApplyCount > 0 {
		stats.ApplyAvgNanos = b.ApplyTotalNanos.Load() / stats.ApplyCount
	}
	return stats
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	LoadCount      int64
	LoadErrors     int64
	LoadedBytes    int64
	ApplyCount     int64
	ApplyErrors    int64
	ApplyIDs       int64
	ApplyAvgNanos  int64
	BackwardCount  int64
	BackwardErrors int64
}
