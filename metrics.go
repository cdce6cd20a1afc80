package txjournal

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// prommetrics package provides a Prometheus implementation.
//
// Calls happen while the journal holds its write lock, so implementations
// must be fast and must not call back into the journal.
type MetricsCollector interface {
	// RecordAppend is called after each LogOperation.
	// bytes is the framed record size, err is nil if successful.
	RecordAppend(op Operation, bytes int, duration time.Duration, err error)

	// RecordRemove is called after Remove with the number of entries dropped.
	RecordRemove(entries int)

	// RecordRotation is called when a new head segment is opened.
	RecordRotation()

	// RecordRelease is called when a sealed segment is deleted.
	RecordRelease(seq uint64)

	// RecordRecovery is called once when Open finishes replaying the log.
	RecordRecovery(stats RecoveryStats)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAppend(Operation, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRemove(int)                                  {}
func (NoopMetricsCollector) RecordRotation()                                   {}
func (NoopMetricsCollector) RecordRelease(uint64)                              {}
func (NoopMetricsCollector) RecordRecovery(RecoveryStats)                      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AppendCount      atomic.Int64
	AppendErrors     atomic.Int64
	AppendBytes      atomic.Int64
	AppendTotalNanos atomic.Int64
	RemoveCount      atomic.Int64
	RemovedEntries   atomic.Int64
	Rotations        atomic.Int64
	Releases         atomic.Int64
	Recoveries       atomic.Int64
	RecoveredEntries atomic.Int64
	Truncations      atomic.Int64
}

// RecordAppend implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAppend(_ Operation, bytes int, duration time.Duration, err error) {
	b.AppendCount.Add(1)
	b.AppendTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AppendErrors.Add(1)
		return
	}
	b.AppendBytes.Add(int64(bytes))
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(entries int) {
	b.RemoveCount.Add(1)
	b.RemovedEntries.Add(int64(entries))
}

// RecordRotation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRotation() { b.Rotations.Add(1) }

// RecordRelease implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRelease(uint64) { b.Releases.Add(1) }

// RecordRecovery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRecovery(stats RecoveryStats) {
	b.Recoveries.Add(1)
	b.RecoveredEntries.Add(int64(stats.Entries))
	if stats.Truncated {
		b.Truncations.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AppendCount:      b.AppendCount.Load(),
		AppendErrors:     b.AppendErrors.Load(),
		AppendBytes:      b.AppendBytes.Load(),
		AppendAvgNanos:   b.getAvgAppendNanos(),
		RemoveCount:      b.RemoveCount.Load(),
		RemovedEntries:   b.RemovedEntries.Load(),
		Rotations:        b.Rotations.Load(),
		Releases:         b.Releases.Load(),
		Recoveries:       b.Recoveries.Load(),
		RecoveredEntries: b.RecoveredEntries.Load(),
		Truncations:      b.Truncations.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgAppendNanos() int64 {
	count := b.AppendCount.Load()
	if count == 0 {
		return 0
	}
	return b.AppendTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AppendCount      int64
	AppendErrors     int64
	AppendBytes      int64
	AppendAvgNanos   int64
	RemoveCount      int64
	RemovedEntries   int64
	Rotations        int64
	Releases         int64
	Recoveries       int64
	RecoveredEntries int64
	Truncations      int64
}
