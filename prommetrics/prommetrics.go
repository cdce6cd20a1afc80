// Package prommetrics exports journal metrics to Prometheus.
package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/txjournal"
)

// Key constants are exported primarily for documentation reasons.

// Keys for journal metrics.
const (
	AppendsTotalKey            = "txjournal_appends_total"
	AppendBytesTotalKey        = "txjournal_append_bytes_total"
	FailedAppendsTotalKey      = "txjournal_failed_appends_total"
	AppendDurationSecondsKey   = "txjournal_append_duration_seconds"
	RemovedEntriesTotalKey     = "txjournal_removed_entries_total"
	RotationsTotalKey          = "txjournal_segment_rotations_total"
	ReleasesTotalKey           = "txjournal_segment_releases_total"
	RecoveredEntriesKey        = "txjournal_recovered_entries"
	RecoveryDurationSecondsKey = "txjournal_recovery_duration_seconds"
	RecoveryTruncationsKey     = "txjournal_recovery_truncations_total"
)

// Collector implements txjournal.MetricsCollector on Prometheus collectors.
type Collector struct {
	AppendsTotal            *prometheus.CounterVec
	AppendBytesTotal        prometheus.Counter
	FailedAppendsTotal      prometheus.Counter
	AppendDurationSeconds   prometheus.Histogram
	RemovedEntriesTotal     prometheus.Counter
	RotationsTotal          prometheus.Counter
	ReleasesTotal           prometheus.Counter
	RecoveredEntries        prometheus.Gauge
	RecoveryDurationSeconds prometheus.Gauge
	RecoveryTruncations     prometheus.Counter
}

var _ txjournal.MetricsCollector = (*Collector)(nil)

// New builds a Collector and registers it on reg. constLabels are attached
// to every series, which lets several journals share one registry.
func New(reg prometheus.Registerer, constLabels prometheus.Labels) (*Collector, error) {
	c := &Collector{
		AppendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        AppendsTotalKey,
			Help:        "Cumulative number of journal appends by operation.",
			ConstLabels: constLabels,
		}, []string{"op"}),
		AppendBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        AppendBytesTotalKey,
			Help:        "Cumulative number of framed bytes appended.",
			ConstLabels: constLabels,
		}),
		FailedAppendsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        FailedAppendsTotalKey,
			Help:        "Cumulative number of appends that failed to serialize or write.",
			ConstLabels: constLabels,
		}),
		AppendDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        AppendDurationSecondsKey,
			Help:        "Latency of LogOperation, fsync included.",
			Buckets:     prometheus.ExponentialBuckets(0.00005, 2, 16),
			ConstLabels: constLabels,
		}),
		RemovedEntriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        RemovedEntriesTotalKey,
			Help:        "Cumulative number of entries dropped by Remove.",
			ConstLabels: constLabels,
		}),
		RotationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        RotationsTotalKey,
			Help:        "Cumulative number of segment rotations.",
			ConstLabels: constLabels,
		}),
		ReleasesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        ReleasesTotalKey,
			Help:        "Cumulative number of sealed segments deleted.",
			ConstLabels: constLabels,
		}),
		RecoveredEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        RecoveredEntriesKey,
			Help:        "Entries replayed by the last recovery.",
			ConstLabels: constLabels,
		}),
		RecoveryDurationSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        RecoveryDurationSecondsKey,
			Help:        "Duration of the last recovery.",
			ConstLabels: constLabels,
		}),
		RecoveryTruncations: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        RecoveryTruncationsKey,
			Help:        "Cumulative number of recoveries that truncated a corrupt log.",
			ConstLabels: constLabels,
		}),
	}
	if reg != nil {
		for _, col := range c.Collectors() {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// Collectors returns every collector of c.
func (c *Collector) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.AppendsTotal,
		c.AppendBytesTotal,
		c.FailedAppendsTotal,
		c.AppendDurationSeconds,
		c.RemovedEntriesTotal,
		c.RotationsTotal,
		c.ReleasesTotal,
		c.RecoveredEntries,
		c.RecoveryDurationSeconds,
		c.RecoveryTruncations,
	}
}

// RecordAppend implements txjournal.MetricsCollector.
func (c *Collector) RecordAppend(op txjournal.Operation, bytes int, duration time.Duration, err error) {
	c.AppendDurationSeconds.Observe(duration.Seconds())
	if err != nil {
		c.FailedAppendsTotal.Inc()
		return
	}
	c.AppendsTotal.WithLabelValues(op.String()).Inc()
	c.AppendBytesTotal.Add(float64(bytes))
}

// RecordRemove implements txjournal.MetricsCollector.
func (c *Collector) RecordRemove(entries int) {
	c.RemovedEntriesTotal.Add(float64(entries))
}

// RecordRotation implements txjournal.MetricsCollector.
func (c *Collector) RecordRotation() { c.RotationsTotal.Inc() }

// RecordRelease implements txjournal.MetricsCollector.
func (c *Collector) RecordRelease(uint64) { c.ReleasesTotal.Inc() }

// RecordRecovery implements txjournal.MetricsCollector.
func (c *Collector) RecordRecovery(stats txjournal.RecoveryStats) {
	c.RecoveredEntries.Set(float64(stats.Entries))
	c.RecoveryDurationSeconds.Set(stats.Duration.Seconds())
	if stats.Truncated {
		c.RecoveryTruncations.Inc()
	}
}
