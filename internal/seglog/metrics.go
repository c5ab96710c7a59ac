package seglog

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AppendsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "seglog_appends_total",
			Help: "Total number of records appended to the log.",
		},
	)

	AppendedBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "seglog_appended_payload_bytes_total",
			Help: "Total number of payload bytes appended to the log.",
		},
	)

	SyncsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "seglog_syncs_total",
			Help: "Total number of durability barriers issued.",
		},
	)

	SyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seglog_sync_duration_seconds",
			Help:    "Duration of durability barriers in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
	)

	RotationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "seglog_rotations_total",
			Help: "Total number of segment rotations executed.",
		},
	)

	RotationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seglog_rotation_duration_seconds",
			Help:    "Duration of segment rotations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
	)

	RecoveryDiscardedBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "seglog_recovery_discarded_bytes_total",
			Help: "Total number of bytes discarded from damaged log tails during recovery.",
		},
	)

	SegmentsRemovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "seglog_segments_removed_total",
			Help: "Total number of segments removed by retention.",
		},
	)
)

// RegisterMetrics registers all metrics collectors with the given prometheus
// registerer.
func RegisterMetrics(registerer prometheus.Registerer) error {
	metrics := []prometheus.Collector{
		AppendsTotal,
		AppendedBytes,
		SyncsTotal,
		SyncDuration,
		RotationsTotal,
		RotationDuration,
		RecoveryDiscardedBytes,
		SegmentsRemovedTotal,
	}
	for _, metric := range metrics {
		if err := registerer.Register(metric); err != nil {
			return err
		}
	}
	return nil
}
