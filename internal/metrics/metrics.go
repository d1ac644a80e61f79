// Package metrics exposes aggregation counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"netcensus/internal/domain"
)

// Run statuses reported by the aggregation service
const (
	RunSucceeded = "succeeded"
	RunSkipped   = "skipped"
	RunFailed    = "failed"
)

// Recorder implements the aggregation engine's Observer and tracks
// service-level run outcomes.
type Recorder struct {
	records   *prometheus.CounterVec
	runs      *prometheus.CounterVec
	rejected  prometheus.Counter
	duration  prometheus.Histogram
	devices   prometheus.Gauge
	snapshots prometheus.Gauge
}

// New creates a Recorder and registers its collectors with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netcensus_records_total",
			Help: "Input device records by aggregation outcome.",
		}, []string{"outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netcensus_runs_total",
			Help: "Aggregation runs by status.",
		}, []string{"status"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netcensus_snapshots_rejected_total",
			Help: "Snapshot files that failed to load.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "netcensus_aggregate_duration_seconds",
			Help:    "Time spent folding snapshots into an inventory.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		devices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "netcensus_inventory_devices",
			Help: "Devices in the most recent inventory.",
		}),
		snapshots: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "netcensus_inventory_snapshots",
			Help: "Snapshots merged into the most recent inventory.",
		}),
	}

	reg.MustRegister(r.records, r.runs, r.rejected, r.duration, r.devices, r.snapshots)
	return r
}

// ObserveRecord counts one input record outcome
func (r *Recorder) ObserveRecord(outcome domain.RecordOutcome) {
	r.records.WithLabelValues(string(outcome)).Inc()
}

// ObserveAggregate records a completed fold
func (r *Recorder) ObserveAggregate(devices int, elapsed time.Duration) {
	r.duration.Observe(elapsed.Seconds())
	r.devices.Set(float64(devices))
}

// ObserveRun counts a service run by status
func (r *Recorder) ObserveRun(status string, snapshots, rejected int) {
	r.runs.WithLabelValues(status).Inc()
	r.rejected.Add(float64(rejected))
	if status == RunSucceeded {
		r.snapshots.Set(float64(snapshots))
	}
}
