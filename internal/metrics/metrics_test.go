package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netcensus/internal/domain"
)

func TestRecorderRecords(t *testing.T) {
	rec := New(prometheus.NewRegistry())

	rec.ObserveRecord(domain.OutcomeInserted)
	rec.ObserveRecord(domain.OutcomeInserted)
	rec.ObserveRecord(domain.OutcomeMerged)
	rec.ObserveRecord(domain.OutcomeAliased)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.records.WithLabelValues("inserted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.records.WithLabelValues("merged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.records.WithLabelValues("aliased")))
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.records.WithLabelValues("replaced")))
}

func TestRecorderAggregate(t *testing.T) {
	rec := New(prometheus.NewRegistry())

	rec.ObserveAggregate(42, 15*time.Millisecond)
	rec.ObserveAggregate(40, 5*time.Millisecond)

	assert.Equal(t, 40.0, testutil.ToFloat64(rec.devices))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.duration))
}

func TestRecorderRuns(t *testing.T) {
	rec := New(prometheus.NewRegistry())

	rec.ObserveRun(RunSucceeded, 3, 1)
	rec.ObserveRun(RunSkipped, 3, 0)
	rec.ObserveRun(RunFailed, 0, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.runs.WithLabelValues(RunSucceeded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.runs.WithLabelValues(RunSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.runs.WithLabelValues(RunFailed)))
	assert.Equal(t, 3.0, testutil.ToFloat64(rec.rejected))
	assert.Equal(t, 3.0, testutil.ToFloat64(rec.snapshots))
}

func TestRecorderRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := New(reg)
	rec.ObserveRun(RunSucceeded, 1, 0)

	assert.Panics(t, func() { New(reg) })

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "netcensus_runs_total")
	assert.Contains(t, names, "netcensus_inventory_devices")
}
