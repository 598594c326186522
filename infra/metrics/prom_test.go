package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/cpm/core/metrics"
)

func TestPromSink_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	require.NoError(t, err)

	finish := time.Date(2025, 4, 1, 16, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordScheduleRun(coremetrics.ScheduleRun{ProjectID: "p1", Critical: 3, Converged: true, ProjectFinish: finish, Duration: time.Millisecond}))
	require.NoError(t, s.RecordScheduleRun(coremetrics.ScheduleRun{ProjectID: "p1", Critical: 2, Converged: true, ProjectFinish: finish}))
	require.NoError(t, s.RecordScheduleFailure(coremetrics.ScheduleFailure{ProjectID: "p1", Stage: "save"}))
	require.NoError(t, s.RecordScheduleBatch(coremetrics.ScheduleBatch{Projects: 7}))

	assert.Equal(t, float64(2), testutil.ToFloat64(s.runs.WithLabelValues("p1", "true")))
	assert.Equal(t, float64(2), testutil.ToFloat64(s.critical.WithLabelValues("p1")))
	assert.Equal(t, float64(finish.Unix()), testutil.ToFloat64(s.finish.WithLabelValues("p1")))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.failures.WithLabelValues("p1", "save")))
	assert.Equal(t, float64(7), testutil.ToFloat64(s.batch))
	assert.Equal(t, 1, testutil.CollectAndCount(s.latency))
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	require.NoError(t, err)
	b, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	require.NoError(t, err)

	require.NoError(t, a.RecordScheduleBatch(coremetrics.ScheduleBatch{Projects: 4}))
	assert.Equal(t, float64(4), testutil.ToFloat64(b.batch))
}
