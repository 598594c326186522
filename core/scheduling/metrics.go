package scheduling

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	runDuration   *prometheus.HistogramVec
	runsTotal     *prometheus.CounterVec
	passIter      *prometheus.HistogramVec
	nonConverged  prometheus.Counter
	activitiesRun prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, *prometheus.HistogramVec, prometheus.Counter, prometheus.Counter) {
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cpm_run_duration_seconds",
			Help:    "Duration of a scheduling run from load to persistence",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpm_runs_total",
			Help: "Number of scheduling runs by result",
		},
		[]string{"result"},
	)
	iter := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cpm_pass_iterations",
			Help:    "Relaxation sweeps used by each pass",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"pass"},
	)
	nc := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cpm_non_converged_total",
			Help: "Number of runs stopped by the iteration budget",
		},
	)
	acts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cpm_activities_scheduled_total",
			Help: "Number of activities written by successful runs",
		},
	)
	return dur, runs, iter, nc, acts
}

func init() {
	runDuration, runsTotal, passIter, nonConverged, activitiesRun = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers scheduling metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(runDuration, runsTotal, passIter, nonConverged, activitiesRun)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	runDuration, runsTotal, passIter, nonConverged, activitiesRun = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
