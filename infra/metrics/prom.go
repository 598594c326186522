package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/cpm/core/metrics"
)

// PromSink records scheduling runs in Prometheus metrics.
type PromSink struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	finish   *prometheus.GaugeVec
	critical *prometheus.GaugeVec
	latency  prometheus.Histogram
	batch    prometheus.Gauge
}

// NewPromSink registers scheduling metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	s, err := NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_runs_total",
			Help: "Total number of completed scheduling runs",
		}, []string{"project_id", "converged"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_failures_total",
			Help: "Total number of failed scheduling runs",
		}, []string{"project_id", "stage"}),
		finish: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "schedule_project_finish_timestamp_seconds",
			Help: "Computed project finish date as a unix timestamp",
		}, []string{"project_id"}),
		critical: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "schedule_critical_activities",
			Help: "Number of critical activities in the latest schedule",
		}, []string{"project_id"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "schedule_run_latency_seconds",
			Help:    "Time to compute and persist a schedule",
			Buckets: prometheus.DefBuckets,
		}),
		batch: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedule_batch_projects",
			Help: "Number of projects handled by the latest batch reschedule",
		}),
	}

	var err error
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.failures, err = register(reg, s.failures); err != nil {
		return nil, err
	}
	if s.finish, err = register(reg, s.finish); err != nil {
		return nil, err
	}
	if s.critical, err = register(reg, s.critical); err != nil {
		return nil, err
	}
	if s.latency, err = register(reg, s.latency); err != nil {
		return nil, err
	}
	if s.batch, err = register(reg, s.batch); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the already registered collector when c is a duplicate.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordScheduleRun updates the per-project gauges and counters.
func (s *PromSink) RecordScheduleRun(r coremetrics.ScheduleRun) error {
	s.runs.WithLabelValues(r.ProjectID, strconv.FormatBool(r.Converged)).Inc()
	s.finish.WithLabelValues(r.ProjectID).Set(float64(r.ProjectFinish.Unix()))
	s.critical.WithLabelValues(r.ProjectID).Set(float64(r.Critical))
	s.latency.Observe(r.Duration.Seconds())
	return nil
}

// RecordScheduleFailure counts failures by stage.
func (s *PromSink) RecordScheduleFailure(f coremetrics.ScheduleFailure) error {
	s.failures.WithLabelValues(f.ProjectID, f.Stage).Inc()
	return nil
}

// RecordScheduleBatch sets the gauge to the number of projects in the batch.
func (s *PromSink) RecordScheduleBatch(b coremetrics.ScheduleBatch) error {
	if s.batch != nil {
		s.batch.Set(float64(b.Projects))
	}
	return nil
}
