package metrics

import "time"

// ScheduleRun describes one successful scheduling run.
type ScheduleRun struct {
	RunID         string
	ProjectID     string
	Activities    int
	Critical      int
	Iterations    int
	Converged     bool
	Skipped       int
	ProjectFinish time.Time
	Duration      time.Duration
	Time          time.Time
}

// MetricsSink records scheduling runs for observability purposes.
type MetricsSink interface {
	RecordScheduleRun(run ScheduleRun) error
}

// ScheduleFailure describes a run that ended with an error.
type ScheduleFailure struct {
	RunID     string
	ProjectID string
	Stage     string
	Error     string
	Duration  time.Duration
	Time      time.Time
}

// FailureRecorder records failed scheduling runs.
type FailureRecorder interface {
	RecordScheduleFailure(f ScheduleFailure) error
}

// ScheduleBatch summarises a reschedule of every project.
type ScheduleBatch struct {
	Projects  int
	Succeeded int
	Failed    int
	Duration  time.Duration
	Time      time.Time
}

// BatchRecorder records batch reschedules.
type BatchRecorder interface {
	RecordScheduleBatch(b ScheduleBatch) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordScheduleRun(ScheduleRun) error         { return nil }
func (NopSink) RecordScheduleFailure(ScheduleFailure) error { return nil }
func (NopSink) RecordScheduleBatch(ScheduleBatch) error     { return nil }
