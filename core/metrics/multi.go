package metrics

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordScheduleRun forwards the run to all sinks, returning the first error encountered.
func (m *MultiSink) RecordScheduleRun(run ScheduleRun) error {
	for _, s := range m.Sinks {
		if err := s.RecordScheduleRun(run); err != nil {
			return err
		}
	}
	return nil
}

// RecordScheduleFailure forwards failures to sinks that support them.
func (m *MultiSink) RecordScheduleFailure(f ScheduleFailure) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(FailureRecorder); ok {
			if err := rec.RecordScheduleFailure(f); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordScheduleBatch forwards batch summaries to sinks that support them.
func (m *MultiSink) RecordScheduleBatch(b ScheduleBatch) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(BatchRecorder); ok {
			if err := rec.RecordScheduleBatch(b); err != nil {
				return err
			}
		}
	}
	return nil
}
