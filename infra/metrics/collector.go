package metrics

import (
	"context"

	"github.com/kilianp07/cpm/core/events"
	coremetrics "github.com/kilianp07/cpm/core/metrics"
	"github.com/kilianp07/cpm/infra/logger"
	"github.com/kilianp07/cpm/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed. The returned
// channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Errorf("metrics sink error: %v", err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.ScheduleCompleted:
		return sink.RecordScheduleRun(coremetrics.ScheduleRun{
			RunID:         e.RunID,
			ProjectID:     e.ProjectID,
			Activities:    e.Activities,
			Critical:      e.Critical,
			Iterations:    e.Iterations,
			Converged:     e.Converged,
			Skipped:       e.Skipped,
			ProjectFinish: e.ProjectFinish,
			Duration:      e.Duration,
			Time:          e.Time,
		})
	case events.ScheduleFailed:
		if r, ok := sink.(coremetrics.FailureRecorder); ok {
			msg := ""
			if e.Err != nil {
				msg = e.Err.Error()
			}
			return r.RecordScheduleFailure(coremetrics.ScheduleFailure{
				RunID:     e.RunID,
				ProjectID: e.ProjectID,
				Stage:     e.Stage,
				Error:     msg,
				Duration:  e.Duration,
				Time:      e.Time,
			})
		}
	case events.BatchCompleted:
		if r, ok := sink.(coremetrics.BatchRecorder); ok {
			return r.RecordScheduleBatch(coremetrics.ScheduleBatch{
				Projects:  e.Projects,
				Succeeded: e.Succeeded,
				Failed:    e.Failed,
				Duration:  e.Duration,
				Time:      e.Time,
			})
		}
	}
	return nil
}
