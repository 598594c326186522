package events

import "time"

// ScheduleCompleted is published after a schedule has been persisted.
type ScheduleCompleted struct {
	RunID         string
	ProjectID     string
	ProjectFinish time.Time
	Activities    int
	Critical      int
	CriticalPath  []string
	Iterations    int
	Converged     bool
	Skipped       int
	Duration      time.Duration
	Time          time.Time
}

// ScheduleFailed is published when a run could not compute or persist a
// schedule. Stage is "load", "compute" or "save".
type ScheduleFailed struct {
	RunID     string
	ProjectID string
	Stage     string
	Err       error
	Duration  time.Duration
	Time      time.Time
}

// BatchCompleted is published once a reschedule of every project finishes.
type BatchCompleted struct {
	Projects  int
	Succeeded int
	Failed    int
	Duration  time.Duration
	Time      time.Time
}
