package cpm

import (
	"time"

	"github.com/kilianp07/cpm/core/model"
)

// DefaultIterationFactor bounds each pass to factor x activity count sweeps.
const DefaultIterationFactor = 2

// Options tunes a scheduling run.
type Options struct {
	// IterationFactor multiplies the activity count to obtain the pass budget.
	IterationFactor int `json:"iteration_factor" yaml:"iteration_factor"`
	// StrictConvergence turns a run that hits the pass budget into an error
	// instead of returning the partial result.
	StrictConvergence bool `json:"strict_convergence" yaml:"strict_convergence"`
}

// DefaultOptions returns the permissive options used when nothing is configured.
func DefaultOptions() Options {
	return Options{IterationFactor: DefaultIterationFactor}
}

func (o Options) maxIterations(n int) int {
	f := o.IterationFactor
	if f <= 0 {
		f = DefaultIterationFactor
	}
	return f * n
}

// ActivitySchedule holds the computed dates and floats of one activity.
type ActivitySchedule struct {
	ActivityID  string    `json:"activity_id"`
	EarlyStart  time.Time `json:"early_start"`
	EarlyFinish time.Time `json:"early_finish"`
	LateStart   time.Time `json:"late_start"`
	LateFinish  time.Time `json:"late_finish"`
	TotalFloat  int       `json:"total_float"` // hours
	FreeFloat   int       `json:"free_float"`  // hours
	IsCritical  bool      `json:"is_critical"`
}

// Result is the outcome of a scheduling run.
type Result struct {
	ProjectStart  time.Time          `json:"project_start"`
	ProjectFinish time.Time          `json:"project_finish"`
	Activities    []ActivitySchedule `json:"activities"` // input order
	CriticalPath  []string           `json:"critical_path"`

	ForwardIterations  int  `json:"forward_iterations"`
	BackwardIterations int  `json:"backward_iterations"`
	MaxIterations      int  `json:"max_iterations"`
	Converged          bool `json:"converged"`

	// SkippedRelationships counts links referencing unknown activities.
	SkippedRelationships int `json:"skipped_relationships"`
	// Cycles lists the cyclic groups of activities when a pass did not converge.
	Cycles [][]string `json:"cycles,omitempty"`
	// Empty is set when there was nothing to schedule.
	Empty bool `json:"empty"`
}

// Get returns the schedule of the given activity.
func (r *Result) Get(id string) (ActivitySchedule, bool) {
	for _, s := range r.Activities {
		if s.ActivityID == id {
			return s, true
		}
	}
	return ActivitySchedule{}, false
}

// CriticalCount returns the number of critical activities.
func (r *Result) CriticalCount() int {
	n := 0
	for _, s := range r.Activities {
		if s.IsCritical {
			n++
		}
	}
	return n
}

// Apply copies the computed fields onto the matching activities and returns
// the updated slice. Activities absent from the result are left untouched.
func (r *Result) Apply(activities []model.Activity) []model.Activity {
	byID := make(map[string]ActivitySchedule, len(r.Activities))
	for _, s := range r.Activities {
		byID[s.ActivityID] = s
	}
	out := make([]model.Activity, len(activities))
	for i, a := range activities {
		if s, ok := byID[a.ID]; ok {
			es, ef, ls, lf := s.EarlyStart, s.EarlyFinish, s.LateStart, s.LateFinish
			tf, ff, crit := s.TotalFloat, s.FreeFloat, s.IsCritical
			a.EarlyStart, a.EarlyFinish = &es, &ef
			a.LateStart, a.LateFinish = &ls, &lf
			a.TotalFloat, a.FreeFloat = &tf, &ff
			a.IsCritical = &crit
		}
		out[i] = a
	}
	return out
}
