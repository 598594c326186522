package model

import (
	"fmt"
	"math"
	"time"
)

// Activity is a unit of work in a project schedule. Durations are whole hours.
//
// The schedule fields (early/late dates, floats and the critical flag) are
// nil until the scheduler has run and are replaced as a whole on every run.
type Activity struct {
	ID                string `json:"id"`
	ProjectID         string `json:"project_id"`
	Name              string `json:"name"`
	OriginalDuration  int    `json:"original_duration"`
	RemainingDuration int    `json:"remaining_duration"` // effective scheduling duration

	EarlyStart  *time.Time `json:"early_start,omitempty"`
	EarlyFinish *time.Time `json:"early_finish,omitempty"`
	LateStart   *time.Time `json:"late_start,omitempty"`
	LateFinish  *time.Time `json:"late_finish,omitempty"`
	TotalFloat  *int       `json:"total_float,omitempty"`
	FreeFloat   *int       `json:"free_float,omitempty"`
	IsCritical  *bool      `json:"is_critical,omitempty"`
}

// MaxHours is the largest hour offset from a project start that a
// time.Duration can represent.
const MaxHours = math.MaxInt64 / int64(time.Hour)

// Validate checks the durations are neither negative nor beyond MaxHours.
func (a Activity) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("activity id is required")
	}
	if a.OriginalDuration < 0 {
		return fmt.Errorf("activity %s: original duration must not be negative", a.ID)
	}
	if a.RemainingDuration < 0 {
		return fmt.Errorf("activity %s: remaining duration must not be negative", a.ID)
	}
	if int64(a.OriginalDuration) > MaxHours || int64(a.RemainingDuration) > MaxHours {
		return fmt.Errorf("activity %s: duration exceeds %d hours", a.ID, MaxHours)
	}
	return nil
}

// Scheduled reports whether the scheduler has populated the activity.
func (a Activity) Scheduled() bool {
	return a.EarlyStart != nil && a.LateFinish != nil && a.TotalFloat != nil
}

// ClearSchedule drops every scheduler owned field.
func (a *Activity) ClearSchedule() {
	a.EarlyStart, a.EarlyFinish = nil, nil
	a.LateStart, a.LateFinish = nil, nil
	a.TotalFloat, a.FreeFloat = nil, nil
	a.IsCritical = nil
}

// Hours converts a whole number of hours into a time.Duration.
func Hours(h int) time.Duration {
	return time.Duration(h) * time.Hour
}
