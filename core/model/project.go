package model

import "time"

// Project owns a set of activities. StartDate anchors the forward pass and
// FinishDate is derived from the latest early finish after scheduling.
type Project struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	StartDate  time.Time  `json:"start_date"`
	FinishDate *time.Time `json:"finish_date,omitempty"`
}
