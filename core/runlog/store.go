package runlog

import (
	"context"
	"time"
)

// Record captures one scheduling run and its outcome.
type Record struct {
	RunID              string     `json:"run_id"`
	ProjectID          string     `json:"project_id"`
	Timestamp          time.Time  `json:"timestamp"`
	Trigger            string     `json:"trigger,omitempty"`
	DurationMS         int64      `json:"duration_ms"`
	Activities         int        `json:"activities"`
	Relationships      int        `json:"relationships"`
	Critical           int        `json:"critical"`
	ProjectFinish      *time.Time `json:"project_finish,omitempty"`
	ForwardIterations  int        `json:"forward_iterations"`
	BackwardIterations int        `json:"backward_iterations"`
	Converged          bool       `json:"converged"`
	Skipped            int        `json:"skipped_relationships"`
	Error              string     `json:"error,omitempty"`
}

// Failed reports whether the run ended with an error.
func (r Record) Failed() bool { return r.Error != "" }

// Query defines filters for retrieving records. Zero values match everything.
type Query struct {
	Start      time.Time
	End        time.Time
	ProjectID  string
	FailedOnly bool
}

// Match reports whether r passes the filters of q.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.ProjectID != "" && r.ProjectID != q.ProjectID {
		return false
	}
	if q.FailedOnly && !r.Failed() {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error          { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
