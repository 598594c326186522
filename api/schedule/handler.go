// Package schedule exposes the scheduler over HTTP.
//
//	POST /api/projects/{id}/schedule  run the scheduler and return the outcome
//	GET  /api/projects/{id}/schedule  return the stored schedule
//	GET  /api/projects                list projects
//	GET  /api/runs                    query the run log
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/kilianp07/cpm/core/cpm"
	"github.com/kilianp07/cpm/core/model"
	"github.com/kilianp07/cpm/core/project"
	"github.com/kilianp07/cpm/core/runlog"
	"github.com/kilianp07/cpm/core/scheduling"
)

// Scheduler runs the scheduler for a single project.
type Scheduler interface {
	ScheduleProject(ctx context.Context, projectID string) (*scheduling.Outcome, error)
}

type errorBody struct {
	Error  string     `json:"error"`
	Cycles [][]string `json:"cycles,omitempty"`
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps scheduler errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error()}
	status := http.StatusInternalServerError
	var ce *cpm.ConvergenceError
	switch {
	case errors.Is(err, project.ErrProjectNotFound):
		status = http.StatusNotFound
	case errors.As(err, &ce):
		status = http.StatusConflict
		body.Cycles = ce.Cycles
	case errors.Is(err, cpm.ErrInvalidActivity):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, body)
}

// NewScheduleHandler runs the scheduler for the project named in the path.
func NewScheduleHandler(s Scheduler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := scheduling.WithTrigger(r.Context(), "http")
		out, err := s.ScheduleProject(ctx, r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	})
}

// NewProjectScheduleHandler returns the stored project and its activities.
func NewProjectScheduleHandler(repo project.Repository) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap, err := repo.LoadSnapshot(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})
}

// NewProjectListHandler lists the stored projects.
func NewProjectListHandler(repo project.Repository) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		list, err := repo.ListProjects(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if list == nil {
			list = []model.Project{}
		}
		writeJSON(w, http.StatusOK, list)
	})
}

// NewRunsHandler returns run log records matching the query parameters
// start, end (RFC3339), project_id and failed.
func NewRunsHandler(store runlog.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := runlog.Query{ProjectID: r.URL.Query().Get("project_id")}
		if s := r.URL.Query().Get("start"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid start", http.StatusBadRequest)
				return
			}
			q.Start = t
		}
		if s := r.URL.Query().Get("end"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid end", http.StatusBadRequest)
				return
			}
			q.End = t
		}
		q.FailedOnly = r.URL.Query().Get("failed") == "true"
		records, err := store.Query(r.Context(), q)
		if err != nil {
			writeError(w, err)
			return
		}
		if records == nil {
			records = []runlog.Record{}
		}
		writeJSON(w, http.StatusOK, records)
	})
}
