package schedule

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/kilianp07/cpm/core/project"
	"github.com/kilianp07/cpm/core/runlog"
)

// RouterConfig wires the handlers.
type RouterConfig struct {
	Scheduler Scheduler
	Repo      project.Repository
	RunLog    runlog.Store
	// Limiter guards the schedule endpoint when set.
	Limiter *Limiter
	// Token, when non-empty, is required as a Bearer token on every route.
	Token string
}

// NewRouter returns the API mux.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	var run http.Handler = NewScheduleHandler(cfg.Scheduler)
	if cfg.Limiter != nil {
		run = cfg.Limiter.Middleware(run)
	}
	mux.Handle("POST /api/projects/{id}/schedule", run)
	mux.Handle("GET /api/projects/{id}/schedule", NewProjectScheduleHandler(cfg.Repo))
	mux.Handle("GET /api/projects", NewProjectListHandler(cfg.Repo))
	if cfg.RunLog != nil {
		mux.Handle("GET /api/runs", NewRunsHandler(cfg.RunLog))
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if cfg.Token == "" {
		return mux
	}
	return requireToken(cfg.Token, mux)
}

func requireToken(token string, next http.Handler) http.Handler {
	want := []byte(token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" && !validBearer(r.Header.Get("Authorization"), want) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// validBearer compares the bearer credential in constant time.
func validBearer(header string, want []byte) bool {
	got, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), want) == 1
}
