package schedule

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cpm/core/model"
	"github.com/kilianp07/cpm/core/project"
	"github.com/kilianp07/cpm/core/runlog"
	"github.com/kilianp07/cpm/core/scheduling"
	"github.com/kilianp07/cpm/infra/logger"
)

type memRunLog struct{ recs []runlog.Record }

func (m *memRunLog) Append(_ context.Context, r runlog.Record) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memRunLog) Query(_ context.Context, q runlog.Query) ([]runlog.Record, error) {
	var res []runlog.Record
	for _, r := range m.recs {
		if q.Match(r) {
			res = append(res, r)
		}
	}
	return res, nil
}

func (m *memRunLog) Close() error { return nil }

var start = time.Date(2025, 5, 5, 8, 0, 0, 0, time.UTC)

func seed(t *testing.T, repo project.Repository) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.Import(ctx, project.Snapshot{
		Project: model.Project{ID: "shed", Name: "Shed", StartDate: start},
		Activities: []model.Activity{
			{ID: "slab", OriginalDuration: 8, RemainingDuration: 8},
			{ID: "walls", OriginalDuration: 16, RemainingDuration: 16},
		},
		Relationships: []model.Relationship{{ID: "r", PredecessorID: "slab", SuccessorID: "walls"}},
	}))
	require.NoError(t, repo.Import(ctx, project.Snapshot{
		Project: model.Project{ID: "loop", StartDate: start},
		Activities: []model.Activity{
			{ID: "a", OriginalDuration: 1, RemainingDuration: 1},
			{ID: "b", OriginalDuration: 1, RemainingDuration: 1},
		},
		Relationships: []model.Relationship{
			{ID: "r1", PredecessorID: "a", SuccessorID: "b"},
			{ID: "r2", PredecessorID: "b", SuccessorID: "a"},
		},
	}))
}

func newRouter(t *testing.T, cfg scheduling.Config, rc RouterConfig) (http.Handler, *memRunLog) {
	t.Helper()
	repo := project.NewMemoryStore()
	seed(t, repo)
	mgr, err := scheduling.NewManager(repo, cfg, nil, logger.NopLogger{})
	require.NoError(t, err)
	rl := &memRunLog{}
	mgr.SetRunLog(rl)
	rc.Scheduler, rc.Repo, rc.RunLog = mgr, repo, rl
	return NewRouter(rc), rl
}

func do(h http.Handler, method, target string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestSchedule_RunAndRead(t *testing.T) {
	h, rl := newRouter(t, scheduling.Config{}, RouterConfig{})

	rr := do(h, http.MethodPost, "/api/projects/shed/schedule")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out scheduling.Outcome
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.NotNil(t, out.Result)
	assert.True(t, out.Result.ProjectFinish.Equal(start.Add(24*time.Hour)))
	assert.Equal(t, []string{"slab", "walls"}, out.Result.CriticalPath)

	rr = do(h, http.MethodGet, "/api/projects/shed/schedule")
	require.Equal(t, http.StatusOK, rr.Code)
	var snap project.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	require.NotNil(t, snap.Project.FinishDate)
	require.NotNil(t, snap.Activities[1].EarlyStart)
	assert.True(t, snap.Activities[1].EarlyStart.Equal(start.Add(8*time.Hour)))

	require.Len(t, rl.recs, 1)
	assert.Equal(t, "http", rl.recs[0].Trigger)
}

func TestSchedule_ErrorMapping(t *testing.T) {
	h, _ := newRouter(t, scheduling.Config{StrictConvergence: true}, RouterConfig{})

	rr := do(h, http.MethodPost, "/api/projects/nope/schedule")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(h, http.MethodPost, "/api/projects/loop/schedule")
	require.Equal(t, http.StatusConflict, rr.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, [][]string{{"a", "b"}}, body.Cycles)

	rr = do(h, http.MethodGet, "/api/projects/nope/schedule")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(h, http.MethodGet, "/api/projects/shed/schedule/extra")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSchedule_PermissiveNonConvergence(t *testing.T) {
	h, _ := newRouter(t, scheduling.Config{}, RouterConfig{})
	rr := do(h, http.MethodPost, "/api/projects/loop/schedule")
	require.Equal(t, http.StatusOK, rr.Code)
	var out scheduling.Outcome
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.False(t, out.Result.Converged)
	assert.NotEmpty(t, out.Result.Cycles)
}

func TestProjectsAndRuns(t *testing.T) {
	h, _ := newRouter(t, scheduling.Config{}, RouterConfig{})
	rr := do(h, http.MethodGet, "/api/projects")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []model.Project
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "loop", list[0].ID)

	rr = do(h, http.MethodGet, "/api/runs")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())

	do(h, http.MethodPost, "/api/projects/shed/schedule")
	do(h, http.MethodPost, "/api/projects/missing/schedule")

	rr = do(h, http.MethodGet, "/api/runs?failed=true")
	var recs []runlog.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "missing", recs[0].ProjectID)

	rr = do(h, http.MethodGet, "/api/runs?project_id=shed")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Failed())

	rr = do(h, http.MethodGet, "/api/runs?start=yesterday")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_Token(t *testing.T) {
	h, _ := newRouter(t, scheduling.Config{}, RouterConfig{Token: "tok"})
	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/api/projects").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/projects", "Authorization", "Bearer tok").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/healthz").Code)
	for _, bad := range []string{"Bearer tok2", "Bearer to", "bearer tok", "tok", "Bearer "} {
		assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/api/projects", "Authorization", bad).Code, bad)
	}
}

func TestValidBearer(t *testing.T) {
	want := []byte("s3cret")
	assert.True(t, validBearer("Bearer s3cret", want))
	assert.False(t, validBearer("Bearer s3cre", want))
	assert.False(t, validBearer("Bearer s3cretx", want))
	assert.False(t, validBearer("Basic s3cret", want))
	assert.False(t, validBearer("", want))
}

func TestRouter_RateLimit(t *testing.T) {
	lim := NewLimiter(0.001, 2, time.Minute)
	h, _ := newRouter(t, scheduling.Config{}, RouterConfig{Limiter: lim})
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/api/projects/shed/schedule").Code)
	}
	rr := do(h, http.MethodPost, "/api/projects/shed/schedule")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
	// reads are not limited
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/projects/shed/schedule").Code)
}
