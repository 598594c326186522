package cpm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cpm/core/model"
)

var t0 = time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)

func h(n int) time.Time { return t0.Add(model.Hours(n)) }

func act(id string, dur int) model.Activity {
	return model.Activity{ID: id, OriginalDuration: dur, RemainingDuration: dur}
}

func rel(pred, succ string, typ model.RelationshipType, lag int) model.Relationship {
	return model.Relationship{ID: pred + "-" + succ, PredecessorID: pred, SuccessorID: succ, Type: typ, Lag: lag}
}

func mustSchedule(t *testing.T, acts []model.Activity, rels []model.Relationship) *Result {
	t.Helper()
	res, err := Schedule(t0, acts, rels, DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func get(t *testing.T, res *Result, id string) ActivitySchedule {
	t.Helper()
	s, ok := res.Get(id)
	require.True(t, ok, "missing activity %s", id)
	return s
}

func assertSchedule(t *testing.T, s ActivitySchedule, es, ef, ls, lf, tf int, critical bool) {
	t.Helper()
	assert.Equal(t, h(es), s.EarlyStart, "%s early start", s.ActivityID)
	assert.Equal(t, h(ef), s.EarlyFinish, "%s early finish", s.ActivityID)
	assert.Equal(t, h(ls), s.LateStart, "%s late start", s.ActivityID)
	assert.Equal(t, h(lf), s.LateFinish, "%s late finish", s.ActivityID)
	assert.Equal(t, tf, s.TotalFloat, "%s total float", s.ActivityID)
	assert.Equal(t, critical, s.IsCritical, "%s critical", s.ActivityID)
}

func TestSchedule_Empty(t *testing.T) {
	res, err := Schedule(t0, nil, []model.Relationship{rel("a", "b", model.FinishToStart, 0)}, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, res.Empty)
	assert.Empty(t, res.Activities)
	assert.Equal(t, t0, res.ProjectFinish)
}

func TestSchedule_SingleActivity(t *testing.T) {
	res := mustSchedule(t, []model.Activity{act("a", 40)}, nil)

	assertSchedule(t, get(t, res, "a"), 0, 40, 0, 40, 0, true)
	assert.Equal(t, 0, get(t, res, "a").FreeFloat)
	assert.Equal(t, h(40), res.ProjectFinish)
	assert.True(t, res.Converged)
	assert.Equal(t, []string{"a"}, res.CriticalPath)
}

func TestSchedule_FinishToStartChain(t *testing.T) {
	res := mustSchedule(t,
		[]model.Activity{act("a", 40), act("b", 80)},
		[]model.Relationship{rel("a", "b", model.FinishToStart, 0)})

	a, b := get(t, res, "a"), get(t, res, "b")
	assert.Equal(t, a.EarlyFinish, b.EarlyStart)
	assertSchedule(t, a, 0, 40, 0, 40, 0, true)
	assertSchedule(t, b, 40, 120, 40, 120, 0, true)
	assert.Equal(t, []string{"a", "b"}, res.CriticalPath)
}

func TestSchedule_MergeTakesLongestPath(t *testing.T) {
	res := mustSchedule(t,
		[]model.Activity{act("a", 40), act("b", 80), act("c", 20)},
		[]model.Relationship{
			rel("a", "c", model.FinishToStart, 0),
			rel("b", "c", model.FinishToStart, 0),
		})

	a, b, c := get(t, res, "a"), get(t, res, "b"), get(t, res, "c")
	assert.Equal(t, b.EarlyFinish, c.EarlyStart)
	assertSchedule(t, a, 0, 40, 40, 80, 40, false)
	assertSchedule(t, b, 0, 80, 0, 80, 0, true)
	assertSchedule(t, c, 80, 100, 80, 100, 0, true)
	assert.Equal(t, 40, a.FreeFloat)
	assert.Equal(t, 0, c.FreeFloat)
	assert.Equal(t, []string{"b", "c"}, res.CriticalPath)
}

func TestSchedule_StartToStartLag(t *testing.T) {
	res := mustSchedule(t,
		[]model.Activity{act("a", 40), act("b", 40)},
		[]model.Relationship{rel("a", "b", model.StartToStart, 8)})

	a, b := get(t, res, "a"), get(t, res, "b")
	assert.Equal(t, a.EarlyStart.Add(8*time.Hour), b.EarlyStart)
	assertSchedule(t, b, 8, 48, 8, 48, 0, true)
	assertSchedule(t, a, 0, 40, 0, 40, 0, true)
	// Lag is only taken off FS successor starts when measuring free float.
	assert.Equal(t, -32, a.FreeFloat)
}

func TestSchedule_NegativeLagOverlap(t *testing.T) {
	res := mustSchedule(t,
		[]model.Activity{act("a", 40), act("b", 20)},
		[]model.Relationship{rel("a", "b", model.FinishToStart, -8)})

	a, b := get(t, res, "a"), get(t, res, "b")
	assert.Equal(t, a.EarlyFinish.Add(-8*time.Hour), b.EarlyStart)
	assert.True(t, res.Converged)
	assert.LessOrEqual(t, res.ForwardIterations, res.MaxIterations)
	assertSchedule(t, a, 0, 40, 0, 40, 0, true)
	assertSchedule(t, b, 32, 52, 32, 52, 0, true)
	assert.Equal(t, 0, a.FreeFloat)
}

func TestSchedule_NegativeLagClampedAtProjectStart(t *testing.T) {
	res := mustSchedule(t,
		[]model.Activity{act("a", 10), act("b", 5)},
		[]model.Relationship{rel("a", "b", model.FinishToStart, -20)})

	assert.Equal(t, t0, get(t, res, "b").EarlyStart)
}

func TestSchedule_FinishToFinish(t *testing.T) {
	res := mustSchedule(t,
		[]model.Activity{act("a", 40), act("b", 10)},
		[]model.Relationship{rel("a", "b", model.FinishToFinish, 0)})

	assertSchedule(t, get(t, res, "a"), 0, 40, 0, 40, 0, true)
	assertSchedule(t, get(t, res, "b"), 30, 40, 30, 40, 0, true)
}

func TestSchedule_FinishToFinishLongSuccessor(t *testing.T) {
	res := mustSchedule(t,
		[]model.Activity{act("a", 10), act("b", 40)},
		[]model.Relationship{rel("a", "b", model.FinishToFinish, 0)})

	a := get(t, res, "a")
	assertSchedule(t, a, 0, 10, 30, 40, 30, false)
	assertSchedule(t, get(t, res, "b"), 0, 40, 0, 40, 0, true)
	assert.Equal(t, -10, a.FreeFloat)
}

func TestSchedule_StartToFinish(t *testing.T) {
	res := mustSchedule(t,
		[]model.Activity{act("a", 10), act("b", 5)},
		[]model.Relationship{rel("a", "b", model.StartToFinish, 20)})

	assertSchedule(t, get(t, res, "b"), 15, 20, 15, 20, 0, true)
	assertSchedule(t, get(t, res, "a"), 0, 10, 0, 10, 0, true)
	assert.Equal(t, h(20), res.ProjectFinish)
}

func TestSchedule_HouseBuild(t *testing.T) {
	acts := []model.Activity{
		act("site", 40), act("foundation", 80), act("framing", 120),
		act("roofing", 60), act("plumbing", 80), act("electrical", 80), act("inspection", 0),
	}
	rels := []model.Relationship{
		rel("site", "foundation", model.FinishToStart, 0),
		rel("foundation", "framing", model.FinishToStart, 0),
		rel("framing", "roofing", model.FinishToStart, 0),
		rel("framing", "plumbing", model.StartToStart, 40),
		rel("framing", "electrical", model.StartToStart, 60),
		rel("roofing", "inspection", model.FinishToStart, 0),
		rel("plumbing", "inspection", model.FinishToStart, 0),
		rel("electrical", "inspection", model.FinishToStart, 0),
	}
	res := mustSchedule(t, acts, rels)

	assert.Equal(t, h(300), res.ProjectFinish)
	assertSchedule(t, get(t, res, "site"), 0, 40, 0, 40, 0, true)
	assertSchedule(t, get(t, res, "foundation"), 40, 120, 40, 120, 0, true)
	assertSchedule(t, get(t, res, "framing"), 120, 240, 120, 240, 0, true)
	assertSchedule(t, get(t, res, "roofing"), 240, 300, 240, 300, 0, true)
	assertSchedule(t, get(t, res, "plumbing"), 160, 240, 220, 300, 60, false)
	assertSchedule(t, get(t, res, "electrical"), 180, 260, 220, 300, 40, false)
	assertSchedule(t, get(t, res, "inspection"), 300, 300, 300, 300, 0, true)
	assert.Equal(t, 60, get(t, res, "plumbing").FreeFloat)
	assert.Equal(t, 40, get(t, res, "electrical").FreeFloat)
	assert.Equal(t, []string{"site", "foundation", "framing", "roofing", "inspection"}, res.CriticalPath)
	assert.Equal(t, 5, res.CriticalCount())
}

func TestSchedule_InputOrderDoesNotMatter(t *testing.T) {
	rels := []model.Relationship{
		rel("a", "b", model.FinishToStart, 0),
		rel("b", "c", model.FinishToStart, 0),
		rel("c", "d", model.FinishToStart, 0),
	}
	fwd := mustSchedule(t, []model.Activity{act("a", 1), act("b", 2), act("c", 3), act("d", 4)}, rels)
	rev := mustSchedule(t, []model.Activity{act("d", 4), act("c", 3), act("b", 2), act("a", 1)}, rels)

	assert.True(t, rev.Converged)
	for _, id := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, get(t, fwd, id), get(t, rev, id), id)
	}
	assert.Greater(t, rev.ForwardIterations, fwd.ForwardIterations)
}

func TestSchedule_SkipsUnknownActivities(t *testing.T) {
	res := mustSchedule(t,
		[]model.Activity{act("a", 10)},
		[]model.Relationship{
			rel("ghost", "a", model.FinishToStart, 100),
			rel("a", "phantom", model.FinishToStart, 0),
		})

	assert.Equal(t, 2, res.SkippedRelationships)
	a := get(t, res, "a")
	assertSchedule(t, a, 0, 10, 0, 10, 0, true)
	assert.Equal(t, a.TotalFloat, a.FreeFloat)
}

func TestSchedule_InvalidActivities(t *testing.T) {
	_, err := Schedule(t0, []model.Activity{act("a", 1), act("a", 2)}, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidActivity)

	_, err = Schedule(t0, []model.Activity{act("a", -1)}, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidActivity)
}

func TestSchedule_HourRange(t *testing.T) {
	limit := int(model.MaxHours)

	_, err := Schedule(t0, []model.Activity{act("a", 3_000_000)}, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidActivity)

	_, err = Schedule(t0, []model.Activity{act("a", 1), act("b", 1)},
		[]model.Relationship{rel("a", "b", model.FinishToStart, limit+1)}, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidActivity)

	// each duration fits, the chain does not
	_, err = Schedule(t0, []model.Activity{act("a", limit-10), act("b", 20)},
		[]model.Relationship{rel("a", "b", model.FinishToStart, 0)}, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidActivity)

	res := mustSchedule(t, []model.Activity{act("a", limit)}, nil)
	a := get(t, res, "a")
	assert.Equal(t, model.Hours(limit), a.EarlyFinish.Sub(a.EarlyStart))
	assert.True(t, res.ProjectFinish.After(res.ProjectStart))
}

func TestSchedule_ZeroLagCycleConverges(t *testing.T) {
	res := mustSchedule(t,
		[]model.Activity{act("a", 10), act("b", 20)},
		[]model.Relationship{
			rel("a", "b", model.StartToStart, 0),
			rel("b", "a", model.StartToStart, 0),
		})

	assert.True(t, res.Converged)
	assert.Nil(t, res.Cycles)
	assertSchedule(t, get(t, res, "a"), 0, 10, 0, 10, 0, true)
	assertSchedule(t, get(t, res, "b"), 0, 20, 0, 20, 0, true)
}

func positiveCycle() ([]model.Activity, []model.Relationship) {
	return []model.Activity{act("a", 10), act("b", 10), act("c", 5)},
		[]model.Relationship{
			rel("a", "b", model.FinishToStart, 0),
			rel("b", "a", model.FinishToStart, 0),
		}
}

func TestSchedule_PositiveCycleTruncatesAtCap(t *testing.T) {
	acts, rels := positiveCycle()
	res, err := Schedule(t0, acts, rels, DefaultOptions())
	require.NoError(t, err)

	assert.False(t, res.Converged)
	assert.Equal(t, 6, res.MaxIterations)
	assert.Equal(t, 6, res.ForwardIterations)
	assert.Equal(t, [][]string{{"a", "b"}}, res.Cycles)
	for _, s := range res.Activities {
		a := acts[indexOf(acts, s.ActivityID)]
		assert.Equal(t, model.Hours(a.RemainingDuration), s.EarlyFinish.Sub(s.EarlyStart))
		assert.Equal(t, model.Hours(a.RemainingDuration), s.LateFinish.Sub(s.LateStart))
	}
}

func TestSchedule_PositiveCycleStrict(t *testing.T) {
	acts, rels := positiveCycle()
	res, err := Schedule(t0, acts, rels, Options{StrictConvergence: true})
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotConverged))

	var cerr *ConvergenceError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 6, cerr.Limit)
	assert.Equal(t, [][]string{{"a", "b"}}, cerr.Cycles)
	require.NotNil(t, cerr.Result)
	assert.False(t, cerr.Result.Converged)
	assert.Contains(t, err.Error(), "did not converge")
}

func TestSchedule_IterationFactor(t *testing.T) {
	acts, rels := positiveCycle()
	res, err := Schedule(t0, acts, rels, Options{IterationFactor: 5})
	require.NoError(t, err)
	assert.Equal(t, 15, res.MaxIterations)
	assert.Equal(t, 15, res.ForwardIterations)
}

func TestSchedule_Idempotent(t *testing.T) {
	acts := []model.Activity{act("a", 40), act("b", 80), act("c", 20), act("d", 16)}
	rels := []model.Relationship{
		rel("a", "c", model.FinishToStart, 0),
		rel("b", "c", model.FinishToFinish, 4),
		rel("c", "d", model.StartToFinish, 30),
	}
	first := mustSchedule(t, acts, rels)
	updated := first.Apply(acts)
	second := mustSchedule(t, updated, rels)
	assert.Equal(t, first, second)
}

func TestResult_Apply(t *testing.T) {
	acts := []model.Activity{act("a", 40), act("b", 8)}
	res := mustSchedule(t, acts[:1], nil)

	out := res.Apply(acts)
	require.Len(t, out, 2)
	require.True(t, out[0].Scheduled())
	assert.Equal(t, h(40), *out[0].EarlyFinish)
	assert.Equal(t, 0, *out[0].TotalFloat)
	assert.True(t, *out[0].IsCritical)
	assert.False(t, out[1].Scheduled())
	assert.False(t, acts[0].Scheduled(), "input must not be mutated")
}

func indexOf(acts []model.Activity, id string) int {
	for i, a := range acts {
		if a.ID == id {
			return i
		}
	}
	return -1
}
