package cpm

import (
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/cpm/core/model"
)

// node is the mutable per-run state of one activity. Dates are hour offsets
// from the project start.
type node struct {
	id     string
	dur    int64
	es, ef int64
	ls, lf int64
	in     []link // predecessors
	out    []link // successors
}

// link points at another node of the network.
type link struct {
	other int
	typ   model.RelationshipType
	lag   int64
}

// network is the isolated working set of a single run.
type network struct {
	nodes   []node
	index   map[string]int
	skipped int
}

func newNetwork(activities []model.Activity, relationships []model.Relationship) (*network, error) {
	w := &network{
		nodes: make([]node, len(activities)),
		index: make(map[string]int, len(activities)),
	}
	for i, a := range activities {
		if _, dup := w.index[a.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidActivity, a.ID)
		}
		if a.RemainingDuration < 0 {
			return nil, fmt.Errorf("%w: %q has negative remaining duration", ErrInvalidActivity, a.ID)
		}
		if int64(a.RemainingDuration) > model.MaxHours {
			return nil, fmt.Errorf("%w: %q remaining duration exceeds %d hours", ErrInvalidActivity, a.ID, model.MaxHours)
		}
		w.index[a.ID] = i
		w.nodes[i] = node{id: a.ID, dur: int64(a.RemainingDuration)}
	}
	for _, r := range relationships {
		p, okP := w.index[r.PredecessorID]
		s, okS := w.index[r.SuccessorID]
		if !okP || !okS {
			w.skipped++
			continue
		}
		lag := int64(r.Lag)
		if lag > model.MaxHours || lag < -model.MaxHours {
			return nil, fmt.Errorf("%w: relationship %s -> %s lag exceeds %d hours",
				ErrInvalidActivity, r.PredecessorID, r.SuccessorID, model.MaxHours)
		}
		w.nodes[s].in = append(w.nodes[s].in, link{other: p, typ: r.Type, lag: lag})
		w.nodes[p].out = append(w.nodes[p].out, link{other: s, typ: r.Type, lag: lag})
	}
	return w, nil
}

// Schedule computes early and late dates, floats and criticality for every
// activity. An empty activity set yields an empty result and no error.
//
// With the default options a run that exhausts its pass budget still returns
// its partial result with Converged set to false. In strict mode a
// *ConvergenceError is returned instead.
func Schedule(start time.Time, activities []model.Activity, relationships []model.Relationship, opts Options) (*Result, error) {
	res := &Result{ProjectStart: start, ProjectFinish: start}
	if len(activities) == 0 {
		res.Empty = true
		res.Converged = true
		return res, nil
	}

	w, err := newNetwork(activities, relationships)
	if err != nil {
		return nil, err
	}
	limit := opts.maxIterations(len(w.nodes))
	res.MaxIterations = limit
	res.SkippedRelationships = w.skipped

	fwdIter, fwdOK := w.forward(limit)
	finish := w.projectFinish()
	bwdIter, bwdOK := w.backward(finish, limit)
	if err := w.checkRange(); err != nil {
		return nil, err
	}

	res.ForwardIterations = fwdIter
	res.BackwardIterations = bwdIter
	res.Converged = fwdOK && bwdOK
	res.ProjectFinish = start.Add(time.Duration(finish) * time.Hour)
	res.Activities = w.schedules(start)
	res.CriticalPath = criticalPath(res.Activities)

	if !res.Converged {
		res.Cycles = FindCycles(activities, relationships)
		if opts.StrictConvergence {
			return nil, &ConvergenceError{
				ForwardIterations:  fwdIter,
				BackwardIterations: bwdIter,
				Limit:              limit,
				Cycles:             res.Cycles,
				Result:             res,
			}
		}
	}
	return res, nil
}

// checkRange rejects runs whose dates drift further from the project start
// than a time.Duration can hold.
func (w *network) checkRange() error {
	in := func(h int64) bool { return h <= model.MaxHours && h >= -model.MaxHours }
	for i := range w.nodes {
		n := &w.nodes[i]
		if !in(n.es) || !in(n.ef) || !in(n.ls) || !in(n.lf) {
			return fmt.Errorf("%w: %q dates are more than %d hours from the project start",
				ErrInvalidActivity, n.id, model.MaxHours)
		}
	}
	return nil
}

func (w *network) projectFinish() int64 {
	var finish int64
	for i := range w.nodes {
		if w.nodes[i].ef > finish {
			finish = w.nodes[i].ef
		}
	}
	return finish
}

func (w *network) schedules(start time.Time) []ActivitySchedule {
	at := func(h int64) time.Time { return start.Add(time.Duration(h) * time.Hour) }
	out := make([]ActivitySchedule, len(w.nodes))
	for i := range w.nodes {
		n := &w.nodes[i]
		tf := n.lf - n.ef
		out[i] = ActivitySchedule{
			ActivityID:  n.id,
			EarlyStart:  at(n.es),
			EarlyFinish: at(n.ef),
			LateStart:   at(n.ls),
			LateFinish:  at(n.lf),
			TotalFloat:  int(tf),
			FreeFloat:   int(w.freeFloat(n, tf)),
			IsCritical:  tf <= 0,
		}
	}
	return out
}

// criticalPath lists critical activities ordered by early start.
func criticalPath(s []ActivitySchedule) []string {
	crit := make([]ActivitySchedule, 0, len(s))
	for _, a := range s {
		if a.IsCritical {
			crit = append(crit, a)
		}
	}
	sort.SliceStable(crit, func(i, j int) bool {
		return crit[i].EarlyStart.Before(crit[j].EarlyStart)
	})
	ids := make([]string, len(crit))
	for i, a := range crit {
		ids[i] = a.ActivityID
	}
	return ids
}
