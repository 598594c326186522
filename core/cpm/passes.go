package cpm

import (
	"math"

	"github.com/kilianp07/cpm/core/model"
)

// earliestStart is the earliest start the link allows for successor n given
// its predecessor p.
func (l link) earliestStart(p, n *node) int64 {
	switch l.typ {
	case model.StartToStart:
		return p.es + l.lag
	case model.FinishToFinish:
		return p.ef + l.lag - n.dur
	case model.StartToFinish:
		return p.es + l.lag - n.dur
	default:
		return p.ef + l.lag
	}
}

// latestFinish is the latest finish the link allows for predecessor n given
// its successor s.
func (l link) latestFinish(n, s *node) int64 {
	switch l.typ {
	case model.StartToStart:
		return s.ls - l.lag + n.dur
	case model.FinishToFinish:
		return s.lf - l.lag
	case model.StartToFinish:
		return s.lf - l.lag + n.dur
	default:
		return s.ls - l.lag
	}
}

// forward relaxes early dates from the project start. It returns the number
// of passes made and whether the last pass left everything unchanged.
func (w *network) forward(limit int) (int, bool) {
	for i := range w.nodes {
		n := &w.nodes[i]
		n.es = 0
		n.ef = n.dur
	}
	iterations := 0
	changed := true
	for changed && iterations < limit {
		changed = false
		iterations++
		for i := range w.nodes {
			n := &w.nodes[i]
			var es int64 // project start floor
			for _, l := range n.in {
				if c := l.earliestStart(&w.nodes[l.other], n); c > es {
					es = c
				}
			}
			if es > n.es {
				n.es = es
				n.ef = es + n.dur
				changed = true
			}
		}
	}
	return iterations, !changed
}

// backward relaxes late dates from the project finish.
func (w *network) backward(finish int64, limit int) (int, bool) {
	for i := range w.nodes {
		n := &w.nodes[i]
		n.lf = finish
		n.ls = finish - n.dur
	}
	iterations := 0
	changed := true
	for changed && iterations < limit {
		changed = false
		iterations++
		for i := range w.nodes {
			n := &w.nodes[i]
			lf := finish
			for _, l := range n.out {
				if c := l.latestFinish(n, &w.nodes[l.other]); c < lf {
					lf = c
				}
			}
			if lf < n.lf {
				n.lf = lf
				n.ls = lf - n.dur
				changed = true
			}
		}
	}
	return iterations, !changed
}

// freeFloat measures the slack before the earliest successor start. Only FS
// links have their lag taken off the successor start.
func (w *network) freeFloat(n *node, totalFloat int64) int64 {
	if len(n.out) == 0 {
		return totalFloat
	}
	minStart := int64(math.MaxInt64)
	for _, l := range n.out {
		st := w.nodes[l.other].es
		if l.typ == model.FinishToStart {
			st -= l.lag
		}
		if st < minStart {
			minStart = st
		}
	}
	return minStart - n.ef
}
