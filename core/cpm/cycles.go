package cpm

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/kilianp07/cpm/core/model"
)

// FindCycles returns the groups of activities that reach each other through
// relationships, including activities linked to themselves. Groups are
// ordered by the position of their first activity in the input.
func FindCycles(activities []model.Activity, relationships []model.Relationship) [][]string {
	index := make(map[string]int64, len(activities))
	g := simple.NewDirectedGraph()
	for i, a := range activities {
		if _, dup := index[a.ID]; dup {
			continue
		}
		index[a.ID] = int64(i)
		g.AddNode(simple.Node(i))
	}

	selfLoop := make(map[int64]bool)
	for _, r := range relationships {
		p, okP := index[r.PredecessorID]
		s, okS := index[r.SuccessorID]
		if !okP || !okS {
			continue
		}
		if p == s {
			selfLoop[p] = true
			continue
		}
		g.SetEdge(simple.Edge{F: simple.Node(p), T: simple.Node(s)})
	}

	var groups [][]int64
	for _, comp := range topo.TarjanSCC(g) {
		if len(comp) == 1 && !selfLoop[comp[0].ID()] {
			continue
		}
		ids := make([]int64, len(comp))
		for i, n := range comp {
			ids[i] = n.ID()
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		groups = append(groups, ids)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })

	out := make([][]string, len(groups))
	for i, grp := range groups {
		names := make([]string, len(grp))
		for j, id := range grp {
			names[j] = activities[id].ID
		}
		out[i] = names
	}
	return out
}
