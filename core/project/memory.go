package project

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/cpm/core/model"
)

type projectData struct {
	project       model.Project
	activities    []model.Activity
	relationships []model.Relationship
}

// MemoryStore is an in-memory Repository. Saves build a new copy of the
// project data and swap it in under the lock, so readers never observe a
// half written schedule.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*projectData
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]*projectData{}}
}

func (s *MemoryStore) LoadSnapshot(ctx context.Context, projectID string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.data[projectID]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	return Snapshot{
		Project:       copyProject(d.project),
		Activities:    copyActivities(d.activities),
		Relationships: append([]model.Relationship(nil), d.relationships...),
	}, nil
}

func (s *MemoryStore) SaveSchedule(ctx context.Context, projectID string, finish time.Time, activities []model.Activity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[projectID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	pos := make(map[string]int, len(d.activities))
	for i, a := range d.activities {
		pos[a.ID] = i
	}
	next := copyActivities(d.activities)
	for _, a := range activities {
		i, ok := pos[a.ID]
		if !ok {
			return fmt.Errorf("activity %s does not belong to project %s", a.ID, projectID)
		}
		next[i] = withSchedule(next[i], a)
	}
	p := copyProject(d.project)
	f := finish
	p.FinishDate = &f
	s.data[projectID] = &projectData{project: p, activities: next, relationships: d.relationships}
	return nil
}

func (s *MemoryStore) ListProjects(ctx context.Context) ([]model.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Project, 0, len(s.data))
	for _, d := range s.data {
		res = append(res, copyProject(d.project))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *MemoryStore) Import(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap.Project.ID == "" {
		return fmt.Errorf("project id is required")
	}
	acts := copyActivities(snap.Activities)
	for i := range acts {
		if err := acts[i].Validate(); err != nil {
			return err
		}
		acts[i].ProjectID = snap.Project.ID
	}
	s.mu.Lock()
	s.data[snap.Project.ID] = &projectData{
		project:       copyProject(snap.Project),
		activities:    acts,
		relationships: append([]model.Relationship(nil), snap.Relationships...),
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// withSchedule copies the scheduler owned fields of src onto dst.
func withSchedule(dst, src model.Activity) model.Activity {
	dst.EarlyStart, dst.EarlyFinish = src.EarlyStart, src.EarlyFinish
	dst.LateStart, dst.LateFinish = src.LateStart, src.LateFinish
	dst.TotalFloat, dst.FreeFloat = src.TotalFloat, src.FreeFloat
	dst.IsCritical = src.IsCritical
	return copyActivity(dst)
}

func copyProject(p model.Project) model.Project {
	if p.FinishDate != nil {
		f := *p.FinishDate
		p.FinishDate = &f
	}
	return p
}

func copyActivities(in []model.Activity) []model.Activity {
	out := make([]model.Activity, len(in))
	for i, a := range in {
		out[i] = copyActivity(a)
	}
	return out
}

// copyActivity detaches the pointer fields so callers cannot alias stored state.
func copyActivity(a model.Activity) model.Activity {
	a.EarlyStart = cloneTime(a.EarlyStart)
	a.EarlyFinish = cloneTime(a.EarlyFinish)
	a.LateStart = cloneTime(a.LateStart)
	a.LateFinish = cloneTime(a.LateFinish)
	a.TotalFloat = cloneInt(a.TotalFloat)
	a.FreeFloat = cloneInt(a.FreeFloat)
	if a.IsCritical != nil {
		c := *a.IsCritical
		a.IsCritical = &c
	}
	return a
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
