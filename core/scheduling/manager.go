package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/cpm/core/cpm"
	"github.com/kilianp07/cpm/core/events"
	"github.com/kilianp07/cpm/core/logger"
	"github.com/kilianp07/cpm/core/model"
	coremon "github.com/kilianp07/cpm/core/monitoring"
	"github.com/kilianp07/cpm/core/project"
	"github.com/kilianp07/cpm/core/runlog"
	"github.com/kilianp07/cpm/internal/eventbus"
)

// Outcome describes a completed scheduling run.
type Outcome struct {
	RunID     string `json:"run_id"`
	ProjectID string `json:"project_id"`
	// Empty is set when the project has no activities. Nothing is persisted.
	Empty      bool             `json:"empty"`
	Result     *cpm.Result      `json:"result,omitempty"`
	Activities []model.Activity `json:"activities,omitempty"`
	Duration   time.Duration    `json:"duration"`
}

// Manager schedules projects stored in a repository.
type Manager struct {
	repo   project.Repository
	cfg    Config
	logger logger.Logger
	bus    eventbus.EventBus
	locks  keyedMutex
	now    func() time.Time

	mu    sync.Mutex
	store runlog.Store
}

// NewManager creates a manager. Run outcomes are published on bus, which may
// be nil when nothing consumes them.
func NewManager(repo project.Repository, cfg Config, bus eventbus.EventBus, log logger.Logger) (*Manager, error) {
	if repo == nil || log == nil {
		return nil, fmt.Errorf("scheduling: nil parameter provided to NewManager")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		repo:   repo,
		cfg:    cfg,
		logger: log,
		bus:    bus,
		store:  runlog.NopStore{},
		now:    time.Now,
	}, nil
}

// SetRunLog configures the store used to persist run records.
func (m *Manager) SetRunLog(store runlog.Store) {
	if store == nil {
		store = runlog.NopStore{}
	}
	m.mu.Lock()
	m.store = store
	m.mu.Unlock()
}

// RunLog returns the configured run log store.
func (m *Manager) RunLog() runlog.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store
}

// Repository exposes the underlying project repository.
func (m *Manager) Repository() project.Repository { return m.repo }

// ScheduleProject computes and persists the schedule of one project.
//
// The stored schedule is either fully replaced or left untouched. With
// strict convergence a run stopped by the iteration budget returns a
// *cpm.ConvergenceError and writes nothing.
func (m *Manager) ScheduleProject(ctx context.Context, projectID string) (*Outcome, error) {
	unlock := m.locks.Lock(projectID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout())
	defer cancel()

	start := m.now()
	runID := uuid.NewString()
	rec := runlog.Record{RunID: runID, ProjectID: projectID, Timestamp: start, Trigger: TriggerFrom(ctx)}

	snap, err := m.repo.LoadSnapshot(ctx, projectID)
	if err != nil {
		err = fmt.Errorf("load project %s: %w", projectID, err)
		m.fail(ctx, rec, "load", err)
		return nil, err
	}
	rec.Activities = len(snap.Activities)
	rec.Relationships = len(snap.Relationships)

	if len(snap.Activities) == 0 {
		m.logger.Infof("project %s has no activities, nothing to schedule", projectID)
		rec.Converged = true
		rec.DurationMS = m.now().Sub(start).Milliseconds()
		m.appendRecord(ctx, rec)
		return &Outcome{RunID: runID, ProjectID: projectID, Empty: true, Duration: m.now().Sub(start)}, nil
	}

	res, err := cpm.Schedule(snap.Project.StartDate, snap.Activities, snap.Relationships, m.cfg.Options())
	if err != nil {
		var ce *cpm.ConvergenceError
		if errors.As(err, &ce) {
			nonConverged.Inc()
			rec.ForwardIterations, rec.BackwardIterations = ce.ForwardIterations, ce.BackwardIterations
		}
		err = fmt.Errorf("schedule project %s: %w", projectID, err)
		m.fail(ctx, rec, "compute", err)
		return nil, err
	}
	passIter.WithLabelValues("forward").Observe(float64(res.ForwardIterations))
	passIter.WithLabelValues("backward").Observe(float64(res.BackwardIterations))
	if !res.Converged {
		nonConverged.Inc()
		m.logger.Warnf("project %s did not converge within %d passes, cycles: %v", projectID, res.MaxIterations, res.Cycles)
	}
	if res.SkippedRelationships > 0 {
		m.logger.Warnf("project %s: skipped %d relationships referencing unknown activities", projectID, res.SkippedRelationships)
	}

	updated := res.Apply(snap.Activities)
	rec.ForwardIterations, rec.BackwardIterations = res.ForwardIterations, res.BackwardIterations
	rec.Converged = res.Converged
	rec.Skipped = res.SkippedRelationships
	rec.Critical = res.CriticalCount()

	if err := m.repo.SaveSchedule(ctx, projectID, res.ProjectFinish, updated); err != nil {
		err = fmt.Errorf("save schedule %s: %w", projectID, err)
		m.fail(ctx, rec, "save", err)
		return nil, err
	}

	elapsed := m.now().Sub(start)
	finish := res.ProjectFinish
	rec.ProjectFinish = &finish
	rec.DurationMS = elapsed.Milliseconds()
	m.appendRecord(ctx, rec)

	runsTotal.WithLabelValues("success").Inc()
	runDuration.WithLabelValues("success").Observe(elapsed.Seconds())
	activitiesRun.Add(float64(len(updated)))
	if m.bus != nil {
		m.bus.Publish(events.ScheduleCompleted{
			RunID:         runID,
			ProjectID:     projectID,
			ProjectFinish: res.ProjectFinish,
			Activities:    len(updated),
			Critical:      rec.Critical,
			CriticalPath:  append([]string(nil), res.CriticalPath...),
			Iterations:    res.ForwardIterations + res.BackwardIterations,
			Converged:     res.Converged,
			Skipped:       res.SkippedRelationships,
			Duration:      elapsed,
			Time:          start,
		})
	}
	m.logger.Debugw("schedule computed", map[string]any{
		"run_id":     runID,
		"project_id": projectID,
		"activities": len(updated),
		"critical":   rec.Critical,
		"finish":     res.ProjectFinish,
		"forward":    res.ForwardIterations,
		"backward":   res.BackwardIterations,
	})
	m.logger.Infof("scheduled project %s: %d activities, finish %s", projectID, len(updated), res.ProjectFinish.Format(time.RFC3339))

	return &Outcome{
		RunID:      runID,
		ProjectID:  projectID,
		Result:     res,
		Activities: updated,
		Duration:   elapsed,
	}, nil
}

// ScheduleAll reschedules every stored project. Failures do not stop the
// batch; they are joined into the returned error. The count of projects
// scheduled successfully is returned alongside.
func (m *Manager) ScheduleAll(ctx context.Context) (int, error) {
	started := m.now()
	projects, err := m.repo.ListProjects(ctx)
	if err != nil {
		return 0, fmt.Errorf("list projects: %w", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
		ok   int
	)
	sem := make(chan struct{}, m.cfg.Parallelism)
	for _, p := range projects {
		if ctx.Err() != nil {
			mu.Lock()
			errs = append(errs, ctx.Err())
			mu.Unlock()
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()
			_, err := m.ScheduleProject(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			ok++
		}(p.ID)
	}
	wg.Wait()
	if m.bus != nil {
		m.bus.Publish(events.BatchCompleted{
			Projects:  len(projects),
			Succeeded: ok,
			Failed:    len(projects) - ok,
			Duration:  m.now().Sub(started),
			Time:      started,
		})
	}
	m.logger.Infof("batch run: %d of %d projects scheduled", ok, len(projects))
	return ok, errors.Join(errs...)
}

// Close releases the run log.
func (m *Manager) Close() error {
	return m.RunLog().Close()
}

func (m *Manager) fail(ctx context.Context, rec runlog.Record, stage string, err error) {
	elapsed := m.now().Sub(rec.Timestamp)
	rec.DurationMS = elapsed.Milliseconds()
	rec.Error = err.Error()
	m.appendRecord(ctx, rec)

	runsTotal.WithLabelValues("failure").Inc()
	runDuration.WithLabelValues("failure").Observe(elapsed.Seconds())
	m.logger.Errorf("scheduling run %s failed at %s: %v", rec.RunID, stage, err)

	if m.bus != nil {
		m.bus.Publish(events.ScheduleFailed{
			RunID:     rec.RunID,
			ProjectID: rec.ProjectID,
			Stage:     stage,
			Err:       err,
			Duration:  elapsed,
			Time:      rec.Timestamp,
		})
	}
	// a missing project is a caller error, not an incident
	if !errors.Is(err, project.ErrProjectNotFound) {
		coremon.CaptureException(err, map[string]string{
			"module":     "scheduling",
			"project_id": rec.ProjectID,
			"stage":      stage,
		})
	}
}

func (m *Manager) appendRecord(ctx context.Context, rec runlog.Record) {
	// the run context may already be expired; the record should still land
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.RunLog().Append(actx, rec); err != nil {
		m.logger.Errorf("run log append failed: %v", err)
	}
}
