package project

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/cpm/core/model"
)

// ErrProjectNotFound is returned when the requested project does not exist.
var ErrProjectNotFound = errors.New("project not found")

// Snapshot is a consistent read of one project and its network. It holds
// every relationship whose successor belongs to the project.
type Snapshot struct {
	Project       model.Project        `json:"project"`
	Activities    []model.Activity     `json:"activities"`
	Relationships []model.Relationship `json:"relationships"`
}

// Repository stores projects and their computed schedules.
type Repository interface {
	// LoadSnapshot reads a project with its activities and relationships.
	LoadSnapshot(ctx context.Context, projectID string) (Snapshot, error)
	// SaveSchedule persists the scheduler owned fields of every activity and
	// the project finish date as a single unit. On error nothing is changed.
	SaveSchedule(ctx context.Context, projectID string, finish time.Time, activities []model.Activity) error
	// ListProjects returns every stored project ordered by id.
	ListProjects(ctx context.Context) ([]model.Project, error)
	// Import creates or replaces a project together with its network.
	Import(ctx context.Context, snap Snapshot) error
	Close() error
}
