// Package projectfile reads project networks from YAML or JSON documents.
//
// A document names the project, its activities and their relationships:
//
//	project:
//	  name: Warehouse
//	  start_date: 2025-01-06T08:00:00Z
//	activities:
//	  - id: dig
//	    original_duration: 16
//	relationships:
//	  - predecessor: dig
//	    successor: slab
//	    type: FS
//	    lag: 0
//
// Durations and lags are whole hours.
package projectfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	goerrors "github.com/TudorHulban/go-errors"
	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/cpm/core/cpm"
	"github.com/kilianp07/cpm/core/model"
	"github.com/kilianp07/cpm/core/project"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid project file")

// File is a decoded project document.
type File struct {
	Project       ProjectSpec        `json:"project" yaml:"project"`
	Activities    []ActivitySpec     `json:"activities" yaml:"activities"`
	Relationships []RelationshipSpec `json:"relationships" yaml:"relationships"`
}

type ProjectSpec struct {
	// ID is generated when empty.
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name" valid:"required"`
	StartDate string `json:"start_date" yaml:"start_date" valid:"required"`
}

type ActivitySpec struct {
	ID               string `json:"id" yaml:"id" valid:"required"`
	Name             string `json:"name" yaml:"name"`
	OriginalDuration int    `json:"original_duration" yaml:"original_duration"`
	// RemainingDuration defaults to OriginalDuration when omitted.
	RemainingDuration *int `json:"remaining_duration,omitempty" yaml:"remaining_duration,omitempty"`
}

type RelationshipSpec struct {
	ID          string `json:"id" yaml:"id"`
	Predecessor string `json:"predecessor" yaml:"predecessor" valid:"required"`
	Successor   string `json:"successor" yaml:"successor" valid:"required"`
	// Type is FS, SS, FF or SF; empty means FS.
	Type string `json:"type" yaml:"type"`
	Lag  int    `json:"lag" yaml:"lag"`
}

// Decode reads a document in the given format ("yaml" or "json").
// Unknown fields are rejected.
func Decode(r io.Reader, format string) (*File, error) {
	var f File
	switch strings.ToLower(format) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	case "json":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	default:
		return nil, fmt.Errorf("unsupported project file format: %s", format)
	}
	return &f, nil
}

// ReadFile decodes the document at path, choosing the format by extension.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(bytes.NewReader(data), strings.TrimPrefix(filepath.Ext(path), "."))
}

func invalid(caller string, issue error) error {
	return fmt.Errorf("%w: %w", ErrInvalid, goerrors.ErrValidation{Caller: caller, Issue: issue})
}

// Validate checks required fields, durations, relationship types and that
// every relationship references a declared activity.
func (f *File) Validate() error {
	if _, err := govalidator.ValidateStruct(f.Project); err != nil {
		return invalid("project", err)
	}
	if _, err := parseStart(f.Project.StartDate); err != nil {
		return invalid("project", goerrors.ErrInvalidInput{InputName: "start_date"})
	}
	ids := make(map[string]bool, len(f.Activities))
	for i, a := range f.Activities {
		if _, err := govalidator.ValidateStruct(a); err != nil {
			return invalid(fmt.Sprintf("activities[%d]", i), err)
		}
		if ids[a.ID] {
			return invalid("activity "+a.ID, goerrors.ErrInvalidInput{InputName: "duplicate id"})
		}
		ids[a.ID] = true
		if a.OriginalDuration < 0 {
			return invalid("activity "+a.ID, goerrors.ErrNegativeInput{InputName: "original_duration"})
		}
		if a.RemainingDuration != nil && *a.RemainingDuration < 0 {
			return invalid("activity "+a.ID, goerrors.ErrNegativeInput{InputName: "remaining_duration"})
		}
		if !inHours(a.OriginalDuration) {
			return invalid("activity "+a.ID, goerrors.ErrInvalidInput{InputName: "original_duration"})
		}
		if a.RemainingDuration != nil && !inHours(*a.RemainingDuration) {
			return invalid("activity "+a.ID, goerrors.ErrInvalidInput{InputName: "remaining_duration"})
		}
	}
	for i, r := range f.Relationships {
		caller := fmt.Sprintf("relationships[%d]", i)
		if _, err := govalidator.ValidateStruct(r); err != nil {
			return invalid(caller, err)
		}
		if _, err := model.ParseRelationshipType(r.Type); err != nil {
			return invalid(caller, goerrors.ErrInvalidInput{InputName: "type"})
		}
		if l := int64(r.Lag); l > model.MaxHours || l < -model.MaxHours {
			return invalid(caller, goerrors.ErrInvalidInput{InputName: "lag"})
		}
		if !ids[r.Predecessor] {
			return invalid(caller, goerrors.ErrInvalidInput{InputName: "predecessor " + r.Predecessor})
		}
		if !ids[r.Successor] {
			return invalid(caller, goerrors.ErrInvalidInput{InputName: "successor " + r.Successor})
		}
	}
	return nil
}

// inHours reports whether h fits model.MaxHours.
func inHours(h int) bool { return int64(h) <= model.MaxHours }

// Snapshot validates the document and converts it to a project snapshot.
// Missing project and relationship ids are generated. The returned warnings
// list dependency cycles, which the scheduler reports as non-convergence.
func (f *File) Snapshot() (project.Snapshot, []string, error) {
	if err := f.Validate(); err != nil {
		return project.Snapshot{}, nil, err
	}
	start, _ := parseStart(f.Project.StartDate)
	snap := project.Snapshot{
		Project: model.Project{ID: f.Project.ID, Name: f.Project.Name, StartDate: start},
	}
	if snap.Project.ID == "" {
		snap.Project.ID = uuid.NewString()
	}
	for _, a := range f.Activities {
		rem := a.OriginalDuration
		if a.RemainingDuration != nil {
			rem = *a.RemainingDuration
		}
		snap.Activities = append(snap.Activities, model.Activity{
			ID:                a.ID,
			ProjectID:         snap.Project.ID,
			Name:              a.Name,
			OriginalDuration:  a.OriginalDuration,
			RemainingDuration: rem,
		})
	}
	for _, r := range f.Relationships {
		typ, _ := model.ParseRelationshipType(r.Type)
		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}
		snap.Relationships = append(snap.Relationships, model.Relationship{
			ID:            id,
			PredecessorID: r.Predecessor,
			SuccessorID:   r.Successor,
			Type:          typ,
			Lag:           r.Lag,
		})
	}
	var warnings []string
	for _, c := range cpm.FindCycles(snap.Activities, snap.Relationships) {
		warnings = append(warnings, "dependency cycle: "+strings.Join(c, " -> "))
	}
	return snap, warnings, nil
}

// parseStart accepts RFC 3339 timestamps and plain dates (UTC midnight).
func parseStart(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}
