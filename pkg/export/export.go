// Package export writes stored schedules as JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/cpm/core/model"
	"github.com/kilianp07/cpm/core/project"
)

// Formats lists the supported output formats.
var Formats = []string{"json", "csv"}

// Write encodes snap in the named format.
func Write(w io.Writer, format string, snap project.Snapshot) error {
	switch format {
	case "json", "":
		return WriteJSON(w, snap)
	case "csv":
		return WriteCSV(w, snap.Activities)
	default:
		return fmt.Errorf("unsupported export format %s", format)
	}
}

// WriteJSON writes the project and its activities as indented JSON.
func WriteJSON(w io.Writer, snap project.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

var csvHeader = []string{
	"id", "name", "remaining_duration",
	"early_start", "early_finish", "late_start", "late_finish",
	"total_float", "free_float", "critical",
}

// WriteCSV writes one row per activity. Unscheduled fields are left empty.
func WriteCSV(w io.Writer, activities []model.Activity) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, a := range activities {
		rec := []string{
			a.ID,
			a.Name,
			strconv.Itoa(a.RemainingDuration),
			formatTime(a.EarlyStart),
			formatTime(a.EarlyFinish),
			formatTime(a.LateStart),
			formatTime(a.LateFinish),
			formatInt(a.TotalFloat),
			formatInt(a.FreeFloat),
			formatBool(a.IsCritical),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func formatBool(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}
