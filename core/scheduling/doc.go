// Package scheduling runs the CPM engine against stored projects.
//
// The Manager loads a project snapshot, computes the schedule, writes the
// results back through the repository in one unit, and reports the run to
// the run log, the event bus, the metrics sink and the error monitor. Runs
// on the same project are serialised; different projects proceed in
// parallel.
package scheduling
