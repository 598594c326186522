// Package events defines the scheduling events emitted on the event bus.
//
// Available event types:
//   - ScheduleCompleted: a project schedule was computed and persisted
//   - ScheduleFailed: a scheduling run ended with an error
//   - BatchCompleted: every stored project was rescheduled
package events
