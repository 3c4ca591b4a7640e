// Package events defines the events published on the event bus by the
// engines.
//
// Available event types:
//   - AssignmentEvent: outcome of an assignment or urgent reassignment
//   - ConflictScanEvent: result of a full conflict scan
package events
