package metrics

import (
	"time"

	"github.com/kilianp07/dronecoord/core/model"
)

// Assignment outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Assignment actions.
const (
	ActionAssign   = "assign"
	ActionReassign = "reassign"
)

// AssignmentResult describes one completed CreateAssignment or urgent
// reassignment attempt.
type AssignmentResult struct {
	MissionID string
	PilotID   string
	DroneID   string
	Action    string
	Outcome   string
	// Reason is the failure reason, empty on success.
	Reason   string
	Duration time.Duration
	Time     time.Time
}

// MetricsSink records assignment results for observability purposes.
type MetricsSink interface {
	RecordAssignment(res AssignmentResult) error
}

// RollbackEvent is emitted when a partial pilot or drone commit is
// compensated. Exactly one of PilotID and DroneID is set.
type RollbackEvent struct {
	MissionID string
	PilotID   string
	DroneID   string
	Succeeded bool
	Error     string
	Time      time.Time
}

// RollbackRecorder records compensating rollbacks.
type RollbackRecorder interface {
	RecordRollback(ev RollbackEvent) error
}

// ConflictScan summarises one conflict detection pass.
type ConflictScan struct {
	Counts   map[model.ConflictKind]int
	Total    int
	Duration time.Duration
	Time     time.Time
}

// ConflictRecorder records conflict scans.
type ConflictRecorder interface {
	RecordConflictScan(scan ConflictScan) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordAssignment(AssignmentResult) error { return nil }
func (NopSink) RecordRollback(RollbackEvent) error      { return nil }
func (NopSink) RecordConflictScan(ConflictScan) error   { return nil }
