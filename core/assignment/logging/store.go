// Package logging keeps an append-only audit trail of assignment steps:
// pilot and drone commits, rollbacks and the freeing of holders during an
// urgent reassignment.
package logging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Audited actions.
const (
	ActionAssignPilot   = "assign_pilot"
	ActionAssignDrone   = "assign_drone"
	ActionRollback      = "rollback_pilot"
	ActionRollbackDrone = "rollback_drone"
	ActionFreePilot     = "free_pilot"
	ActionFreeDrone     = "free_drone"
	ActionAssign        = "assign"
	ActionReassign      = "reassign"
)

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// LogRecord captures one assignment step.
type LogRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	MissionID string    `json:"mission_id"`
	PilotID   string    `json:"pilot_id,omitempty"`
	DroneID   string    `json:"drone_id,omitempty"`
	Outcome   string    `json:"outcome"`
	// Reason holds the failure reason or the urgency reason of a reassignment.
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

// NewRecord stamps a record with a fresh id and the current time.
func NewRecord(action, missionID string) LogRecord {
	return LogRecord{ID: uuid.NewString(), Timestamp: time.Now().UTC(), Action: action, MissionID: missionID}
}

// LogQuery defines filters for retrieving records. Zero values match
// everything.
type LogQuery struct {
	Start     time.Time
	End       time.Time
	MissionID string
	// EntityID matches either the pilot or the drone id.
	EntityID string
	Action   string
}

// Matches reports whether r satisfies every filter of q.
func (q LogQuery) Matches(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.MissionID != "" && r.MissionID != q.MissionID {
		return false
	}
	if q.EntityID != "" && r.PilotID != q.EntityID && r.DroneID != q.EntityID {
		return false
	}
	if q.Action != "" && r.Action != q.Action {
		return false
	}
	return true
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, LogRecord) error { return nil }
func (NopStore) Query(context.Context, LogQuery) ([]LogRecord, error) {
	return nil, nil
}
func (NopStore) Close() error { return nil }
