package events

import "time"

// AssignmentEvent is published after every CreateAssignment or
// HandleUrgentReassignment attempt.
type AssignmentEvent struct {
	MissionID string
	PilotID   string
	DroneID   string
	// Action is "assign" or "reassign".
	Action string
	// Reason carries the urgency reason of a reassignment.
	Reason  string
	Success bool
	Err     error
	Time    time.Time
}
