package assignment

import (
	"fmt"

	"github.com/kilianp07/dronecoord/core/model"
)

// Reason classifies a failed assignment.
type Reason string

const (
	ReasonMissionNotFound   Reason = "mission_not_found"
	ReasonNoSuitablePilot   Reason = "no_suitable_pilot"
	ReasonNoSuitableDrone   Reason = "no_suitable_drone"
	ReasonPilotAssignFailed Reason = "pilot_assign_failed"
	ReasonDroneAssignFailed Reason = "drone_assign_failed"
)

// Error is returned by CreateAssignment and HandleUrgentReassignment.
// errors.Is matches the model sentinel implied by Reason as well as any
// error wrapped in Err.
type Error struct {
	Reason    Reason
	MissionID string
	PilotID   string
	DroneID   string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("assignment %s: %s", e.MissionID, e.Reason)
	if e.PilotID != "" {
		msg += " pilot=" + e.PilotID
	}
	if e.DroneID != "" {
		msg += " drone=" + e.DroneID
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is maps the reason onto the shared error taxonomy.
func (e *Error) Is(target error) bool {
	switch e.Reason {
	case ReasonMissionNotFound:
		return target == model.ErrNotFound
	case ReasonNoSuitablePilot, ReasonNoSuitableDrone:
		return target == model.ErrNoSuitableCandidate
	case ReasonPilotAssignFailed, ReasonDroneAssignFailed:
		return target == model.ErrCommitFailed
	}
	return false
}
