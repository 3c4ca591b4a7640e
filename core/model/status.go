package model

import "strings"

// PilotStatus is the closed set of pilot states.
type PilotStatus string

const (
	PilotAvailable   PilotStatus = "Available"
	PilotAssigned    PilotStatus = "Assigned"
	PilotOnLeave     PilotStatus = "On Leave"
	PilotUnavailable PilotStatus = "Unavailable"
)

var pilotStatuses = []PilotStatus{PilotAvailable, PilotAssigned, PilotOnLeave, PilotUnavailable}

// ParsePilotStatus resolves s case-insensitively to a PilotStatus.
func ParsePilotStatus(s string) (PilotStatus, error) {
	for _, st := range pilotStatuses {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", &ValidationError{Field: "pilot status", Value: s, Allowed: toStrings(pilotStatuses)}
}

// Valid reports whether s is one of the declared pilot states.
func (s PilotStatus) Valid() bool {
	for _, st := range pilotStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// DroneStatus is the closed set of drone states.
type DroneStatus string

const (
	DroneAvailable   DroneStatus = "Available"
	DroneAssigned    DroneStatus = "Assigned"
	DroneMaintenance DroneStatus = "Maintenance"
	DroneUnavailable DroneStatus = "Unavailable"
)

var droneStatuses = []DroneStatus{DroneAvailable, DroneAssigned, DroneMaintenance, DroneUnavailable}

// ParseDroneStatus resolves s case-insensitively to a DroneStatus.
func ParseDroneStatus(s string) (DroneStatus, error) {
	for _, st := range droneStatuses {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", &ValidationError{Field: "drone status", Value: s, Allowed: toStrings(droneStatuses)}
}

// Valid reports whether s is one of the declared drone states.
func (s DroneStatus) Valid() bool {
	for _, st := range droneStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// MissionStatus is the lifecycle state of a mission. The lifecycle itself is
// owned by the record store; the engines only read it.
type MissionStatus string

const (
	MissionPending   MissionStatus = "Pending"
	MissionActive    MissionStatus = "Active"
	MissionCompleted MissionStatus = "Completed"
)

var missionStatuses = []MissionStatus{MissionPending, MissionActive, MissionCompleted}

// ParseMissionStatus resolves s case-insensitively to a MissionStatus.
func ParseMissionStatus(s string) (MissionStatus, error) {
	for _, st := range missionStatuses {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", &ValidationError{Field: "mission status", Value: s, Allowed: toStrings(missionStatuses)}
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

// PilotStatuses lists the valid pilot statuses.
func PilotStatuses() []string { return toStrings(pilotStatuses) }

// DroneStatuses lists the valid drone statuses.
func DroneStatuses() []string { return toStrings(droneStatuses) }
