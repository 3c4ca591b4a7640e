package model

import (
	"fmt"
	"strings"
)

// ConflictKind identifies the scan that produced a Conflict.
type ConflictKind string

const (
	ConflictDoubleBooking         ConflictKind = "double_booking"
	ConflictSkillMismatch         ConflictKind = "skill_mismatch"
	ConflictCertificationMismatch ConflictKind = "certification_mismatch"
	ConflictLocationMismatch      ConflictKind = "location_mismatch"
	ConflictBudgetOverrun         ConflictKind = "budget_overrun"
	ConflictWeatherRisk           ConflictKind = "weather_risk"
	ConflictMaintenanceDue        ConflictKind = "maintenance_due"
)

// Severity ranks a conflict.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Entity types named by conflicts.
const (
	EntityPilot = "pilot"
	EntityDrone = "drone"
)

// Conflict is a derived inconsistency in the committed assignments. It is
// recomputed on every scan and never persisted. Only the evidence fields
// relevant to Kind are populated.
type Conflict struct {
	Kind       ConflictKind `json:"type"`
	Severity   Severity     `json:"severity"`
	EntityType string       `json:"entity_type"`
	EntityID   string       `json:"entity_id"`
	MissionID  string       `json:"project_id"`
	// MissionIDs lists both overlapping missions of a double booking.
	MissionIDs []string `json:"assignments,omitempty"`

	Required []string `json:"required,omitempty"`
	Actual   []string `json:"actual,omitempty"`

	EntityLocation  string `json:"entity_location,omitempty"`
	MissionLocation string `json:"mission_location,omitempty"`

	Budget  float64 `json:"mission_budget,omitempty"`
	Cost    float64 `json:"pilot_cost,omitempty"`
	Overrun float64 `json:"overrun,omitempty"`

	WeatherResistance string `json:"weather_resistance,omitempty"`
	Forecast          string `json:"mission_weather,omitempty"`

	MaintenanceDue string `json:"maintenance_due_date,omitempty"`
}

// String renders the conflict as a single human readable line.
func (c Conflict) String() string {
	head := fmt.Sprintf("[%s] %s %s", c.Severity, c.EntityType, c.EntityID)
	switch c.Kind {
	case ConflictDoubleBooking:
		return fmt.Sprintf("%s: missions %s overlap", head, strings.Join(c.MissionIDs, ", "))
	case ConflictSkillMismatch:
		return fmt.Sprintf("%s on %s: requires skills %s, has %s", head, c.MissionID, listOrNone(c.Required), listOrNone(c.Actual))
	case ConflictCertificationMismatch:
		return fmt.Sprintf("%s on %s: requires certifications %s, has %s", head, c.MissionID, listOrNone(c.Required), listOrNone(c.Actual))
	case ConflictLocationMismatch:
		return fmt.Sprintf("%s on %s: located in %s, mission in %s", head, c.MissionID, c.EntityLocation, c.MissionLocation)
	case ConflictBudgetOverrun:
		return fmt.Sprintf("%s on %s: cost %.2f exceeds budget %.2f by %.2f", head, c.MissionID, c.Cost, c.Budget, c.Overrun)
	case ConflictWeatherRisk:
		return fmt.Sprintf("%s on %s: resistance %q unsuitable for %s", head, c.MissionID, c.WeatherResistance, c.Forecast)
	case ConflictMaintenanceDue:
		return fmt.Sprintf("%s on %s: maintenance due %s", head, c.MissionID, c.MaintenanceDue)
	default:
		return fmt.Sprintf("%s on %s: %s", head, c.MissionID, c.Kind)
	}
}

func listOrNone(l []string) string {
	if len(l) == 0 {
		return "none"
	}
	return strings.Join(l, ", ")
}
