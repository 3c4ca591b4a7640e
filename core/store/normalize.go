package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kilianp07/dronecoord/core/eligibility"
	"github.com/kilianp07/dronecoord/core/model"
)

// Canonical column names written by the engines.
const (
	FieldStatus     = "status"
	FieldAssignment = "current_assignment"
)

// ClearedAssignment is the value written to release an assignment. Reads
// treat it, the empty string, "none" and "n/a" as no assignment.
const ClearedAssignment = "-"

var idPrefix = map[Kind]string{
	KindPilot:   "P",
	KindDrone:   "D",
	KindMission: "PROJ",
}

var preferredID = map[Kind][]string{
	KindPilot:   {"pilot_id"},
	KindDrone:   {"drone_id"},
	KindMission: {"project_id", "mission_id"},
}

// NormalizeKey lower-cases a header and replaces spaces and dashes with
// underscores so "Daily Rate INR" and "daily_rate_inr" address the same field.
func NormalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(k)
}

// MatchColumn returns the backend column addressing the canonical field.
func MatchColumn(columns []string, field string) (string, bool) {
	want := NormalizeKey(field)
	for _, c := range columns {
		if NormalizeKey(c) == want {
			return c, true
		}
	}
	return "", false
}

// idColumn picks the column holding ids for kind. Pilots and drones fall
// back to the first id-like column; when nothing qualifies ids are
// synthesised from the row index.
func idColumn(kind Kind, columns []string) (string, bool) {
	for _, pref := range preferredID[kind] {
		if c, ok := MatchColumn(columns, pref); ok {
			return c, true
		}
	}
	if kind == KindMission {
		return "", false
	}
	for _, c := range columns {
		n := NormalizeKey(c)
		if n == "id" || strings.HasSuffix(n, "_id") || strings.HasPrefix(n, "id_") {
			return c, true
		}
		if kind == KindDrone && strings.Contains(n, "drone") {
			return c, true
		}
	}
	return "", false
}

// SynthesizedID is the id given to the row at index when the table carries
// no usable id, e.g. P000, D004, PROJ012.
func SynthesizedID(kind Kind, index int) string {
	return fmt.Sprintf("%s%03d", idPrefix[kind], index)
}

// ResolveIDs returns the id of every row in t.
func ResolveIDs(kind Kind, t Table) []string {
	col, ok := idColumn(kind, t.Columns)
	ids := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		if ok {
			if v := strings.TrimSpace(r[col]); v != "" {
				ids[i] = v
				continue
			}
		}
		ids[i] = SynthesizedID(kind, i)
	}
	return ids
}

// LocateRow returns the index of the first row whose resolved id equals id,
// or -1. Backends use it so that commits address the same rows the engines
// read, synthesised ids included.
func LocateRow(kind Kind, t Table, id string) int {
	for i, rid := range ResolveIDs(kind, t) {
		if rid == id {
			return i
		}
	}
	return -1
}

// view gives normalised-key access to a row.
type view map[string]string

func newView(r Row) view {
	v := make(view, len(r))
	for k, val := range r {
		v[NormalizeKey(k)] = strings.TrimSpace(val)
	}
	return v
}

func (v view) first(keys ...string) string {
	for _, k := range keys {
		if val, ok := v[k]; ok && val != "" {
			return val
		}
	}
	return ""
}

func (v view) float(keys ...string) float64 {
	s := strings.ReplaceAll(v.first(keys...), ",", "")
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func assignmentValue(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", ClearedAssignment, "none", "n/a", "nan":
		return ""
	}
	return strings.TrimSpace(s)
}

// NormalizePilots converts a roster table into typed pilots.
func NormalizePilots(t Table) []model.Pilot {
	ids := ResolveIDs(KindPilot, t)
	out := make([]model.Pilot, 0, len(t.Rows))
	for i, r := range t.Rows {
		v := newView(r)
		status := model.PilotAvailable
		if raw := v.first(FieldStatus); raw != "" {
			if st, err := model.ParsePilotStatus(raw); err == nil {
				status = st
			} else {
				status = model.PilotStatus(raw)
			}
		}
		out = append(out, model.Pilot{
			ID:                ids[i],
			Name:              v.first("name", "pilot_name"),
			Skills:            eligibility.ParseList(v.first("skills")),
			Certifications:    eligibility.ParseList(v.first("certifications", "certs")),
			Location:          v.first("location", "base_location"),
			DailyRate:         v.float("daily_rate_inr", "daily_rate", "rate"),
			Status:            status,
			CurrentAssignment: assignmentValue(v.first(FieldAssignment)),
		})
	}
	return out
}

// NormalizeDrones converts a fleet table into typed drones.
func NormalizeDrones(t Table) []model.Drone {
	ids := ResolveIDs(KindDrone, t)
	out := make([]model.Drone, 0, len(t.Rows))
	for i, r := range t.Rows {
		v := newView(r)
		status := model.DroneAvailable
		if raw := v.first(FieldStatus); raw != "" {
			if st, err := model.ParseDroneStatus(raw); err == nil {
				status = st
			} else {
				status = model.DroneStatus(raw)
			}
		}
		out = append(out, model.Drone{
			ID:                ids[i],
			Model:             v.first("model"),
			Capabilities:      eligibility.ParseList(v.first("capabilities")),
			Location:          v.first("location"),
			WeatherResistance: v.first("weather_resistance"),
			Status:            status,
			CurrentAssignment: assignmentValue(v.first(FieldAssignment)),
			MaintenanceDue:    v.first("maintenance_due"),
		})
	}
	return out
}

// NormalizeMissions converts a missions table into typed missions.
func NormalizeMissions(t Table) []model.Mission {
	ids := ResolveIDs(KindMission, t)
	out := make([]model.Mission, 0, len(t.Rows))
	for i, r := range t.Rows {
		v := newView(r)
		status := model.MissionPending
		if raw := v.first(FieldStatus); raw != "" {
			if st, err := model.ParseMissionStatus(raw); err == nil {
				status = st
			} else {
				status = model.MissionStatus(raw)
			}
		}
		out = append(out, model.Mission{
			ID:              ids[i],
			Client:          v.first("client"),
			RequiredSkills:  eligibility.ParseList(v.first("required_skills")),
			RequiredCerts:   eligibility.ParseList(v.first("required_certs", "required_certifications")),
			Location:        v.first("location"),
			StartDate:       v.first("start_date"),
			EndDate:         v.first("end_date"),
			Budget:          v.float("mission_budget_inr", "budget"),
			WeatherForecast: v.first("weather_forecast", "weather"),
			AssignedPilot:   assignmentValue(v.first("assigned_pilot")),
			AssignedDrone:   assignmentValue(v.first("assigned_drone")),
			Status:          status,
		})
	}
	return out
}
