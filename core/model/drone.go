package model

// Drone is a snapshot of one fleet row.
type Drone struct {
	ID                string      `json:"drone_id"`
	Model             string      `json:"model"`
	Capabilities      []string    `json:"capabilities"`
	Location          string      `json:"location"`
	WeatherResistance string      `json:"weather_resistance,omitempty"`
	Status            DroneStatus `json:"status"`
	CurrentAssignment string      `json:"current_assignment,omitempty"`
	// MaintenanceDue is the raw YYYY-MM-DD due date as found in the store.
	MaintenanceDue string `json:"maintenance_due,omitempty"`
}

// HasAssignment returns true if the drone is deployed on a mission.
func (d Drone) HasAssignment() bool { return d.CurrentAssignment != "" }
