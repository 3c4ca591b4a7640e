package model

// Pilot is a snapshot of one roster row.
type Pilot struct {
	ID                string      `json:"pilot_id"`
	Name              string      `json:"name"`
	Skills            []string    `json:"skills"`
	Certifications    []string    `json:"certifications"`
	Location          string      `json:"location"`
	DailyRate         float64     `json:"daily_rate"`
	Status            PilotStatus `json:"status"`
	CurrentAssignment string      `json:"current_assignment,omitempty"` // mission id, empty when free
}

// HasAssignment returns true if the pilot currently holds a mission.
func (p Pilot) HasAssignment() bool { return p.CurrentAssignment != "" }
