package model

// Mission is a time-boxed job requiring one pilot and one drone. Dates are kept
// in the store's YYYY-MM-DD form; see the eligibility package for parsing.
type Mission struct {
	ID              string        `json:"project_id"`
	Client          string        `json:"client,omitempty"`
	RequiredSkills  []string      `json:"required_skills"`
	RequiredCerts   []string      `json:"required_certs"`
	Location        string        `json:"location"`
	StartDate       string        `json:"start_date"`
	EndDate         string        `json:"end_date"`
	Budget          float64       `json:"budget"`
	WeatherForecast string        `json:"weather_forecast"`
	AssignedPilot   string        `json:"assigned_pilot,omitempty"`
	AssignedDrone   string        `json:"assigned_drone,omitempty"`
	Status          MissionStatus `json:"status"`
}
