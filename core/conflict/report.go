package conflict

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kilianp07/dronecoord/core/model"
)

// Section groups conflicts the way operators read them.
type Section string

const (
	SectionDoubleBookings     Section = "double_bookings"
	SectionSkillMismatches    Section = "skill_mismatches"
	SectionLocationMismatches Section = "location_mismatches"
	SectionBudgetOverruns     Section = "budget_overruns"
	SectionWeatherRisks       Section = "weather_risks"
	SectionMaintenanceIssues  Section = "maintenance_issues"
)

// Sections lists every section in report order.
var Sections = []Section{
	SectionDoubleBookings,
	SectionSkillMismatches,
	SectionLocationMismatches,
	SectionBudgetOverruns,
	SectionWeatherRisks,
	SectionMaintenanceIssues,
}

// Title renders the section name for humans, e.g. "Double Bookings".
func (s Section) Title() string {
	words := strings.Split(string(s), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// summaryPreview is the number of entries shown per section by Summary.
const summaryPreview = 3

// Report is the result of a full scan. Skill and certification mismatches
// share a section.
type Report struct {
	DoubleBookings     []model.Conflict `json:"double_bookings"`
	SkillMismatches    []model.Conflict `json:"skill_mismatches"`
	LocationMismatches []model.Conflict `json:"location_mismatches"`
	BudgetOverruns     []model.Conflict `json:"budget_overruns"`
	WeatherRisks       []model.Conflict `json:"weather_risks"`
	MaintenanceIssues  []model.Conflict `json:"maintenance_issues"`
}

// Section returns the conflicts of s.
func (r Report) Section(s Section) []model.Conflict {
	switch s {
	case SectionDoubleBookings:
		return r.DoubleBookings
	case SectionSkillMismatches:
		return r.SkillMismatches
	case SectionLocationMismatches:
		return r.LocationMismatches
	case SectionBudgetOverruns:
		return r.BudgetOverruns
	case SectionWeatherRisks:
		return r.WeatherRisks
	case SectionMaintenanceIssues:
		return r.MaintenanceIssues
	}
	return nil
}

// All returns every conflict in section order.
func (r Report) All() []model.Conflict {
	var out []model.Conflict
	for _, s := range Sections {
		out = append(out, r.Section(s)...)
	}
	return out
}

// Len is the total number of conflicts.
func (r Report) Len() int {
	n := 0
	for _, s := range Sections {
		n += len(r.Section(s))
	}
	return n
}

// ForMission returns the conflicts naming mission id, double bookings
// included.
func (r Report) ForMission(id string) []model.Conflict {
	return r.Restrict(id).All()
}

// Restrict returns a report holding only the conflicts naming mission id.
func (r Report) Restrict(id string) Report {
	keep := func(list []model.Conflict) []model.Conflict {
		var out []model.Conflict
		for _, c := range list {
			if c.MissionID == id || slices.Contains(c.MissionIDs, id) {
				out = append(out, c)
			}
		}
		return out
	}
	return Report{
		DoubleBookings:     keep(r.DoubleBookings),
		SkillMismatches:    keep(r.SkillMismatches),
		LocationMismatches: keep(r.LocationMismatches),
		BudgetOverruns:     keep(r.BudgetOverruns),
		WeatherRisks:       keep(r.WeatherRisks),
		MaintenanceIssues:  keep(r.MaintenanceIssues),
	}
}

// ByKind returns the conflicts of kind.
func (r Report) ByKind(kind model.ConflictKind) []model.Conflict {
	var out []model.Conflict
	for _, c := range r.All() {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Counts returns the number of conflicts per kind. Kinds with no conflict
// are absent.
func (r Report) Counts() map[model.ConflictKind]int {
	out := map[model.ConflictKind]int{}
	for _, c := range r.All() {
		out[c.Kind]++
	}
	return out
}

// Summary renders a short text report: one block per non-empty section with
// its count and the first three entries.
func (r Report) Summary() string {
	var blocks []string
	for _, s := range Sections {
		list := r.Section(s)
		if len(list) == 0 {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s: %d", s.Title(), len(list))
		for _, c := range list[:min(len(list), summaryPreview)] {
			fmt.Fprintf(&b, "\n  - %s", c)
		}
		blocks = append(blocks, b.String())
	}
	if len(blocks) == 0 {
		return "No conflicts detected."
	}
	return strings.Join(blocks, "\n\n")
}
