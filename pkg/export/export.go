// Package export writes conflict reports for operators and spreadsheets.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"

	"github.com/kilianp07/dronecoord/core/conflict"
)

// CSVHeader is the first row written by WriteCSV.
var CSVHeader = []string{"section", "type", "severity", "entity_type", "entity_id", "project_id", "details"}

// WriteJSON writes the report to w grouped by section.
func WriteJSON(w io.Writer, r conflict.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteCSV writes one row per conflict in report order. Double bookings
// list both missions in project_id, separated by ";".
func WriteCSV(w io.Writer, r conflict.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, s := range conflict.Sections {
		for _, c := range r.Section(s) {
			mission := c.MissionID
			if len(c.MissionIDs) > 0 {
				mission = strings.Join(c.MissionIDs, ";")
			}
			rec := []string{
				string(s),
				string(c.Kind),
				string(c.Severity),
				c.EntityType,
				c.EntityID,
				mission,
				c.String(),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
