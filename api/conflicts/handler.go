// Package conflicts serves conflict scans.
package conflicts

import (
	"context"
	"net/http"

	"github.com/kilianp07/dronecoord/api/respond"
	"github.com/kilianp07/dronecoord/core/conflict"
	"github.com/kilianp07/dronecoord/core/model"
	"github.com/kilianp07/dronecoord/pkg/export"
)

// Scanner runs a full conflict scan.
type Scanner interface {
	DetectAll(ctx context.Context) (conflict.Report, error)
}

// NewHandler serves GET /api/conflicts. format selects json (default), csv
// or text (the operator summary). mission restricts the JSON output to the
// conflicts touching one mission.
func NewHandler(s Scanner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := r.URL.Query().Get("format")
		if format != "" && format != "json" && format != "csv" && format != "text" {
			respond.BadRequest(w, "format must be json, csv or text")
			return
		}
		report, err := s.DetectAll(r.Context())
		if err != nil {
			respond.Error(w, err)
			return
		}
		switch format {
		case "csv":
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", `attachment; filename="conflicts.csv"`)
			_ = export.WriteCSV(w, report)
		case "text":
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(report.Summary() + "\n"))
		default:
			if id := r.URL.Query().Get("mission"); id != "" {
				list := report.ForMission(id)
				if list == nil {
					list = []model.Conflict{}
				}
				respond.JSON(w, http.StatusOK, list)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = export.WriteJSON(w, report)
		}
	}
}
