// Package fleet exposes the pilot roster and the drone inventory over HTTP.
package fleet

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/dronecoord/api/respond"
	"github.com/kilianp07/dronecoord/core/inventory"
	"github.com/kilianp07/dronecoord/core/model"
	"github.com/kilianp07/dronecoord/core/roster"
)

// Roster is the part of roster.Engine served by the pilot handlers.
type Roster interface {
	Query(ctx context.Context, f roster.Filter) ([]model.Pilot, error)
	Available(ctx context.Context) ([]model.Pilot, error)
	CurrentAssignments(ctx context.Context) ([]model.Pilot, error)
	Get(ctx context.Context, id string) (model.Pilot, error)
}

// Inventory is the part of inventory.Engine served by the drone handlers.
type Inventory interface {
	Query(ctx context.Context, f inventory.Filter) ([]model.Drone, error)
	Available(ctx context.Context) ([]model.Drone, error)
	ByWeather(ctx context.Context, forecast string) ([]model.Drone, error)
	Deployed(ctx context.Context) ([]model.Drone, error)
	MaintenanceDue(ctx context.Context) ([]model.Drone, error)
	Get(ctx context.Context, id string) (model.Drone, error)
}

// NewPilotsHandler serves GET /api/pilots. Query parameters skill, cert,
// location and status filter the roster; available=true lists free pilots
// and assigned=true lists pilots holding a mission.
func NewPilotsHandler(r Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		var (
			pilots []model.Pilot
			err    error
		)
		switch {
		case flag(q.Get("available")):
			pilots, err = r.Available(req.Context())
		case flag(q.Get("assigned")):
			pilots, err = r.CurrentAssignments(req.Context())
		default:
			pilots, err = r.Query(req.Context(), roster.Filter{
				Skills:         list(q["skill"]),
				Certifications: list(q["cert"]),
				Location:       q.Get("location"),
				Status:         q.Get("status"),
			})
		}
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, nonNil(pilots))
	}
}

// NewPilotHandler serves GET /api/pilots/{id}.
func NewPilotHandler(r Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		p, err := r.Get(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, p)
	}
}

// NewDronesHandler serves GET /api/drones. Query parameters capability,
// location, status and weather filter the fleet; available, deployed and
// maintenance_due select the matching shortcut lists. available=true with a
// weather value lists free drones able to fly in that forecast.
func NewDronesHandler(inv Inventory) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		ctx := req.Context()
		var (
			drones []model.Drone
			err    error
		)
		switch {
		case flag(q.Get("available")) && q.Get("weather") != "":
			drones, err = inv.ByWeather(ctx, q.Get("weather"))
		case flag(q.Get("available")):
			drones, err = inv.Available(ctx)
		case flag(q.Get("deployed")):
			drones, err = inv.Deployed(ctx)
		case flag(q.Get("maintenance_due")):
			drones, err = inv.MaintenanceDue(ctx)
		default:
			drones, err = inv.Query(ctx, inventory.Filter{
				Capabilities:    list(q["capability"]),
				Location:        q.Get("location"),
				Status:          q.Get("status"),
				WeatherForecast: q.Get("weather"),
			})
		}
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, nonNil(drones))
	}
}

// NewDroneHandler serves GET /api/drones/{id}.
func NewDroneHandler(inv Inventory) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		d, err := inv.Get(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, d)
	}
}

func flag(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

// list accepts both repeated and comma separated values.
func list(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
