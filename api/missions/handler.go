// Package missions serves mission lookups and the assignment operations.
package missions

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/dronecoord/api/respond"
	"github.com/kilianp07/dronecoord/core/assignment"
	"github.com/kilianp07/dronecoord/core/model"
)

// Engine is the part of assignment.Engine used by the handlers.
type Engine interface {
	Missions(ctx context.Context) ([]model.Mission, error)
	Mission(ctx context.Context, id string) (model.Mission, error)
	State(ctx context.Context, id string) (assignment.State, error)
	CreateAssignment(ctx context.Context, missionID, pilotID, droneID string) (assignment.Result, error)
	HandleUrgentReassignment(ctx context.Context, missionID, reason string) (assignment.Result, error)
}

// MissionView is a mission together with its derived assignment state.
type MissionView struct {
	model.Mission
	State assignment.State `json:"assignment_state"`
}

// AssignRequest optionally pins the pilot or the drone. Empty ids are
// auto-matched.
type AssignRequest struct {
	PilotID string `json:"pilot_id"`
	DroneID string `json:"drone_id"`
}

// ReassignRequest carries the urgency reason recorded in the audit trail.
type ReassignRequest struct {
	Reason string `json:"reason"`
}

// NewListHandler serves GET /api/missions.
func NewListHandler(e Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ms, err := e.Missions(r.Context())
		if err != nil {
			respond.Error(w, err)
			return
		}
		if ms == nil {
			ms = []model.Mission{}
		}
		respond.JSON(w, http.StatusOK, ms)
	}
}

// NewGetHandler serves GET /api/missions/{id}.
func NewGetHandler(e Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		m, err := e.Mission(r.Context(), id)
		if err != nil {
			respond.Error(w, err)
			return
		}
		st, err := e.State(r.Context(), id)
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, MissionView{Mission: m, State: st})
	}
}

// NewAssignHandler serves POST /api/missions/{id}/assign. The body is
// optional.
func NewAssignHandler(e Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body AssignRequest
		if err := decode(r, &body); err != nil {
			respond.BadRequest(w, err.Error())
			return
		}
		res, err := e.CreateAssignment(r.Context(), chi.URLParam(r, "id"), body.PilotID, body.DroneID)
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, res)
	}
}

// NewReassignHandler serves POST /api/missions/{id}/reassign.
func NewReassignHandler(e Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body ReassignRequest
		if err := decode(r, &body); err != nil {
			respond.BadRequest(w, err.Error())
			return
		}
		res, err := e.HandleUrgentReassignment(r.Context(), chi.URLParam(r, "id"), body.Reason)
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, res)
	}
}

// decode reads an optional JSON body. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
