// Package inventory is the drone counterpart of the roster engine:
// filtering, weather and maintenance checks, capability matching and drone
// status changes.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/dronecoord/core/eligibility"
	"github.com/kilianp07/dronecoord/core/logger"
	"github.com/kilianp07/dronecoord/core/model"
	"github.com/kilianp07/dronecoord/core/store"
)

// Filter narrows Query. Capabilities match when a drone offers any of the
// listed values; Location and Status are case-insensitive substring
// matches; WeatherForecast keeps drones able to fly in that forecast.
type Filter struct {
	Capabilities    []string
	Location        string
	Status          string
	WeatherForecast string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now for maintenance checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is the drone inventory engine.
type Engine struct {
	records *store.Records
	log     logger.Logger
	now     func() time.Time
}

// New returns an inventory engine over rs.
func New(rs store.RecordStore, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{records: store.NewRecords(rs), log: log, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Query returns drones matching f in store order.
func (e *Engine) Query(ctx context.Context, f Filter) ([]model.Drone, error) {
	drones, err := e.records.Drones(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Drone
	for _, d := range drones {
		if len(f.Capabilities) > 0 && !offersAny(d.Capabilities, f.Capabilities) {
			continue
		}
		if f.Location != "" && !eligibility.ContainsFold(d.Location, f.Location) {
			continue
		}
		if f.Status != "" && !eligibility.ContainsFold(string(d.Status), f.Status) {
			continue
		}
		if f.WeatherForecast != "" && !eligibility.WeatherCompatible(d.WeatherResistance, f.WeatherForecast) {
			continue
		}
		out = append(out, d)
	}
	e.log.Debugw("drone query", map[string]any{"filter": f, "matches": len(out)})
	return out, nil
}

// Available lists drones whose status is exactly Available.
func (e *Engine) Available(ctx context.Context) ([]model.Drone, error) {
	return e.filter(ctx, func(d model.Drone) bool { return d.Status == model.DroneAvailable })
}

// ByWeather lists Available drones able to fly in forecast.
func (e *Engine) ByWeather(ctx context.Context, forecast string) ([]model.Drone, error) {
	return e.filter(ctx, func(d model.Drone) bool {
		return d.Status == model.DroneAvailable && eligibility.WeatherCompatible(d.WeatherResistance, forecast)
	})
}

// Deployed lists drones holding an assignment.
func (e *Engine) Deployed(ctx context.Context) ([]model.Drone, error) {
	return e.filter(ctx, model.Drone.HasAssignment)
}

// MaintenanceDue lists drones whose maintenance date has been reached.
func (e *Engine) MaintenanceDue(ctx context.Context) ([]model.Drone, error) {
	now := e.now()
	return e.filter(ctx, func(d model.Drone) bool { return eligibility.MaintenanceDue(d.MaintenanceDue, now) })
}

func (e *Engine) filter(ctx context.Context, keep func(model.Drone) bool) ([]model.Drone, error) {
	drones, err := e.records.Drones(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Drone
	for _, d := range drones {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Get returns the first drone with id.
func (e *Engine) Get(ctx context.Context, id string) (model.Drone, error) {
	drones, err := e.records.Drones(ctx)
	if err != nil {
		return model.Drone{}, err
	}
	for _, d := range drones {
		if d.ID == id {
			return d, nil
		}
	}
	return model.Drone{}, fmt.Errorf("drone %s: %w", id, model.ErrNotFound)
}

// IsAvailable reports whether drone id has status Available. Unknown drones
// are not available.
func (e *Engine) IsAvailable(ctx context.Context, id string) (bool, error) {
	d, err := e.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return d.Status == model.DroneAvailable, nil
}

// FindMatching returns Available drones offering any of caps at location
// and able to fly in forecast. Drones in maintenance or past their
// maintenance date are excluded. An empty forecast skips the weather check.
func (e *Engine) FindMatching(ctx context.Context, caps []string, location, forecast string) ([]model.Drone, error) {
	drones, err := e.records.Drones(ctx)
	if err != nil {
		return nil, err
	}
	now := e.now()
	var out []model.Drone
	for _, d := range drones {
		if d.Status != model.DroneAvailable {
			continue
		}
		if len(caps) > 0 && !offersAny(d.Capabilities, caps) {
			continue
		}
		if !eligibility.ContainsFold(d.Location, location) {
			continue
		}
		if strings.TrimSpace(forecast) != "" && !eligibility.WeatherCompatible(d.WeatherResistance, forecast) {
			continue
		}
		if eligibility.MaintenanceDue(d.MaintenanceDue, now) {
			continue
		}
		out = append(out, d)
	}
	e.log.Debugw("drone match", map[string]any{
		"capabilities": caps,
		"location":     location,
		"forecast":     forecast,
		"matches":      len(out),
	})
	return out, nil
}

// UpdateStatus persists a status change with the same rules as the roster:
// Available clears the assignment, Assigned requires one.
func (e *Engine) UpdateStatus(ctx context.Context, id string, status model.DroneStatus, assignment string) error {
	if !status.Valid() {
		return &model.ValidationError{Field: "drone status", Value: string(status), Allowed: model.DroneStatuses()}
	}
	assignment = strings.TrimSpace(assignment)
	if status == model.DroneAssigned && assignment == "" {
		return &model.ValidationError{Field: "drone assignment", Value: assignment}
	}
	if err := e.records.CommitStatus(ctx, store.KindDrone, id, string(status)); err != nil {
		return err
	}
	switch {
	case status == model.DroneAvailable:
		if err := e.records.CommitAssignment(ctx, store.KindDrone, id, ""); err != nil {
			return err
		}
	case assignment != "":
		if err := e.records.CommitAssignment(ctx, store.KindDrone, id, assignment); err != nil {
			return err
		}
	}
	e.log.Infof("drone %s status %s assignment %q", id, status, assignment)
	return nil
}

func offersAny(have, want []string) bool {
	for _, w := range want {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		for _, h := range have {
			if eligibility.ContainsFold(h, w) {
				return true
			}
		}
	}
	return false
}
