// Package roster answers questions about pilots: filtering, availability,
// cost and requirement matching, and persists pilot status changes.
//
// The engine holds no state beyond its store handle. Every call works on a
// snapshot fetched at the start of that call.
package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kilianp07/dronecoord/core/eligibility"
	"github.com/kilianp07/dronecoord/core/logger"
	"github.com/kilianp07/dronecoord/core/model"
	"github.com/kilianp07/dronecoord/core/store"
)

// Filter narrows Query. Every non-empty dimension must match. Skills and
// Certifications match when the pilot holds any of the listed values;
// Location and Status are case-insensitive substring matches.
type Filter struct {
	Skills         []string
	Certifications []string
	Location       string
	Status         string
}

// Requirements are the mission constraints used by FindMatching.
type Requirements struct {
	Skills         []string
	Certifications []string
	Location       string
	StartDate      string
	EndDate        string
	// MaxBudget is ignored when zero or negative.
	MaxBudget float64
}

// Engine is the pilot roster engine.
type Engine struct {
	records *store.Records
	log     logger.Logger
}

// New returns a roster engine over rs.
func New(rs store.RecordStore, log logger.Logger) *Engine {
	return &Engine{records: store.NewRecords(rs), log: log}
}

// Query returns pilots matching f in store order.
func (e *Engine) Query(ctx context.Context, f Filter) ([]model.Pilot, error) {
	pilots, err := e.records.Pilots(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Pilot
	for _, p := range pilots {
		if len(f.Skills) > 0 && !anyOf(p.Skills, f.Skills) {
			continue
		}
		if len(f.Certifications) > 0 && !anyOf(p.Certifications, f.Certifications) {
			continue
		}
		if f.Location != "" && !eligibility.ContainsFold(p.Location, f.Location) {
			continue
		}
		if f.Status != "" && !eligibility.ContainsFold(string(p.Status), f.Status) {
			continue
		}
		out = append(out, p)
	}
	e.log.Debugw("pilot query", map[string]any{"filter": f, "matches": len(out)})
	return out, nil
}

// Available lists pilots whose status is exactly Available. A substring
// filter would also select Unavailable pilots.
func (e *Engine) Available(ctx context.Context) ([]model.Pilot, error) {
	pilots, err := e.records.Pilots(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Pilot
	for _, p := range pilots {
		if p.Status == model.PilotAvailable {
			out = append(out, p)
		}
	}
	return out, nil
}

// Get returns the first pilot with id.
func (e *Engine) Get(ctx context.Context, id string) (model.Pilot, error) {
	pilots, err := e.records.Pilots(ctx)
	if err != nil {
		return model.Pilot{}, err
	}
	for _, p := range pilots {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Pilot{}, fmt.Errorf("pilot %s: %w", id, model.ErrNotFound)
}

// CurrentAssignments lists every pilot row holding an assignment.
func (e *Engine) CurrentAssignments(ctx context.Context) ([]model.Pilot, error) {
	pilots, err := e.records.Pilots(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Pilot
	for _, p := range pilots {
		if p.HasAssignment() {
			out = append(out, p)
		}
	}
	return out, nil
}

// CalculateCost prices pilot id over [start,end]. An unknown pilot costs 0.
func (e *Engine) CalculateCost(ctx context.Context, id, start, end string) (float64, error) {
	p, err := e.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return eligibility.Cost(p.DailyRate, start, end), nil
}

// IsAvailable reports whether pilot id can take a mission over [start,end].
// Any existing assignment blocks the pilot whatever its dates; the window
// is accepted for interface stability but not compared.
func (e *Engine) IsAvailable(ctx context.Context, id, start, end string) (bool, error) {
	pilots, err := e.records.Pilots(ctx)
	if err != nil {
		return false, err
	}
	found := false
	for _, p := range pilots {
		if p.ID != id {
			continue
		}
		if !found && p.Status != model.PilotAvailable {
			return false, nil
		}
		found = true
		if p.HasAssignment() {
			return false, nil
		}
	}
	return found, nil
}

// FindMatching returns Available pilots meeting req, in store order.
func (e *Engine) FindMatching(ctx context.Context, req Requirements) ([]model.Pilot, error) {
	pilots, err := e.records.Pilots(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Pilot
	for _, p := range pilots {
		if !eligibility.SkillsMatch(p.Skills, req.Skills) {
			continue
		}
		if !eligibility.CertificationsMatch(p.Certifications, req.Certifications) {
			continue
		}
		if !eligibility.ContainsFold(p.Location, req.Location) {
			continue
		}
		if p.Status != model.PilotAvailable {
			continue
		}
		if req.MaxBudget > 0 && eligibility.Cost(p.DailyRate, req.StartDate, req.EndDate) > req.MaxBudget {
			continue
		}
		out = append(out, p)
	}
	e.log.Debugw("pilot match", map[string]any{
		"skills":   req.Skills,
		"location": req.Location,
		"budget":   req.MaxBudget,
		"matches":  len(out),
	})
	return out, nil
}

// UpdateStatus persists a status change. Available always clears the
// assignment and Assigned requires one; other statuses only touch the
// assignment when one is given.
func (e *Engine) UpdateStatus(ctx context.Context, id string, status model.PilotStatus, assignment string) error {
	if !status.Valid() {
		return &model.ValidationError{Field: "pilot status", Value: string(status), Allowed: model.PilotStatuses()}
	}
	assignment = strings.TrimSpace(assignment)
	if status == model.PilotAssigned && assignment == "" {
		return &model.ValidationError{Field: "pilot assignment", Value: assignment}
	}
	if err := e.records.CommitStatus(ctx, store.KindPilot, id, string(status)); err != nil {
		return err
	}
	switch {
	case status == model.PilotAvailable:
		if err := e.records.CommitAssignment(ctx, store.KindPilot, id, ""); err != nil {
			return err
		}
	case assignment != "":
		if err := e.records.CommitAssignment(ctx, store.KindPilot, id, assignment); err != nil {
			return err
		}
	}
	e.log.Infof("pilot %s status %s assignment %q", id, status, assignment)
	return nil
}

func anyOf(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(w)) {
				return true
			}
		}
	}
	return false
}
