package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/dronecoord/core/model"
)

// Records wraps a RecordStore with typed accessors. Every call fetches a
// fresh snapshot; nothing is cached between calls.
type Records struct {
	rs RecordStore
}

// NewRecords returns a typed view over rs.
func NewRecords(rs RecordStore) *Records {
	return &Records{rs: rs}
}

// Backend returns the underlying record store.
func (r *Records) Backend() RecordStore { return r.rs }

func (r *Records) fetch(ctx context.Context, kind Kind) (Table, error) {
	t, err := r.rs.FetchAll(ctx, kind)
	if err != nil {
		if errors.Is(err, model.ErrStoreUnavailable) {
			return Table{}, fmt.Errorf("fetch %s records: %w", kind, err)
		}
		return Table{}, fmt.Errorf("fetch %s records: %w: %w", kind, model.ErrStoreUnavailable, err)
	}
	return t, nil
}

// Pilots returns the current roster snapshot.
func (r *Records) Pilots(ctx context.Context) ([]model.Pilot, error) {
	t, err := r.fetch(ctx, KindPilot)
	if err != nil {
		return nil, err
	}
	return NormalizePilots(t), nil
}

// Drones returns the current fleet snapshot.
func (r *Records) Drones(ctx context.Context) ([]model.Drone, error) {
	t, err := r.fetch(ctx, KindDrone)
	if err != nil {
		return nil, err
	}
	return NormalizeDrones(t), nil
}

// Missions returns the current mission snapshot.
func (r *Records) Missions(ctx context.Context) ([]model.Mission, error) {
	t, err := r.fetch(ctx, KindMission)
	if err != nil {
		return nil, err
	}
	return NormalizeMissions(t), nil
}

// Commit writes a single field. Errors keep their sentinel when the backend
// set one and are otherwise classified as model.ErrCommitFailed.
func (r *Records) Commit(ctx context.Context, kind Kind, id, field, value string) error {
	err := r.rs.CommitField(ctx, kind, id, field, value)
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrCommitFailed) || errors.Is(err, model.ErrStoreUnavailable) {
		return fmt.Errorf("commit %s %s.%s: %w", kind, id, field, err)
	}
	return fmt.Errorf("commit %s %s.%s: %w: %w", kind, id, field, model.ErrCommitFailed, err)
}

// CommitStatus writes the status column of id.
func (r *Records) CommitStatus(ctx context.Context, kind Kind, id, status string) error {
	return r.Commit(ctx, kind, id, FieldStatus, status)
}

// CommitAssignment writes the current assignment of id. An empty mission id
// releases the assignment.
func (r *Records) CommitAssignment(ctx context.Context, kind Kind, id, missionID string) error {
	if missionID == "" {
		missionID = ClearedAssignment
	}
	return r.Commit(ctx, kind, id, FieldAssignment, missionID)
}
