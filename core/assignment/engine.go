// Package assignment binds a pilot and a drone to a mission. Commits are
// two-phase: the pilot is committed first, then the drone, and a failed
// drone commit is compensated by returning the pilot to Available.
//
// The per-mission state machine is never persisted. It is derived on demand
// from the assignment fields of the pilot and drone rows.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/dronecoord/core/assignment/logging"
	"github.com/kilianp07/dronecoord/core/events"
	"github.com/kilianp07/dronecoord/core/inventory"
	"github.com/kilianp07/dronecoord/core/logger"
	"github.com/kilianp07/dronecoord/core/metrics"
	"github.com/kilianp07/dronecoord/core/model"
	"github.com/kilianp07/dronecoord/core/monitoring"
	"github.com/kilianp07/dronecoord/core/roster"
	"github.com/kilianp07/dronecoord/core/store"
	"github.com/kilianp07/dronecoord/internal/eventbus"
)

// State is the derived assignment state of a mission.
type State string

const (
	StateUnassigned    State = "unassigned"
	StatePilotMatched  State = "pilot_matched"
	StateFullyAssigned State = "fully_assigned"
)

// Result identifies a committed assignment.
type Result struct {
	MissionID string `json:"project_id"`
	PilotID   string `json:"pilot_id"`
	DroneID   string `json:"drone_id"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogStore sets the audit trail receiving every assignment step.
func WithLogStore(s logging.LogStore) Option {
	return func(e *Engine) {
		if s != nil {
			e.audit = s
		}
	}
}

// WithEventBus publishes an AssignmentEvent after every attempt.
func WithEventBus(bus *eventbus.TypedBus[events.AssignmentEvent]) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithMetrics forwards attempt results and rollbacks to sink.
func WithMetrics(sink metrics.MetricsSink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.metrics = sink
		}
	}
}

// Engine coordinates pilot and drone commits for missions.
type Engine struct {
	records *store.Records
	roster  *roster.Engine
	fleet   *inventory.Engine
	log     logger.Logger
	audit   logging.LogStore
	bus     *eventbus.TypedBus[events.AssignmentEvent]
	metrics metrics.MetricsSink
}

// New returns an assignment engine. rs must be the store the roster and
// inventory engines were built on.
func New(rs store.RecordStore, r *roster.Engine, inv *inventory.Engine, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		records: store.NewRecords(rs),
		roster:  r,
		fleet:   inv,
		log:     log,
		audit:   logging.NopStore{},
		metrics: metrics.NopSink{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Missions returns every mission in store order.
func (e *Engine) Missions(ctx context.Context) ([]model.Mission, error) {
	return e.records.Missions(ctx)
}

// Mission returns the first mission with id.
func (e *Engine) Mission(ctx context.Context, id string) (model.Mission, error) {
	missions, err := e.records.Missions(ctx)
	if err != nil {
		return model.Mission{}, err
	}
	for _, m := range missions {
		if m.ID == id {
			return m, nil
		}
	}
	return model.Mission{}, fmt.Errorf("mission %s: %w", id, model.ErrNotFound)
}

// State derives the assignment state of mission id from the resources
// currently holding it. A drone held without a pilot counts as unassigned.
func (e *Engine) State(ctx context.Context, id string) (State, error) {
	if _, err := e.Mission(ctx, id); err != nil {
		return "", err
	}
	pilots, err := e.records.Pilots(ctx)
	if err != nil {
		return "", err
	}
	drones, err := e.records.Drones(ctx)
	if err != nil {
		return "", err
	}
	pilotHeld, droneHeld := false, false
	for _, p := range pilots {
		if p.CurrentAssignment == id {
			pilotHeld = true
			break
		}
	}
	for _, d := range drones {
		if d.CurrentAssignment == id {
			droneHeld = true
			break
		}
	}
	switch {
	case pilotHeld && droneHeld:
		return StateFullyAssigned, nil
	case pilotHeld:
		return StatePilotMatched, nil
	default:
		return StateUnassigned, nil
	}
}

// MatchPilot returns the first pilot eligible for mission id.
func (e *Engine) MatchPilot(ctx context.Context, id string) (model.Pilot, bool, error) {
	m, err := e.Mission(ctx, id)
	if err != nil {
		return model.Pilot{}, false, err
	}
	return e.matchPilot(ctx, m)
}

// MatchDrone returns the first drone eligible for mission id.
func (e *Engine) MatchDrone(ctx context.Context, id string) (model.Drone, bool, error) {
	m, err := e.Mission(ctx, id)
	if err != nil {
		return model.Drone{}, false, err
	}
	return e.matchDrone(ctx, m)
}

func (e *Engine) matchPilot(ctx context.Context, m model.Mission) (model.Pilot, bool, error) {
	pilots, err := e.roster.FindMatching(ctx, roster.Requirements{
		Skills:         m.RequiredSkills,
		Certifications: m.RequiredCerts,
		Location:       m.Location,
		StartDate:      m.StartDate,
		EndDate:        m.EndDate,
		MaxBudget:      m.Budget,
	})
	if err != nil || len(pilots) == 0 {
		return model.Pilot{}, false, err
	}
	return pilots[0], true, nil
}

func (e *Engine) matchDrone(ctx context.Context, m model.Mission) (model.Drone, bool, error) {
	caps := inventory.CapabilitiesFor(m.RequiredSkills)
	drones, err := e.fleet.FindMatching(ctx, caps, m.Location, m.WeatherForecast)
	if err != nil || len(drones) == 0 {
		return model.Drone{}, false, err
	}
	return drones[0], true, nil
}

// CreateAssignment commits a pilot and a drone to mission missionID. Empty
// ids are auto-matched. When the drone commit fails the pilot is returned to
// Available and a partially written drone is released; a failed rollback
// is joined to the returned error.
func (e *Engine) CreateAssignment(ctx context.Context, missionID, pilotID, droneID string) (Result, error) {
	start := time.Now()
	res, err := e.assign(ctx, missionID, pilotID, droneID)
	e.finish(ctx, logging.ActionAssign, missionID, "", start, res, err)
	return res, err
}

// HandleUrgentReassignment frees every pilot and drone holding mission
// missionID and assigns it afresh. Freeing is unconditional: failures are
// logged and skipped, and freed holders are not restored when the new
// assignment fails.
func (e *Engine) HandleUrgentReassignment(ctx context.Context, missionID, reason string) (Result, error) {
	start := time.Now()
	res, err := e.reassign(ctx, missionID, reason)
	e.finish(ctx, logging.ActionReassign, missionID, reason, start, res, err)
	return res, err
}

func (e *Engine) reassign(ctx context.Context, missionID, reason string) (Result, error) {
	if _, err := e.Mission(ctx, missionID); err != nil {
		return Result{}, missionErr(missionID, err)
	}
	assignmentReassignments.Inc()
	e.log.Warnf("urgent reassignment of %s: %s", missionID, reason)

	pilots, err := e.roster.CurrentAssignments(ctx)
	if err != nil {
		return Result{}, err
	}
	drones, err := e.fleet.Deployed(ctx)
	if err != nil {
		return Result{}, err
	}
	for _, p := range pilots {
		if p.CurrentAssignment != missionID {
			continue
		}
		err := e.roster.UpdateStatus(ctx, p.ID, model.PilotAvailable, "")
		e.record(ctx, logging.ActionFreePilot, missionID, p.ID, "", reason, err)
		if err != nil {
			e.log.Errorf("free pilot %s from %s: %v", p.ID, missionID, err)
		}
	}
	for _, d := range drones {
		if d.CurrentAssignment != missionID {
			continue
		}
		err := e.fleet.UpdateStatus(ctx, d.ID, model.DroneAvailable, "")
		e.record(ctx, logging.ActionFreeDrone, missionID, "", d.ID, reason, err)
		if err != nil {
			e.log.Errorf("free drone %s from %s: %v", d.ID, missionID, err)
		}
	}
	return e.assign(ctx, missionID, "", "")
}

func (e *Engine) assign(ctx context.Context, missionID, pilotID, droneID string) (Result, error) {
	m, err := e.Mission(ctx, missionID)
	if err != nil {
		return Result{}, missionErr(missionID, err)
	}

	if pilotID == "" {
		p, ok, err := e.matchPilot(ctx, m)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, &Error{Reason: ReasonNoSuitablePilot, MissionID: m.ID}
		}
		pilotID = p.ID
	}
	if droneID == "" {
		d, ok, err := e.matchDrone(ctx, m)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, &Error{Reason: ReasonNoSuitableDrone, MissionID: m.ID, PilotID: pilotID}
		}
		droneID = d.ID
	}

	written, err := e.commitPilot(ctx, m, pilotID)
	e.record(ctx, logging.ActionAssignPilot, m.ID, pilotID, "", "", err)
	if err != nil {
		aerr := &Error{Reason: ReasonPilotAssignFailed, MissionID: m.ID, PilotID: pilotID, DroneID: droneID, Err: err}
		if written {
			if rbErr := e.rollbackPilot(ctx, m.ID, pilotID); rbErr != nil {
				aerr.Err = errors.Join(aerr.Err, fmt.Errorf("rollback pilot %s: %w", pilotID, rbErr))
			}
		}
		return Result{}, aerr
	}

	written, err = e.commitDrone(ctx, m, droneID)
	e.record(ctx, logging.ActionAssignDrone, m.ID, pilotID, droneID, "", err)
	if err != nil {
		aerr := &Error{Reason: ReasonDroneAssignFailed, MissionID: m.ID, PilotID: pilotID, DroneID: droneID, Err: err}
		if rbErr := e.rollbackPilot(ctx, m.ID, pilotID); rbErr != nil {
			aerr.Err = errors.Join(aerr.Err, fmt.Errorf("rollback pilot %s: %w", pilotID, rbErr))
		}
		if written {
			if rbErr := e.rollbackDrone(ctx, m.ID, droneID); rbErr != nil {
				aerr.Err = errors.Join(aerr.Err, fmt.Errorf("rollback drone %s: %w", droneID, rbErr))
			}
		}
		return Result{}, aerr
	}

	e.log.Infof("mission %s assigned to pilot %s and drone %s", m.ID, pilotID, droneID)
	return Result{MissionID: m.ID, PilotID: pilotID, DroneID: droneID}, nil
}

// commitPilot reports written once the availability check has passed and
// the status write was attempted. From then on the row may be half
// committed and must be compensated on failure.
func (e *Engine) commitPilot(ctx context.Context, m model.Mission, id string) (written bool, err error) {
	ok, err := e.roster.IsAvailable(ctx, id, m.StartDate, m.EndDate)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("pilot %s is not available", id)
	}
	return true, e.roster.UpdateStatus(ctx, id, model.PilotAssigned, m.ID)
}

func (e *Engine) commitDrone(ctx context.Context, m model.Mission, id string) (written bool, err error) {
	ok, err := e.fleet.IsAvailable(ctx, id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("drone %s is not available", id)
	}
	return true, e.fleet.UpdateStatus(ctx, id, model.DroneAssigned, m.ID)
}

// rollbackPilot always runs, whatever the state of the pilot row. The pilot
// was Available with no assignment when committed, so that is restored.
func (e *Engine) rollbackPilot(ctx context.Context, missionID, pilotID string) error {
	err := e.roster.UpdateStatus(ctx, pilotID, model.PilotAvailable, "")
	e.rolledBack(ctx, logging.ActionRollback, metrics.RollbackEvent{MissionID: missionID, PilotID: pilotID}, err)
	return err
}

// rollbackDrone undoes a partial drone commit.
func (e *Engine) rollbackDrone(ctx context.Context, missionID, droneID string) error {
	err := e.fleet.UpdateStatus(ctx, droneID, model.DroneAvailable, "")
	e.rolledBack(ctx, logging.ActionRollbackDrone, metrics.RollbackEvent{MissionID: missionID, DroneID: droneID}, err)
	return err
}

func (e *Engine) rolledBack(ctx context.Context, action string, ev metrics.RollbackEvent, err error) {
	assignmentRollbacks.Inc()
	e.record(ctx, action, ev.MissionID, ev.PilotID, ev.DroneID, "", err)

	entity := ev.PilotID
	if entity == "" {
		entity = ev.DroneID
	}
	ev.Succeeded = err == nil
	ev.Time = time.Now()
	if err != nil {
		ev.Error = err.Error()
		e.log.Errorf("rollback of %s on %s failed: %v", entity, ev.MissionID, err)
		monitoring.CaptureException(err, map[string]string{
			"module": "assignment_engine", "action": action,
			"mission_id": ev.MissionID, "pilot_id": ev.PilotID, "drone_id": ev.DroneID,
		})
	} else {
		e.log.Warnf("%s rolled back from %s", entity, ev.MissionID)
	}
	if rr, ok := e.metrics.(metrics.RollbackRecorder); ok {
		if mErr := rr.RecordRollback(ev); mErr != nil {
			e.log.Errorf("rollback metrics error: %v", mErr)
		}
	}
}

// record appends one step to the audit trail. Audit failures never fail
// the assignment.
func (e *Engine) record(ctx context.Context, action, missionID, pilotID, droneID, reason string, err error) {
	rec := logging.NewRecord(action, missionID)
	rec.PilotID = pilotID
	rec.DroneID = droneID
	rec.Reason = reason
	rec.Outcome = logging.OutcomeSuccess
	if err != nil {
		rec.Outcome = logging.OutcomeFailure
		rec.Error = err.Error()
	}
	if aErr := e.audit.Append(ctx, rec); aErr != nil {
		e.log.Errorf("audit append %s: %v", action, aErr)
	}
}

// finish reports one CreateAssignment or reassignment attempt to the
// collectors, the metrics sink, the audit trail and the event bus.
func (e *Engine) finish(ctx context.Context, action, missionID, reason string, start time.Time, res Result, err error) {
	elapsed := time.Since(start)
	outcome := metrics.OutcomeSuccess
	pilotID, droneID := res.PilotID, res.DroneID
	failure := ""
	if err != nil {
		outcome = metrics.OutcomeFailure
		failure = "store_error"
		var aerr *Error
		if errors.As(err, &aerr) {
			failure = string(aerr.Reason)
			pilotID, droneID = aerr.PilotID, aerr.DroneID
		}
		e.log.Warnf("%s failed: %v", action, err)
		if reportable(failure) {
			monitoring.CaptureException(err, map[string]string{
				"module": "assignment_engine", "action": action,
				"mission_id": missionID, "reason": failure,
			})
		}
	}

	assignmentAttempts.WithLabelValues(outcome).Inc()
	assignmentDuration.WithLabelValues(action).Observe(elapsed.Seconds())

	now := time.Now()
	if mErr := e.metrics.RecordAssignment(metrics.AssignmentResult{
		MissionID: missionID,
		PilotID:   pilotID,
		DroneID:   droneID,
		Action:    action,
		Outcome:   outcome,
		Reason:    failure,
		Duration:  elapsed,
		Time:      now,
	}); mErr != nil {
		e.log.Errorf("assignment metrics error: %v", mErr)
	}

	auditReason := reason
	if failure != "" {
		auditReason = failure
	}
	e.record(ctx, action, missionID, pilotID, droneID, auditReason, err)

	if e.bus != nil {
		e.bus.Publish(events.AssignmentEvent{
			MissionID: missionID,
			PilotID:   pilotID,
			DroneID:   droneID,
			Action:    action,
			Reason:    reason,
			Success:   err == nil,
			Err:       err,
			Time:      now,
		})
	}
}

func missionErr(id string, err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return &Error{Reason: ReasonMissionNotFound, MissionID: id, Err: err}
	}
	return err
}

// reportable excludes outcomes caused by the request itself, such as an
// unknown mission or an empty candidate pool.
func reportable(reason string) bool {
	switch Reason(reason) {
	case ReasonMissionNotFound, ReasonNoSuitablePilot, ReasonNoSuitableDrone:
		return false
	}
	return true
}
