package assignment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dronecoord/core/assignment/logging"
	"github.com/kilianp07/dronecoord/core/conflict"
	"github.com/kilianp07/dronecoord/core/events"
	"github.com/kilianp07/dronecoord/core/inventory"
	"github.com/kilianp07/dronecoord/core/metrics"
	"github.com/kilianp07/dronecoord/core/model"
	"github.com/kilianp07/dronecoord/core/monitoring"
	"github.com/kilianp07/dronecoord/core/roster"
	"github.com/kilianp07/dronecoord/core/store"
	"github.com/kilianp07/dronecoord/infra/logger"
	"github.com/kilianp07/dronecoord/infra/recordstore"
	"github.com/kilianp07/dronecoord/internal/eventbus"
)

var (
	pilotColumns   = []string{"pilot_id", "name", "skills", "certifications", "location", "status", "current_assignment", "daily_rate_inr"}
	droneColumns   = []string{"drone_id", "model", "capabilities", "location", "status", "current_assignment", "maintenance_due", "weather_resistance"}
	missionColumns = []string{"project_id", "client", "location", "required_skills", "required_certs", "start_date", "end_date", "mission_budget_inr", "weather_forecast"}
)

func fixture() *recordstore.Memory {
	m := recordstore.NewMemory()
	m.Load(store.KindPilot, store.Table{Columns: pilotColumns, Rows: []store.Row{
		{"pilot_id": "P1", "name": "Asha", "skills": "Thermal", "certifications": "DGCA", "location": "Bangalore", "status": "Available", "current_assignment": "-", "daily_rate_inr": "10000"},
		{"pilot_id": "P2", "name": "Vikram", "skills": "Mapping", "certifications": "DGCA", "location": "Pune", "status": "Available", "current_assignment": "-", "daily_rate_inr": "5000"},
	}})
	m.Load(store.KindDrone, store.Table{Columns: droneColumns, Rows: []store.Row{
		{"drone_id": "D1", "model": "Matrice 30T", "capabilities": "Thermal", "location": "Bangalore", "status": "Available", "current_assignment": "-", "maintenance_due": "2099-01-01", "weather_resistance": "IP43"},
		{"drone_id": "D2", "model": "Mavic 3", "capabilities": "RGB", "location": "Mumbai", "status": "Available", "current_assignment": "-", "maintenance_due": "2099-01-01", "weather_resistance": "None"},
	}})
	m.Load(store.KindMission, store.Table{Columns: missionColumns, Rows: []store.Row{
		{"project_id": "M1", "client": "Acme", "location": "Bangalore", "required_skills": "Thermal", "start_date": "2024-03-01", "end_date": "2024-03-03", "mission_budget_inr": "50000", "weather_forecast": "Rainy"},
		{"project_id": "M2", "client": "Globex", "location": "Pune", "required_skills": "Mapping", "start_date": "2024-04-01", "end_date": "2024-04-02", "mission_budget_inr": "20000", "weather_forecast": "Sunny"},
		{"project_id": "M3", "client": "Initech", "location": "Chennai", "required_skills": "LiDAR", "start_date": "2024-05-01", "end_date": "2024-05-02", "mission_budget_inr": "90000", "weather_forecast": "Sunny"},
	}})
	return m
}

type faultyStore struct {
	*recordstore.Memory
	fail func(kind store.Kind, id, field, value string) bool
}

func (f *faultyStore) CommitField(ctx context.Context, kind store.Kind, id, field, value string) error {
	if f.fail(kind, id, field, value) {
		return errors.New("write rejected")
	}
	return f.Memory.CommitField(ctx, kind, id, field, value)
}

type captureAudit struct {
	mu   sync.Mutex
	recs []logging.LogRecord
}

func (c *captureAudit) Append(_ context.Context, r logging.LogRecord) error {
	c.mu.Lock()
	c.recs = append(c.recs, r)
	c.mu.Unlock()
	return nil
}

func (c *captureAudit) Query(_ context.Context, q logging.LogQuery) ([]logging.LogRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []logging.LogRecord
	for _, r := range c.recs {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *captureAudit) Close() error { return nil }

func (c *captureAudit) actions(outcome string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, r := range c.recs {
		if r.Outcome == outcome {
			out = append(out, r.Action)
		}
	}
	return out
}

type recordingSink struct {
	results   []metrics.AssignmentResult
	rollbacks []metrics.RollbackEvent
}

func (s *recordingSink) RecordAssignment(r metrics.AssignmentResult) error {
	s.results = append(s.results, r)
	return nil
}

func (s *recordingSink) RecordRollback(ev metrics.RollbackEvent) error {
	s.rollbacks = append(s.rollbacks, ev)
	return nil
}

type harness struct {
	engine *Engine
	roster *roster.Engine
	fleet  *inventory.Engine
	audit  *captureAudit
	sink   *recordingSink
}

func newHarness(t *testing.T, rs store.RecordStore, opts ...Option) harness {
	t.Helper()
	ResetMetrics(prometheus.NewRegistry())
	h := harness{
		roster: roster.New(rs, logger.NopLogger{}),
		fleet:  inventory.New(rs, logger.NopLogger{}),
		audit:  &captureAudit{},
		sink:   &recordingSink{},
	}
	opts = append([]Option{WithLogStore(h.audit), WithMetrics(h.sink)}, opts...)
	h.engine = New(rs, h.roster, h.fleet, logger.NopLogger{}, opts...)
	return h
}

func TestCreateAssignment_AutoMatch(t *testing.T) {
	bus := eventbus.NewTyped[events.AssignmentEvent]()
	sub := bus.Subscribe()
	h := newHarness(t, fixture(), WithEventBus(bus))
	ctx := context.Background()

	res, err := h.engine.CreateAssignment(ctx, "M1", "", "")
	require.NoError(t, err)
	assert.Equal(t, Result{MissionID: "M1", PilotID: "P1", DroneID: "D1"}, res)

	p, err := h.roster.Get(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, model.PilotAssigned, p.Status)
	assert.Equal(t, "M1", p.CurrentAssignment)
	d, err := h.fleet.Get(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, model.DroneAssigned, d.Status)
	assert.Equal(t, "M1", d.CurrentAssignment)

	st, err := h.engine.State(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, StateFullyAssigned, st)

	assert.Equal(t, []string{logging.ActionAssignPilot, logging.ActionAssignDrone, logging.ActionAssign}, h.audit.actions(logging.OutcomeSuccess))
	require.Len(t, h.sink.results, 1)
	assert.Equal(t, metrics.OutcomeSuccess, h.sink.results[0].Outcome)
	assert.Equal(t, 1.0, testutil.ToFloat64(assignmentAttempts.WithLabelValues(metrics.OutcomeSuccess)))

	select {
	case ev := <-sub:
		assert.True(t, ev.Success)
		assert.Equal(t, "P1", ev.PilotID)
		assert.Equal(t, logging.ActionAssign, ev.Action)
	case <-time.After(time.Second):
		t.Fatal("no assignment event published")
	}
}

func TestCreateAssignment_LeavesNoConflicts(t *testing.T) {
	mem := fixture()
	h := newHarness(t, mem)
	ctx := context.Background()

	res, err := h.engine.CreateAssignment(ctx, "M1", "", "")
	require.NoError(t, err)
	assert.Equal(t, "P1", res.PilotID)
	assert.Equal(t, "D1", res.DroneID)

	clock := func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
	report, err := conflict.New(mem, logger.NopLogger{}, conflict.WithClock(clock)).DetectAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.ForMission("M1"))
}

func TestCreateAssignment_Errors(t *testing.T) {
	cases := []struct {
		name      string
		mission   string
		pilot     string
		drone     string
		reason    Reason
		sentinel  error
		pilotLeft model.PilotStatus
	}{
		{"unknown mission", "M9", "", "", ReasonMissionNotFound, model.ErrNotFound, model.PilotAvailable},
		{"no pilot", "M3", "", "", ReasonNoSuitablePilot, model.ErrNoSuitableCandidate, model.PilotAvailable},
		{"no drone leaves pilot available", "M2", "", "", ReasonNoSuitableDrone, model.ErrNoSuitableCandidate, model.PilotAvailable},
		{"unknown pilot", "M1", "P9", "D1", ReasonPilotAssignFailed, model.ErrCommitFailed, model.PilotAvailable},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := newHarness(t, fixture())
			ctx := context.Background()
			_, err := h.engine.CreateAssignment(ctx, c.mission, c.pilot, c.drone)
			require.Error(t, err)
			var aerr *Error
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, c.reason, aerr.Reason)
			assert.ErrorIs(t, err, c.sentinel)

			for _, id := range []string{"P1", "P2"} {
				p, err := h.roster.Get(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, c.pilotLeft, p.Status, id)
				assert.Empty(t, p.CurrentAssignment, id)
			}
			require.Len(t, h.sink.results, 1)
			assert.Equal(t, string(c.reason), h.sink.results[0].Reason)
			assert.Equal(t, 1.0, testutil.ToFloat64(assignmentAttempts.WithLabelValues(metrics.OutcomeFailure)))
		})
	}
}

func TestCreateAssignment_BusyPilotRejected(t *testing.T) {
	mem := fixture()
	require.NoError(t, mem.CommitField(context.Background(), store.KindPilot, "P1", "current_assignment", "M7"))
	h := newHarness(t, mem)

	_, err := h.engine.CreateAssignment(context.Background(), "M1", "P1", "D1")
	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, ReasonPilotAssignFailed, aerr.Reason)

	d, err := h.fleet.Get(context.Background(), "D1")
	require.NoError(t, err)
	assert.Equal(t, model.DroneAvailable, d.Status, "drone is never touched when the pilot commit fails")
}

func TestCreateAssignment_RollsBackPilot(t *testing.T) {
	rs := &faultyStore{Memory: fixture(), fail: func(kind store.Kind, _, field, value string) bool {
		return kind == store.KindDrone && field == store.FieldStatus && value == string(model.DroneAssigned)
	}}
	h := newHarness(t, rs)
	ctx := context.Background()

	_, err := h.engine.CreateAssignment(ctx, "M1", "", "")
	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, ReasonDroneAssignFailed, aerr.Reason)
	assert.ErrorIs(t, err, model.ErrCommitFailed)

	p, err := h.roster.Get(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, model.PilotAvailable, p.Status)
	assert.Empty(t, p.CurrentAssignment)

	st, err := h.engine.State(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, StateUnassigned, st)

	d, err := h.fleet.Get(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, model.DroneAvailable, d.Status)
	assert.Empty(t, d.CurrentAssignment)

	require.Len(t, h.sink.rollbacks, 2)
	assert.Equal(t, "P1", h.sink.rollbacks[0].PilotID)
	assert.True(t, h.sink.rollbacks[0].Succeeded)
	assert.Equal(t, "D1", h.sink.rollbacks[1].DroneID)
	assert.True(t, h.sink.rollbacks[1].Succeeded)
	assert.Contains(t, h.audit.actions(logging.OutcomeSuccess), logging.ActionRollback)
	assert.Contains(t, h.audit.actions(logging.OutcomeSuccess), logging.ActionRollbackDrone)
	assert.Equal(t, 2.0, testutil.ToFloat64(assignmentRollbacks))
}

func TestCreateAssignment_RollbackFailureIsJoined(t *testing.T) {
	rs := &faultyStore{Memory: fixture(), fail: func(kind store.Kind, _, field, value string) bool {
		if kind == store.KindDrone {
			return field == store.FieldStatus && value == string(model.DroneAssigned)
		}
		return kind == store.KindPilot && field == store.FieldStatus && value == string(model.PilotAvailable)
	}}
	h := newHarness(t, rs)
	ctx := context.Background()

	_, err := h.engine.CreateAssignment(ctx, "M1", "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrCommitFailed)
	assert.Contains(t, err.Error(), "rollback pilot P1")

	require.Len(t, h.sink.rollbacks, 2)
	assert.False(t, h.sink.rollbacks[0].Succeeded)
	assert.True(t, h.sink.rollbacks[1].Succeeded)
	assert.Contains(t, h.audit.actions(logging.OutcomeFailure), logging.ActionRollback)

	p, err := h.roster.Get(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, model.PilotAssigned, p.Status, "a failed rollback leaves the pilot committed")
}

type recordMonitor struct {
	mu   sync.Mutex
	tags []map[string]string
}

func (r *recordMonitor) CaptureException(_ error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags = append(r.tags, tags)
}

func (r *recordMonitor) Flush(time.Duration) bool { return true }

func TestCreateAssignment_ReportsCommitFailures(t *testing.T) {
	mon := &recordMonitor{}
	monitoring.Init(mon)
	t.Cleanup(func() { monitoring.Init(nil) })

	rs := &faultyStore{Memory: fixture(), fail: func(kind store.Kind, _, field, value string) bool {
		if kind == store.KindDrone {
			return field == store.FieldStatus && value == string(model.DroneAssigned)
		}
		return kind == store.KindPilot && field == store.FieldStatus && value == string(model.PilotAvailable)
	}}
	h := newHarness(t, rs)
	ctx := context.Background()

	_, err := h.engine.CreateAssignment(ctx, "M3", "", "")
	require.Error(t, err)
	assert.Empty(t, mon.tags, "an empty candidate pool is not reported")

	_, err = h.engine.CreateAssignment(ctx, "M1", "", "")
	require.Error(t, err)
	require.Len(t, mon.tags, 2)
	assert.Equal(t, logging.ActionRollback, mon.tags[0]["action"])
	assert.Equal(t, "P1", mon.tags[0]["pilot_id"])
	assert.Equal(t, string(ReasonDroneAssignFailed), mon.tags[1]["reason"])
	assert.Equal(t, "M1", mon.tags[1]["mission_id"])
}

func TestCreateAssignment_PartialCommitsAreUndone(t *testing.T) {
	cases := []struct {
		name   string
		kind   store.Kind
		reason Reason
	}{
		{"pilot assignment write rejected", store.KindPilot, ReasonPilotAssignFailed},
		{"drone assignment write rejected", store.KindDrone, ReasonDroneAssignFailed},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rs := &faultyStore{Memory: fixture(), fail: func(kind store.Kind, _, field, value string) bool {
				return kind == c.kind && field == store.FieldAssignment && value == "M1"
			}}
			h := newHarness(t, rs)
			ctx := context.Background()

			_, err := h.engine.CreateAssignment(ctx, "M1", "", "")
			var aerr *Error
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, c.reason, aerr.Reason)

			p, err := h.roster.Get(ctx, "P1")
			require.NoError(t, err)
			assert.Equal(t, model.PilotAvailable, p.Status)
			assert.Empty(t, p.CurrentAssignment)
			d, err := h.fleet.Get(ctx, "D1")
			require.NoError(t, err)
			assert.Equal(t, model.DroneAvailable, d.Status)
			assert.Empty(t, d.CurrentAssignment)

			pilot, ok, err := h.engine.MatchPilot(ctx, "M1")
			require.NoError(t, err)
			require.True(t, ok, "the pilot stays matchable")
			assert.Equal(t, "P1", pilot.ID)

			st, err := h.engine.State(ctx, "M1")
			require.NoError(t, err)
			assert.Equal(t, StateUnassigned, st)
		})
	}
}

func TestHandleUrgentReassignment_UnknownMissionNotCounted(t *testing.T) {
	h := newHarness(t, fixture())
	_, err := h.engine.HandleUrgentReassignment(context.Background(), "M9", "storm")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, 0.0, testutil.ToFloat64(assignmentReassignments))
}

func TestCreateAssignment_StoreUnavailable(t *testing.T) {
	h := newHarness(t, fixture())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.engine.CreateAssignment(ctx, "M1", "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
	var aerr *Error
	assert.False(t, errors.As(err, &aerr), "store failures are surfaced as is")
	require.Len(t, h.sink.results, 1)
	assert.Equal(t, "store_error", h.sink.results[0].Reason)
}

func TestHandleUrgentReassignment(t *testing.T) {
	h := newHarness(t, fixture())
	ctx := context.Background()
	_, err := h.engine.CreateAssignment(ctx, "M1", "", "")
	require.NoError(t, err)

	res, err := h.engine.HandleUrgentReassignment(ctx, "M1", "pilot sick")
	require.NoError(t, err)
	assert.Equal(t, Result{MissionID: "M1", PilotID: "P1", DroneID: "D1"}, res)

	recs, err := h.audit.Query(ctx, logging.LogQuery{MissionID: "M1", Action: logging.ActionFreePilot})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "P1", recs[0].PilotID)
	assert.Equal(t, "pilot sick", recs[0].Reason)
	assert.Contains(t, h.audit.actions(logging.OutcomeSuccess), logging.ActionFreeDrone)
	assert.Equal(t, 1.0, testutil.ToFloat64(assignmentReassignments))
}

func TestHandleUrgentReassignment_FreedHoldersNotRestored(t *testing.T) {
	mem := fixture()
	ctx := context.Background()
	// P2 holds M1 without the Thermal skill; once freed nobody can take M1
	// because P1 is on leave.
	require.NoError(t, mem.CommitField(ctx, store.KindPilot, "P1", "status", "On Leave"))
	require.NoError(t, mem.CommitField(ctx, store.KindPilot, "P2", "status", "Assigned"))
	require.NoError(t, mem.CommitField(ctx, store.KindPilot, "P2", "current_assignment", "M1"))
	h := newHarness(t, mem)

	_, err := h.engine.HandleUrgentReassignment(ctx, "M1", "weather")
	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, ReasonNoSuitablePilot, aerr.Reason)

	p, err := h.roster.Get(ctx, "P2")
	require.NoError(t, err)
	assert.Equal(t, model.PilotAvailable, p.Status)
	assert.Empty(t, p.CurrentAssignment)
}

func TestHandleUrgentReassignment_FreeFailureIsNotFatal(t *testing.T) {
	mem := fixture()
	ctx := context.Background()
	require.NoError(t, mem.CommitField(ctx, store.KindDrone, "D2", "status", "Assigned"))
	require.NoError(t, mem.CommitField(ctx, store.KindDrone, "D2", "current_assignment", "M1"))
	rs := &faultyStore{Memory: mem, fail: func(kind store.Kind, id, _, _ string) bool {
		return kind == store.KindDrone && id == "D2"
	}}
	h := newHarness(t, rs)

	res, err := h.engine.HandleUrgentReassignment(ctx, "M1", "")
	require.NoError(t, err)
	assert.Equal(t, "D1", res.DroneID)
	assert.Contains(t, h.audit.actions(logging.OutcomeFailure), logging.ActionFreeDrone)
}

func TestState(t *testing.T) {
	mem := fixture()
	ctx := context.Background()
	h := newHarness(t, mem)

	st, err := h.engine.State(ctx, "M2")
	require.NoError(t, err)
	assert.Equal(t, StateUnassigned, st)

	require.NoError(t, mem.CommitField(ctx, store.KindPilot, "P2", "current_assignment", "M2"))
	st, err = h.engine.State(ctx, "M2")
	require.NoError(t, err)
	assert.Equal(t, StatePilotMatched, st)

	_, err = h.engine.State(ctx, "M9")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMatchers(t *testing.T) {
	h := newHarness(t, fixture())
	ctx := context.Background()

	p, ok, err := h.engine.MatchPilot(ctx, "M2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "P2", p.ID)

	_, ok, err = h.engine.MatchDrone(ctx, "M2")
	require.NoError(t, err)
	assert.False(t, ok, "no RGB drone in Pune")

	_, _, err = h.engine.MatchPilot(ctx, "M9")
	assert.ErrorIs(t, err, model.ErrNotFound)

	missions, err := h.engine.Missions(ctx)
	require.NoError(t, err)
	assert.Len(t, missions, 3)
}

func TestMetricsRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	ResetMetrics(reg)
	assignmentAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()
	assignmentDuration.WithLabelValues(logging.ActionAssign).Observe(0.1)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, n := range []string{"assignment_attempts_total", "assignment_rollbacks_total", "assignment_reassignments_total", "assignment_duration_seconds"} {
		assert.True(t, names[n], n)
	}
	assert.Panics(t, func() { MustRegisterMetrics(reg) }, "double registration")
}
