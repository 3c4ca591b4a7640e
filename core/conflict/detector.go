// Package conflict finds inconsistencies in committed assignments: double
// bookings, skill and certification gaps, location mismatches, budget
// overruns, weather risks and drones flying past their maintenance date.
//
// Scans are read-only and recomputed from a fresh snapshot on every call.
// Records with missing or malformed fields are skipped, never fatal.
package conflict

import (
	"context"
	"strings"
	"time"

	"github.com/kilianp07/dronecoord/core/eligibility"
	"github.com/kilianp07/dronecoord/core/events"
	"github.com/kilianp07/dronecoord/core/logger"
	"github.com/kilianp07/dronecoord/core/metrics"
	"github.com/kilianp07/dronecoord/core/model"
	"github.com/kilianp07/dronecoord/core/store"
	"github.com/kilianp07/dronecoord/internal/eventbus"
)

// Option configures a Detector.
type Option func(*Detector)

// WithClock replaces time.Now for maintenance checks.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// WithMetrics forwards DetectAll results to sink when it implements
// metrics.ConflictRecorder.
func WithMetrics(sink metrics.MetricsSink) Option {
	return func(d *Detector) { d.metrics = sink }
}

// WithEventBus publishes a ConflictScanEvent after every DetectAll.
func WithEventBus(bus *eventbus.TypedBus[events.ConflictScanEvent]) Option {
	return func(d *Detector) { d.bus = bus }
}

// Detector runs conflict scans against a record store.
type Detector struct {
	records *store.Records
	log     logger.Logger
	now     func() time.Time
	metrics metrics.MetricsSink
	bus     *eventbus.TypedBus[events.ConflictScanEvent]
}

// New returns a detector over rs.
func New(rs store.RecordStore, log logger.Logger, opts ...Option) *Detector {
	d := &Detector{records: store.NewRecords(rs), log: log, now: time.Now}
	for _, o := range opts {
		o(d)
	}
	return d
}

// snapshot is one consistent read of the three tables.
type snapshot struct {
	pilots   []model.Pilot
	drones   []model.Drone
	missions map[string]model.Mission
	now      time.Time
}

func (d *Detector) snapshot(ctx context.Context) (snapshot, error) {
	pilots, err := d.records.Pilots(ctx)
	if err != nil {
		return snapshot{}, err
	}
	drones, err := d.records.Drones(ctx)
	if err != nil {
		return snapshot{}, err
	}
	missions, err := d.records.Missions(ctx)
	if err != nil {
		return snapshot{}, err
	}
	byID := make(map[string]model.Mission, len(missions))
	for _, m := range missions {
		if _, seen := byID[m.ID]; !seen {
			byID[m.ID] = m
		}
	}
	return snapshot{pilots: pilots, drones: drones, missions: byID, now: d.now()}, nil
}

func (d *Detector) scan(ctx context.Context, fn func(snapshot) []model.Conflict) ([]model.Conflict, error) {
	s, err := d.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return fn(s), nil
}

// DetectDoubleBookings reports every pilot or drone holding two missions
// whose date ranges overlap.
func (d *Detector) DetectDoubleBookings(ctx context.Context) ([]model.Conflict, error) {
	return d.scan(ctx, doubleBookings)
}

// DetectSkillMismatches reports assigned pilots lacking a required skill or
// certification of their mission.
func (d *Detector) DetectSkillMismatches(ctx context.Context) ([]model.Conflict, error) {
	return d.scan(ctx, skillMismatches)
}

// DetectLocationMismatches reports assigned pilots and drones whose location
// differs from the mission's.
func (d *Detector) DetectLocationMismatches(ctx context.Context) ([]model.Conflict, error) {
	return d.scan(ctx, locationMismatches)
}

// DetectBudgetOverruns reports assigned pilots costing more than the
// mission budget.
func (d *Detector) DetectBudgetOverruns(ctx context.Context) ([]model.Conflict, error) {
	return d.scan(ctx, budgetOverruns)
}

// DetectWeatherRisks reports assigned drones unable to fly in the mission
// forecast.
func (d *Detector) DetectWeatherRisks(ctx context.Context) ([]model.Conflict, error) {
	return d.scan(ctx, weatherRisks)
}

// DetectMaintenanceIssues reports assigned drones whose maintenance is due.
func (d *Detector) DetectMaintenanceIssues(ctx context.Context) ([]model.Conflict, error) {
	return d.scan(ctx, maintenanceIssues)
}

// DetectAll runs every scan over a single snapshot.
func (d *Detector) DetectAll(ctx context.Context) (Report, error) {
	start := time.Now()
	s, err := d.snapshot(ctx)
	if err != nil {
		return Report{}, err
	}
	r := Report{
		DoubleBookings:     doubleBookings(s),
		SkillMismatches:    skillMismatches(s),
		LocationMismatches: locationMismatches(s),
		BudgetOverruns:     budgetOverruns(s),
		WeatherRisks:       weatherRisks(s),
		MaintenanceIssues:  maintenanceIssues(s),
	}
	elapsed := time.Since(start)
	d.log.Debugw("conflict scan", map[string]any{"total": r.Len(), "duration_ms": elapsed.Milliseconds()})
	if r.Len() > 0 {
		d.log.Warnf("%d conflicts detected", r.Len())
	}

	now := time.Now()
	if cr, ok := d.metrics.(metrics.ConflictRecorder); ok {
		if err := cr.RecordConflictScan(metrics.ConflictScan{
			Counts:   r.Counts(),
			Total:    r.Len(),
			Duration: elapsed,
			Time:     now,
		}); err != nil {
			d.log.Errorf("conflict metrics error: %v", err)
		}
	}
	if d.bus != nil {
		d.bus.Publish(events.ConflictScanEvent{Conflicts: r.All(), Time: now})
	}
	return r, nil
}

// holding is one resource row holding a mission.
type holding struct {
	id      string
	mission string
}

func doubleBookings(s snapshot) []model.Conflict {
	var pilotRows, droneRows []holding
	for _, p := range s.pilots {
		if p.HasAssignment() {
			pilotRows = append(pilotRows, holding{p.ID, p.CurrentAssignment})
		}
	}
	for _, d := range s.drones {
		if d.HasAssignment() {
			droneRows = append(droneRows, holding{d.ID, d.CurrentAssignment})
		}
	}
	out := overlapping(s, model.EntityPilot, pilotRows)
	return append(out, overlapping(s, model.EntityDrone, droneRows)...)
}

// overlapping groups rows by id in first-seen order and tests each pair of
// distinct missions held by the same id.
func overlapping(s snapshot, entity string, rows []holding) []model.Conflict {
	var order []string
	held := map[string][]string{}
	for _, h := range rows {
		if _, seen := held[h.id]; !seen {
			order = append(order, h.id)
		}
		held[h.id] = append(held[h.id], h.mission)
	}
	var out []model.Conflict
	for _, id := range order {
		list := held[id]
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				if list[i] == list[j] {
					continue
				}
				a, okA := s.missions[list[i]]
				b, okB := s.missions[list[j]]
				if !okA || !okB {
					continue
				}
				if eligibility.DatesOverlap(a.StartDate, a.EndDate, b.StartDate, b.EndDate) {
					out = append(out, model.Conflict{
						Kind:       model.ConflictDoubleBooking,
						Severity:   model.SeverityHigh,
						EntityType: entity,
						EntityID:   id,
						MissionIDs: []string{list[i], list[j]},
					})
				}
			}
		}
	}
	return out
}

func skillMismatches(s snapshot) []model.Conflict {
	var out []model.Conflict
	for _, p := range s.pilots {
		m, ok := s.assigned(p.CurrentAssignment)
		if !ok {
			continue
		}
		if !eligibility.SkillsMatch(p.Skills, m.RequiredSkills) {
			out = append(out, model.Conflict{
				Kind:       model.ConflictSkillMismatch,
				Severity:   model.SeverityHigh,
				EntityType: model.EntityPilot,
				EntityID:   p.ID,
				MissionID:  m.ID,
				Required:   m.RequiredSkills,
				Actual:     p.Skills,
			})
		}
		if !eligibility.CertificationsMatch(p.Certifications, m.RequiredCerts) {
			out = append(out, model.Conflict{
				Kind:       model.ConflictCertificationMismatch,
				Severity:   model.SeverityHigh,
				EntityType: model.EntityPilot,
				EntityID:   p.ID,
				MissionID:  m.ID,
				Required:   m.RequiredCerts,
				Actual:     p.Certifications,
			})
		}
	}
	return out
}

func locationMismatches(s snapshot) []model.Conflict {
	var out []model.Conflict
	check := func(entity, id, loc, missionID string) {
		m, ok := s.assigned(missionID)
		if !ok || !differentPlace(loc, m.Location) {
			return
		}
		out = append(out, model.Conflict{
			Kind:            model.ConflictLocationMismatch,
			Severity:        model.SeverityMedium,
			EntityType:      entity,
			EntityID:        id,
			MissionID:       m.ID,
			EntityLocation:  loc,
			MissionLocation: m.Location,
		})
	}
	for _, p := range s.pilots {
		check(model.EntityPilot, p.ID, p.Location, p.CurrentAssignment)
	}
	for _, d := range s.drones {
		check(model.EntityDrone, d.ID, d.Location, d.CurrentAssignment)
	}
	return out
}

// differentPlace compares locations case-insensitively. Unknown locations
// never conflict.
func differentPlace(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return !strings.EqualFold(a, b)
}

func budgetOverruns(s snapshot) []model.Conflict {
	var out []model.Conflict
	for _, p := range s.pilots {
		m, ok := s.assigned(p.CurrentAssignment)
		if !ok || m.Budget <= 0 {
			continue
		}
		cost := eligibility.Cost(p.DailyRate, m.StartDate, m.EndDate)
		if cost <= m.Budget {
			continue
		}
		out = append(out, model.Conflict{
			Kind:       model.ConflictBudgetOverrun,
			Severity:   model.SeverityMedium,
			EntityType: model.EntityPilot,
			EntityID:   p.ID,
			MissionID:  m.ID,
			Budget:     m.Budget,
			Cost:       cost,
			Overrun:    cost - m.Budget,
		})
	}
	return out
}

func weatherRisks(s snapshot) []model.Conflict {
	var out []model.Conflict
	for _, d := range s.drones {
		m, ok := s.assigned(d.CurrentAssignment)
		if !ok || strings.TrimSpace(m.WeatherForecast) == "" {
			continue
		}
		if eligibility.WeatherCompatible(d.WeatherResistance, m.WeatherForecast) {
			continue
		}
		out = append(out, model.Conflict{
			Kind:              model.ConflictWeatherRisk,
			Severity:          model.SeverityHigh,
			EntityType:        model.EntityDrone,
			EntityID:          d.ID,
			MissionID:         m.ID,
			WeatherResistance: d.WeatherResistance,
			Forecast:          m.WeatherForecast,
		})
	}
	return out
}

func maintenanceIssues(s snapshot) []model.Conflict {
	var out []model.Conflict
	for _, d := range s.drones {
		if !d.HasAssignment() || !eligibility.MaintenanceDue(d.MaintenanceDue, s.now) {
			continue
		}
		out = append(out, model.Conflict{
			Kind:           model.ConflictMaintenanceDue,
			Severity:       model.SeverityHigh,
			EntityType:     model.EntityDrone,
			EntityID:       d.ID,
			MissionID:      d.CurrentAssignment,
			MaintenanceDue: d.MaintenanceDue,
		})
	}
	return out
}

// assigned resolves a current assignment to its mission.
func (s snapshot) assigned(missionID string) (model.Mission, bool) {
	if missionID == "" {
		return model.Mission{}, false
	}
	m, ok := s.missions[missionID]
	return m, ok
}
