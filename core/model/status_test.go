package model

import (
	"errors"
	"testing"
)

func TestParsePilotStatus(t *testing.T) {
	cases := []struct {
		in   string
		want PilotStatus
		ok   bool
	}{
		{"Available", PilotAvailable, true},
		{" on leave ", PilotOnLeave, true},
		{"ASSIGNED", PilotAssigned, true},
		{"Unavailable", PilotUnavailable, true},
		{"Busy", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, err := ParsePilotStatus(c.in)
		if c.ok && err != nil {
			t.Errorf("%q: unexpected error %v", c.in, err)
			continue
		}
		if !c.ok {
			if !errors.Is(err, ErrValidation) {
				t.Errorf("%q: expected validation error, got %v", c.in, err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != "pilot status" {
				t.Errorf("%q: expected typed validation error, got %#v", c.in, err)
			}
			continue
		}
		if got != c.want {
			t.Errorf("%q: got %q want %q", c.in, got, c.want)
		}
	}
}

func TestParseDroneStatus(t *testing.T) {
	st, err := ParseDroneStatus("maintenance")
	if err != nil || st != DroneMaintenance {
		t.Fatalf("got %q %v", st, err)
	}
	if _, err := ParseDroneStatus("On Leave"); !errors.Is(err, ErrValidation) {
		t.Fatalf("drones cannot be on leave, got %v", err)
	}
}

func TestParseMissionStatus(t *testing.T) {
	st, err := ParseMissionStatus("Active")
	if err != nil || st != MissionActive {
		t.Fatalf("got %q %v", st, err)
	}
	if _, err := ParseMissionStatus("Cancelled"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStatusValid(t *testing.T) {
	if !PilotOnLeave.Valid() || PilotStatus("Busy").Valid() {
		t.Fatalf("pilot status validity mismatch")
	}
	if !DroneMaintenance.Valid() || DroneStatus("On Leave").Valid() {
		t.Fatalf("drone status validity mismatch")
	}
}

func TestConflictString(t *testing.T) {
	c := Conflict{
		Kind:       ConflictDoubleBooking,
		Severity:   SeverityHigh,
		EntityType: EntityPilot,
		EntityID:   "P2",
		MissionIDs: []string{"M2", "M3"},
	}
	if got := c.String(); got != "[high] pilot P2: missions M2, M3 overlap" {
		t.Fatalf("unexpected %q", got)
	}
	b := Conflict{Kind: ConflictBudgetOverrun, Severity: SeverityMedium, EntityType: EntityPilot, EntityID: "P1", MissionID: "M1", Budget: 100, Cost: 150, Overrun: 50}
	if got := b.String(); got != "[medium] pilot P1 on M1: cost 150.00 exceeds budget 100.00 by 50.00" {
		t.Fatalf("unexpected %q", got)
	}
}
