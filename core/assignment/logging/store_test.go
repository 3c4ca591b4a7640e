package logging

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleRecords(base time.Time) []LogRecord {
	return []LogRecord{
		{ID: "1", Timestamp: base, Action: ActionAssignPilot, MissionID: "M1", PilotID: "P1", Outcome: OutcomeSuccess},
		{ID: "2", Timestamp: base.Add(time.Second), Action: ActionAssignDrone, MissionID: "M1", PilotID: "P1", DroneID: "D1", Outcome: OutcomeFailure, Error: "quota"},
		{ID: "3", Timestamp: base.Add(2 * time.Second), Action: ActionRollback, MissionID: "M1", PilotID: "P1", Outcome: OutcomeSuccess},
		{ID: "4", Timestamp: base.Add(time.Hour), Action: ActionFreeDrone, MissionID: "M2", DroneID: "D1", Outcome: OutcomeSuccess},
	}
}

func checkQueries(t *testing.T, s LogStore, base time.Time) {
	t.Helper()
	ctx := context.Background()
	cases := []struct {
		name string
		q    LogQuery
		want []string
	}{
		{"all", LogQuery{}, []string{"1", "2", "3", "4"}},
		{"mission", LogQuery{MissionID: "M1"}, []string{"1", "2", "3"}},
		{"entity matches drone", LogQuery{EntityID: "D1"}, []string{"2", "4"}},
		{"action", LogQuery{Action: ActionRollback}, []string{"3"}},
		{"window", LogQuery{Start: base.Add(500 * time.Millisecond), End: base.Add(time.Minute)}, []string{"2", "3"}},
	}
	for _, c := range cases {
		out, err := s.Query(ctx, c.q)
		if err != nil {
			t.Fatalf("%s: query: %v", c.name, err)
		}
		got := make([]string, len(out))
		for i, r := range out {
			got[i] = r.ID
		}
		if strings.Join(got, ",") != strings.Join(c.want, ",") {
			t.Errorf("%s: got %v want %v", c.name, got, c.want)
		}
	}
}

func TestJSONLStore(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "audit.jsonl"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, r := range sampleRecords(base) {
		if err := s.Append(context.Background(), r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	checkQueries(t, s, base)
}

func TestSQLiteStore_PersistQuery(t *testing.T) {
	s, err := NewSQLiteStore("file:audit.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = s.Close() }()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, r := range sampleRecords(base) {
		if err := s.Append(context.Background(), r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	checkQueries(t, s, base)
}

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	s, err := NewRotatingJSONLStore(path, 1, 3, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = s.Close() }()
	rec := NewRecord(ActionAssign, "M1")
	rec.Error = strings.Repeat("x", 64*1024)
	const n = 20
	for i := 0; i < n; i++ {
		if err := s.Append(context.Background(), rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	files, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "audit*.jsonl"))
	if len(files) < 2 {
		t.Fatalf("expected rotated files, got %v", files)
	}
	out, err := s.Query(context.Background(), LogQuery{MissionID: "M1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != n {
		t.Fatalf("expected %d records across files, got %d", n, len(out))
	}
}

func TestNewRecord(t *testing.T) {
	a := NewRecord(ActionAssignPilot, "M1")
	b := NewRecord(ActionAssignPilot, "M1")
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected unique ids, got %q %q", a.ID, b.ID)
	}
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["action"] != ActionAssignPilot || m["mission_id"] != "M1" {
		t.Fatalf("unexpected json %s", data)
	}
	if _, ok := m["drone_id"]; ok {
		t.Fatalf("empty drone id should be omitted")
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{"none", "jsonl", "rotating", "sqlite"} {
		c := Config{Backend: backend, Path: filepath.Join(dir, backend+".log")}
		c.SetDefaults()
		s, err := Open(c)
		if err != nil {
			t.Fatalf("%s: %v", backend, err)
		}
		_ = s.Close()
	}
	if _, err := Open(Config{Backend: "kafka"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
