package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dronecoord/core/assignment/logging"
	"github.com/kilianp07/dronecoord/core/model"
)

// setup copies the sample data into a temp dir so commits do not touch the
// repository and returns the config path.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.Mkdir(dataDir, 0o755))
	for _, name := range []string{"pilots.csv", "drones.csv", "missions.csv"} {
		b, err := os.ReadFile(filepath.Join("..", "data", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, name), b, 0o644))
	}
	cfg := "store:\n  type: csv\n  conf:\n    dir: " + dataDir + "\n" +
		"audit:\n  backend: jsonl\n  path: " + filepath.Join(dir, "audit.jsonl") + "\n" +
		"log:\n  level: error\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()
	return buf.String(), err
}

func TestPilotsCommand(t *testing.T) {
	cfg := setup(t)

	out, err := run(t, cfg, "pilots", "--json")
	require.NoError(t, err)
	var pilots []model.Pilot
	require.NoError(t, json.Unmarshal([]byte(out), &pilots))
	assert.Len(t, pilots, 3)

	out, err = run(t, cfg, "pilots", "--skill", "Inspection")
	require.NoError(t, err)
	assert.Contains(t, out, "Neha")
	assert.Contains(t, out, "Rohit")
	assert.NotContains(t, out, "Arjun")

	out, err = run(t, cfg, "pilots", "cost", "P1", "--start", "2024-03-01", "--end", "2024-03-03")
	require.NoError(t, err)
	assert.Equal(t, "P1 2024-03-01..2024-03-03: 4500.00\n", out)
}

func TestDronesCommand(t *testing.T) {
	cfg := setup(t)
	out, err := run(t, cfg, "drones", "--available", "--weather", "Rainy", "--json")
	require.NoError(t, err)
	var drones []model.Drone
	require.NoError(t, json.Unmarshal([]byte(out), &drones))
	ids := make([]string, len(drones))
	for i, d := range drones {
		ids[i] = d.ID
	}
	assert.ElementsMatch(t, []string{"D1", "D3"}, ids)
}

func TestAssignWorkflow(t *testing.T) {
	cfg := setup(t)

	out, err := run(t, cfg, "missions", "match", "M1")
	require.NoError(t, err)
	assert.Equal(t, "mission M1: pilot P1, drone D1\n", out)

	out, err = run(t, cfg, "assign", "M1")
	require.NoError(t, err)
	assert.Equal(t, "mission M1 assigned to pilot P1 and drone D1\n", out)

	out, err = run(t, cfg, "missions", "--json")
	require.NoError(t, err)
	var rows []missionRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.NotEmpty(t, rows)
	assert.Equal(t, "M1", rows[0].ID)
	assert.Equal(t, "fully_assigned", string(rows[0].State))

	_, err = run(t, cfg, "assign", "M3")
	assert.True(t, errors.Is(err, model.ErrNoSuitableCandidate), "got %v", err)

	out, err = run(t, cfg, "reassign", "M1", "--reason", "weather hold", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"pilot_id": "P1"`)

	out, err = run(t, cfg, "audit", "--mission", "M1", "--action", "reassign", "--json")
	require.NoError(t, err)
	var recs []logging.LogRecord
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "weather hold", recs[0].Reason)
}

func TestConflictsCommand(t *testing.T) {
	cfg := setup(t)

	out, err := run(t, cfg, "conflicts", "--format", "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "section,type,severity"))

	out, err = run(t, cfg, "conflicts")
	require.NoError(t, err)
	assert.Contains(t, out, "TOTAL")

	_, err = run(t, cfg, "conflicts", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestBadConfig(t *testing.T) {
	_, err := run(t, filepath.Join(t.TempDir(), "missing.yaml"), "pilots")
	assert.ErrorContains(t, err, "load config")
}
