package recordstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/kilianp07/dronecoord/core/model"
	"github.com/kilianp07/dronecoord/core/store"
)

// Files maps each kind to its file name inside a CSV directory.
var Files = map[store.Kind]string{
	store.KindPilot:   "pilots.csv",
	store.KindDrone:   "drones.csv",
	store.KindMission: "missions.csv",
}

// CSV stores each kind in a CSV file with a header row. Commits rewrite
// the whole file through a temporary file and a rename.
type CSV struct {
	dir string
	mu  sync.Mutex
}

// NewCSV returns a store over dir. The directory must exist; missing files
// are treated as empty tables.
func NewCSV(dir string) (*CSV, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("csv store: %w: %w", model.ErrStoreUnavailable, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("csv store: %w: %s is not a directory", model.ErrStoreUnavailable, dir)
	}
	return &CSV{dir: dir}, nil
}

func (c *CSV) path(kind store.Kind) string {
	return filepath.Join(c.dir, Files[kind])
}

// FetchAll reads the file of kind.
func (c *CSV) FetchAll(ctx context.Context, kind store.Kind) (store.Table, error) {
	if err := ctx.Err(); err != nil {
		return store.Table{}, fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return ReadCSVFile(c.path(kind))
}

// CommitField rewrites the file of kind with one cell changed.
func (c *CSV) CommitField(ctx context.Context, kind store.Kind, id, field, value string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := ReadCSVFile(c.path(kind))
	if err != nil {
		return err
	}
	idx := store.LocateRow(kind, t, id)
	if idx < 0 {
		return fmt.Errorf("%s %s: %w", kind, id, model.ErrNotFound)
	}
	col, found := store.MatchColumn(t.Columns, field)
	if !found {
		col = field
		t.Columns = append(t.Columns, col)
	}
	t.Rows[idx][col] = value
	if err := writeCSVFile(c.path(kind), t); err != nil {
		return fmt.Errorf("%w: %w", model.ErrCommitFailed, err)
	}
	return nil
}

// ReadCSVFile parses a CSV file with a header row. A missing file yields an
// empty table.
func ReadCSVFile(path string) (store.Table, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return store.Table{}, nil
	}
	if err != nil {
		return store.Table{}, fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	defer f.Close()
	t, err := ReadCSV(f)
	if err != nil {
		return store.Table{}, fmt.Errorf("%w: %s: %w", model.ErrStoreUnavailable, path, err)
	}
	return t, nil
}

// ReadCSV parses CSV data whose first record is the header.
func ReadCSV(r io.Reader) (store.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return store.Table{}, nil
	}
	if err != nil {
		return store.Table{}, err
	}
	t := store.Table{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return store.Table{}, err
		}
		row := make(store.Row, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteCSV encodes t with a header row.
func WriteCSV(w io.Writer, t store.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	rec := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, c := range t.Columns {
			rec[i] = r[c]
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeCSVFile(path string, t store.Table) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".records-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := WriteCSV(tmp, t); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadCSVDir reads every kind from a CSV directory into tables. It seeds the
// memory and SQLite backends.
func LoadCSVDir(dir string) (map[store.Kind]store.Table, error) {
	out := make(map[store.Kind]store.Table, len(Files))
	for _, k := range store.Kinds {
		t, err := ReadCSVFile(filepath.Join(dir, Files[k]))
		if err != nil {
			return nil, err
		}
		out[k] = t
	}
	return out, nil
}
