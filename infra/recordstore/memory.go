package recordstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/dronecoord/core/model"
	"github.com/kilianp07/dronecoord/core/store"
)

// Memory keeps ordered tables in memory. Duplicate ids are allowed; commits
// address the first matching row like every other backend.
type Memory struct {
	mu     sync.RWMutex
	tables map[store.Kind]*store.Table
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{tables: map[store.Kind]*store.Table{}}
}

// Load replaces the table of kind. Columns defaults to the sorted union of
// row keys when empty.
func (m *Memory) Load(kind store.Kind, t store.Table) {
	cp := cloneTable(t)
	if len(cp.Columns) == 0 {
		cp.Columns = columnsOf(cp.Rows)
	}
	m.mu.Lock()
	m.tables[kind] = &cp
	m.mu.Unlock()
}

// Append adds rows to the table of kind, extending the header with any new
// column.
func (m *Memory) Append(kind store.Kind, rows ...store.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[kind]
	if !ok {
		t = &store.Table{}
		m.tables[kind] = t
	}
	for _, r := range rows {
		for _, c := range columnsOf([]store.Row{r}) {
			if _, found := store.MatchColumn(t.Columns, c); !found {
				t.Columns = append(t.Columns, c)
			}
		}
		t.Rows = append(t.Rows, cloneRow(r))
	}
}

// FetchAll returns a copy of the table. An unknown kind is an empty table.
func (m *Memory) FetchAll(ctx context.Context, kind store.Kind) (store.Table, error) {
	if err := ctx.Err(); err != nil {
		return store.Table{}, fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[kind]
	if !ok {
		return store.Table{}, nil
	}
	return cloneTable(*t), nil
}

// CommitField updates one cell, adding the column if needed.
func (m *Memory) CommitField(ctx context.Context, kind store.Kind, id, field, value string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[kind]
	if !ok {
		return fmt.Errorf("%s %s: %w", kind, id, model.ErrNotFound)
	}
	idx := store.LocateRow(kind, *t, id)
	if idx < 0 {
		return fmt.Errorf("%s %s: %w", kind, id, model.ErrNotFound)
	}
	col, found := store.MatchColumn(t.Columns, field)
	if !found {
		col = field
		t.Columns = append(t.Columns, col)
	}
	t.Rows[idx][col] = value
	return nil
}

func cloneRow(r store.Row) store.Row {
	cp := make(store.Row, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

func cloneTable(t store.Table) store.Table {
	cp := store.Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]store.Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		cp.Rows[i] = cloneRow(r)
	}
	return cp
}

func columnsOf(rows []store.Row) []string {
	seen := map[string]struct{}{}
	var cols []string
	for _, r := range rows {
		for k := range r {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}
