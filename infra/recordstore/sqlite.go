package recordstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kilianp07/dronecoord/core/model"
	"github.com/kilianp07/dronecoord/core/store"
	_ "modernc.org/sqlite"
)

// SQLite keeps every row as a JSON object in a single records table. The
// header order of each kind lives in record_columns.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the database and ensures schema. Use
// ":memory:" for a throwaway database.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	// a single connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)
	schema := []string{
		`CREATE TABLE IF NOT EXISTS records (
        kind TEXT NOT NULL,
        seq INTEGER NOT NULL,
        data TEXT NOT NULL,
        PRIMARY KEY(kind, seq)
    );`,
		`CREATE TABLE IF NOT EXISTS record_columns (
        kind TEXT NOT NULL,
        position INTEGER NOT NULL,
        name TEXT NOT NULL,
        PRIMARY KEY(kind, position)
    );`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
		}
	}
	return &SQLite{db: db}, nil
}

// Empty reports whether no rows are stored at all.
func (s *SQLite) Empty(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return false, fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	return n == 0, nil
}

// Seed replaces the table of kind.
func (s *SQLite) Seed(ctx context.Context, kind store.Kind, t store.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrCommitFailed, err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE kind = ?`, string(kind)); err != nil {
		return fmt.Errorf("%w: %w", model.ErrCommitFailed, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM record_columns WHERE kind = ?`, string(kind)); err != nil {
		return fmt.Errorf("%w: %w", model.ErrCommitFailed, err)
	}
	for i, c := range t.Columns {
		if _, err := tx.ExecContext(ctx, `INSERT INTO record_columns (kind, position, name) VALUES (?, ?, ?)`, string(kind), i, c); err != nil {
			return fmt.Errorf("%w: %w", model.ErrCommitFailed, err)
		}
	}
	for i, r := range t.Rows {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("%w: %w", model.ErrCommitFailed, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO records (kind, seq, data) VALUES (?, ?, ?)`, string(kind), i, string(data)); err != nil {
			return fmt.Errorf("%w: %w", model.ErrCommitFailed, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrCommitFailed, err)
	}
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func readTable(ctx context.Context, q querier, kind store.Kind) (store.Table, []int64, error) {
	var t store.Table
	cols, err := q.QueryContext(ctx, `SELECT name FROM record_columns WHERE kind = ? ORDER BY position`, string(kind))
	if err != nil {
		return t, nil, err
	}
	for cols.Next() {
		var name string
		if err := cols.Scan(&name); err != nil {
			_ = cols.Close()
			return t, nil, err
		}
		t.Columns = append(t.Columns, name)
	}
	_ = cols.Close()
	if err := cols.Err(); err != nil {
		return t, nil, err
	}

	rows, err := q.QueryContext(ctx, `SELECT seq, data FROM records WHERE kind = ? ORDER BY seq`, string(kind))
	if err != nil {
		return t, nil, err
	}
	defer func() { _ = rows.Close() }()
	var seqs []int64
	for rows.Next() {
		var seq int64
		var data string
		if err := rows.Scan(&seq, &data); err != nil {
			return t, nil, err
		}
		row := store.Row{}
		if err := json.Unmarshal([]byte(data), &row); err != nil {
			return t, nil, fmt.Errorf("decode %s row %d: %w", kind, seq, err)
		}
		t.Rows = append(t.Rows, row)
		seqs = append(seqs, seq)
	}
	return t, seqs, rows.Err()
}

// FetchAll returns the rows of kind in insertion order.
func (s *SQLite) FetchAll(ctx context.Context, kind store.Kind) (store.Table, error) {
	t, _, err := readTable(ctx, s.db, kind)
	if err != nil {
		return store.Table{}, fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	return t, nil
}

// CommitField updates one cell inside a transaction.
func (s *SQLite) CommitField(ctx context.Context, kind store.Kind, id, field, value string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()
	t, seqs, err := readTable(ctx, tx, kind)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	idx := store.LocateRow(kind, t, id)
	if idx < 0 {
		return fmt.Errorf("%s %s: %w", kind, id, model.ErrNotFound)
	}
	col, found := store.MatchColumn(t.Columns, field)
	if !found {
		col = field
		if _, err := tx.ExecContext(ctx, `INSERT INTO record_columns (kind, position, name) VALUES (?, ?, ?)`,
			string(kind), len(t.Columns), col); err != nil {
			return fmt.Errorf("%w: %w", model.ErrCommitFailed, err)
		}
	}
	row := t.Rows[idx]
	row[col] = value
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrCommitFailed, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE records SET data = ? WHERE kind = ? AND seq = ?`,
		string(data), string(kind), seqs[idx]); err != nil {
		return fmt.Errorf("%w: %w", model.ErrCommitFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrCommitFailed, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
