// Package store defines the record store collaborator used by the engines and
// the normalisation step that turns loosely shaped rows into typed records.
//
// Backends (memory, CSV, SQLite, Google Sheets) live in infra/recordstore and
// only move rows around; every business default is applied here, once per
// fetch.
package store

import (
	"context"

	"github.com/kilianp07/dronecoord/core/factory"
)

// Kind selects one of the three record tables.
type Kind string

const (
	KindPilot   Kind = "pilot"
	KindDrone   Kind = "drone"
	KindMission Kind = "mission"
)

// Kinds lists every table in a stable order.
var Kinds = []Kind{KindPilot, KindDrone, KindMission}

// Row is one raw record keyed by column header.
type Row map[string]string

// Table is an ordered snapshot of one kind. Columns keeps the header order of
// the backend so id detection can pick the first matching column.
type Table struct {
	Columns []string
	Rows    []Row
}

// RecordStore supplies and persists pilot, drone and mission rows.
//
// FetchAll must be idempotent and side-effect free. CommitField updates a
// single column of the row identified by id, resolving ids with LocateRow.
// Implementations report an unreachable backend with model.ErrStoreUnavailable,
// an unknown id with model.ErrNotFound and a rejected write with
// model.ErrCommitFailed.
type RecordStore interface {
	FetchAll(ctx context.Context, kind Kind) (Table, error)
	CommitField(ctx context.Context, kind Kind, id, field, value string) error
}

// Closer is implemented by backends holding connections or files.
type Closer interface {
	Close() error
}

var backendRegistry = factory.NewRegistry[RecordStore]()

// RegisterBackend adds a record store factory identified by name.
func RegisterBackend(name string, f factory.Factory[RecordStore]) error {
	return backendRegistry.Register(name, f)
}

// NewBackend instantiates the record store described by cfg.
func NewBackend(cfg factory.ModuleConfig) (RecordStore, error) {
	return backendRegistry.Create(cfg)
}
