package recordstore

import (
	"context"
	"fmt"

	"github.com/kilianp07/dronecoord/core/factory"
	"github.com/kilianp07/dronecoord/core/store"
	"github.com/kilianp07/dronecoord/infra/logger"
)

// init registers the built-in backends.
func init() {
	_ = store.RegisterBackend("memory", func(conf map[string]any) (store.RecordStore, error) {
		var c struct {
			SeedDir string `json:"seed_dir"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		m := NewMemory()
		if c.SeedDir == "" {
			return m, nil
		}
		tables, err := LoadCSVDir(c.SeedDir)
		if err != nil {
			return nil, err
		}
		for k, t := range tables {
			m.Load(k, t)
		}
		return m, nil
	})

	_ = store.RegisterBackend("csv", func(conf map[string]any) (store.RecordStore, error) {
		var c struct {
			Dir string `json:"dir"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewCSV(c.Dir)
	})

	_ = store.RegisterBackend("sqlite", func(conf map[string]any) (store.RecordStore, error) {
		var c struct {
			Path    string `json:"path"`
			SeedDir string `json:"seed_dir"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			c.Path = "dronecoord.db"
		}
		db, err := NewSQLite(c.Path)
		if err != nil {
			return nil, err
		}
		if c.SeedDir != "" {
			if err := bootstrap(context.Background(), db, c.SeedDir); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return db, nil
	})

	_ = store.RegisterBackend("sheets", func(conf map[string]any) (store.RecordStore, error) {
		var c SheetsConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSheets(context.Background(), c)
	})
}

// bootstrap seeds an empty database from a CSV directory. A database that
// already holds rows is left untouched.
func bootstrap(ctx context.Context, db *SQLite, dir string) error {
	empty, err := db.Empty(ctx)
	if err != nil || !empty {
		return err
	}
	tables, err := LoadCSVDir(dir)
	if err != nil {
		return err
	}
	log := logger.New("recordstore")
	for _, k := range store.Kinds {
		if err := db.Seed(ctx, k, tables[k]); err != nil {
			return fmt.Errorf("seed %s: %w", k, err)
		}
		log.Infof("seeded %d %s rows from %s", len(tables[k].Rows), k, dir)
	}
	return nil
}
