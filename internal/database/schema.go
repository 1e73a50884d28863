package database

import (
	"context"
	"fmt"
	"log/slog"
)

// schemaVersion is stored in user_version; bump it when the DDL changes
const schemaVersion = 1

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS files (
		run_id INTEGER NOT NULL,
		path TEXT NOT NULL,
		status TEXT NOT NULL,
		error_kind TEXT,
		error TEXT,
		version INTEGER,
		num_item_types INTEGER,
		num_items INTEGER,
		num_data INTEGER,
		data_bytes INTEGER,
		duration_ms REAL,
		PRIMARY KEY (run_id, path),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS item_types (
		run_id INTEGER NOT NULL,
		path TEXT NOT NULL,
		type_id INTEGER NOT NULL,
		num INTEGER NOT NULL,
		PRIMARY KEY (run_id, path, type_id),
		FOREIGN KEY (run_id, path) REFERENCES files(run_id, path) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_files_status ON files(run_id, status)`,
}

// CreateSchema creates the results tables when they are missing
func (d *Database) CreateSchema(ctx context.Context) error {
	var current int
	if err := d.QueryRow(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	if current > schemaVersion {
		return fmt.Errorf("database %s has schema version %d, newer than supported %d", d.path, current, schemaVersion)
	}
	if current == schemaVersion {
		return nil
	}

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ddl := range schemaDDL {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema: %w", err)
	}

	slog.Debug("Created results schema", "path", d.path, "version", schemaVersion)
	return nil
}
