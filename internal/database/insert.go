package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Status values stored in files.status
const (
	StatusOK      = "ok"
	StatusFormat  = "format"
	StatusStorage = "storage"
)

// FileResult is one row of the files table together with its item type counts
type FileResult struct {
	Path      string
	Status    string
	ErrorKind string
	Error     string

	Version      int
	NumItemTypes int
	NumItems     int
	NumData      int
	DataBytes    int64
	Duration     time.Duration

	ItemTypes []ItemTypeCount
}

// ItemTypeCount is the number of items of one type in a file
type ItemTypeCount struct {
	TypeID uint16
	Num    int
}

// StatusCount is a row of Run.StatusCounts
type StatusCount struct {
	Status    string
	ErrorKind string
	Count     int
}

// Run records the results of one batch
type Run struct {
	db *Database
	id int64
}

// StartRun inserts a new run row
func (d *Database) StartRun(ctx context.Context) (*Run, error) {
	result, err := d.Exec(ctx, `INSERT INTO runs (started_at) VALUES (?)`, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("starting run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading run id: %w", err)
	}

	slog.Debug("Started run", "run_id", id)
	return &Run{db: d, id: id}, nil
}

// RunInfo is a row of Database.Runs
type RunInfo struct {
	ID         int64
	StartedAt  string
	FinishedAt string
	Files      int
}

// OpenRun returns an existing run
func (d *Database) OpenRun(ctx context.Context, id int64) (*Run, error) {
	var found int64
	if err := d.QueryRow(ctx, `SELECT id FROM runs WHERE id = ?`, id).Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %d does not exist", id)
		}
		return nil, fmt.Errorf("looking up run %d: %w", id, err)
	}
	return &Run{db: d, id: found}, nil
}

// Runs lists every run with its number of recorded files, oldest first
func (d *Database) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := d.Query(ctx, `SELECT r.id, r.started_at, COALESCE(r.finished_at, ''), COUNT(f.path)
		FROM runs r LEFT JOIN files f ON f.run_id = r.id
		GROUP BY r.id
		ORDER BY r.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		if err := rows.Scan(&info.ID, &info.StartedAt, &info.FinishedAt, &info.Files); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, nil
}

// ID returns the run's primary key
func (r *Run) ID() int64 {
	return r.id
}

// Record stores one file result. A path recorded twice in the same run is replaced.
func (r *Run) Record(ctx context.Context, res FileResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE run_id = ? AND path = ?`, r.id, res.Path); err != nil {
		return fmt.Errorf("replacing %s: %w", res.Path, err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO files
		(run_id, path, status, error_kind, error, version, num_item_types, num_items, num_data, data_bytes, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.id, res.Path, res.Status,
		nullString(res.ErrorKind), nullString(res.Error),
		nullInt(res.Version), res.NumItemTypes, res.NumItems, res.NumData, res.DataBytes,
		float64(res.Duration.Microseconds())/1000.0,
	)
	if err != nil {
		return fmt.Errorf("inserting %s: %w", res.Path, err)
	}

	if len(res.ItemTypes) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO item_types (run_id, path, type_id, num) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing item type insert: %w", err)
		}
		defer stmt.Close()

		for _, t := range res.ItemTypes {
			if _, err := stmt.ExecContext(ctx, r.id, res.Path, t.TypeID, t.Num); err != nil {
				return fmt.Errorf("inserting item type %d for %s: %w", t.TypeID, res.Path, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", res.Path, err)
	}

	return nil
}

// Finish stamps the run's finish time
func (r *Run) Finish(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `UPDATE runs SET finished_at = ? WHERE id = ?`, time.Now().UTC().Format(time.RFC3339Nano), r.id); err != nil {
		return fmt.Errorf("finishing run %d: %w", r.id, err)
	}
	return nil
}

// StatusCounts groups the run's files by status and error kind
func (r *Run) StatusCounts(ctx context.Context) ([]StatusCount, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COALESCE(error_kind, ''), COUNT(*)
		FROM files WHERE run_id = ?
		GROUP BY status, error_kind
		ORDER BY status, error_kind`, r.id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []StatusCount
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Status, &c.ErrorKind, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status counts: %w", err)
	}

	return counts, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}
