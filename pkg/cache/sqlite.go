// Package cache stores normalized build results in SQLite so an unchanged
// report is not parsed twice.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ccollicutt/sippstat/pkg/fields"
	"github.com/ccollicutt/sippstat/pkg/normalize"
	"github.com/ccollicutt/sippstat/pkg/schema"
	"github.com/ccollicutt/sippstat/pkg/series"
)

// ErrNotFound is returned by Load when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// schemaVersion is stored in PRAGMA user_version. Tables written by another
// version are dropped and rebuilt.
const schemaVersion = 2

// Store is a SQLite-backed result cache.
type Store struct {
	db *sql.DB
}

// Open creates the database file and schema if needed.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	// an in-memory database exists once per connection
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if version != schemaVersion {
		drop := `
		DROP TABLE IF EXISTS diagnostics;
		DROP TABLE IF EXISTS records;
		DROP TABLE IF EXISTS bucket_columns;
		DROP TABLE IF EXISTS results;
		`
		if _, err := db.Exec(drop); err != nil {
			return fmt.Errorf("dropping stale schema: %w", err)
		}
	}

	ddl := `
	CREATE TABLE IF NOT EXISTS results (
		result_key          TEXT    NOT NULL PRIMARY KEY,
		source              TEXT    NOT NULL,
		rows_read           INTEGER NOT NULL,
		rows_excluded       INTEGER NOT NULL,
		rows_outside_window INTEGER NOT NULL,
		window_min          INTEGER NOT NULL,
		window_max          INTEGER NOT NULL,
		schema_warnings     TEXT    NOT NULL,
		has_columns         INTEGER NOT NULL,
		has_diagnostics     INTEGER NOT NULL,
		created_at          INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bucket_columns (
		result_key     TEXT    NOT NULL REFERENCES results(result_key) ON DELETE CASCADE,
		position       INTEGER NOT NULL,
		column_name    TEXT    NOT NULL,
		label          TEXT    NOT NULL,
		upper_bound_ms INTEGER NOT NULL,
		is_open        INTEGER NOT NULL,
		PRIMARY KEY (result_key, position)
	);

	CREATE TABLE IF NOT EXISTS records (
		result_key       TEXT    NOT NULL REFERENCES results(result_key) ON DELETE CASCADE,
		position         INTEGER NOT NULL,
		row_index        INTEGER NOT NULL,
		elapsed_seconds  INTEGER NOT NULL,
		ts_seconds       INTEGER,
		ts_nanos         INTEGER,
		call_rate        REAL    NOT NULL,
		target_rate      REAL    NOT NULL,
		successful_calls INTEGER NOT NULL,
		failed_calls     INTEGER NOT NULL,
		response_time    REAL    NOT NULL,
		call_length      REAL    NOT NULL,
		histogram        TEXT    NOT NULL,
		PRIMARY KEY (result_key, position)
	);

	CREATE TABLE IF NOT EXISTS diagnostics (
		result_key  TEXT    NOT NULL REFERENCES results(result_key) ON DELETE CASCADE,
		position    INTEGER NOT NULL,
		row_index   INTEGER NOT NULL,
		line        INTEGER NOT NULL,
		kind        TEXT    NOT NULL,
		column_name TEXT    NOT NULL,
		cell_value  TEXT    NOT NULL,
		reason      TEXT    NOT NULL,
		PRIMARY KEY (result_key, position)
	);
	`

	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("writing schema version: %w", err)
	}
	return nil
}

// Save stores r under key, replacing any previous entry. Callers normally
// cache the unwindowed result and apply the window after Load.
func (s *Store) Save(ctx context.Context, key, source string, r *series.Result) error {
	warnings, err := json.Marshal(r.SchemaWarnings)
	if err != nil {
		return fmt.Errorf("encoding schema warnings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM results WHERE result_key = ?", key); err != nil {
		return fmt.Errorf("failed to replace entry: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO results (result_key, source, rows_read, rows_excluded, rows_outside_window,
			window_min, window_max, schema_warnings, has_columns, has_diagnostics, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, key, source, r.RowsRead, r.RowsExcluded, r.RowsOutsideWindow,
		r.Window.Min, r.Window.Max, string(warnings),
		r.Series.Columns != nil, r.Diagnostics != nil, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}

	for i, col := range r.Series.Columns {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bucket_columns (result_key, position, column_name, label, upper_bound_ms, is_open)
			VALUES (?, ?, ?, ?, ?, ?)
		`, key, i, col.Column, col.Label, col.UpperBoundMs, col.Open)
		if err != nil {
			return fmt.Errorf("failed to insert bucket column %d: %w", i, err)
		}
	}

	for i, rec := range r.Series.Records {
		if err := insertRecord(ctx, tx, key, i, &rec); err != nil {
			return err
		}
	}

	for i, d := range r.Diagnostics {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO diagnostics (result_key, position, row_index, line, kind, column_name, cell_value, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, key, i, d.Row, d.Line, string(d.Kind), d.Column, d.Value, d.Reason)
		if err != nil {
			return fmt.Errorf("failed to insert diagnostic %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func insertRecord(ctx context.Context, tx *sql.Tx, key string, pos int, rec *normalize.Record) error {
	counts := make([]int64, len(rec.Histogram))
	for i, b := range rec.Histogram {
		counts[i] = b.Count
	}
	histogram, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("encoding histogram of record %d: %w", pos, err)
	}

	// seconds and nanoseconds separately; UnixNano overflows outside 1678-2262
	var tsSeconds, tsNanos sql.NullInt64
	if rec.Timestamp.Valid {
		tsSeconds = sql.NullInt64{Int64: rec.Timestamp.Time.Unix(), Valid: true}
		tsNanos = sql.NullInt64{Int64: int64(rec.Timestamp.Time.Nanosecond()), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (result_key, position, row_index, elapsed_seconds, ts_seconds, ts_nanos,
			call_rate, target_rate, successful_calls, failed_calls, response_time, call_length, histogram)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, key, pos, rec.Row, rec.ElapsedSeconds, tsSeconds, tsNanos,
		rec.CallRate, rec.TargetRate, rec.SuccessfulCalls, rec.FailedCalls,
		rec.ResponseTime.Seconds(), rec.CallLength.Seconds(), string(histogram))
	if err != nil {
		return fmt.Errorf("failed to insert record %d: %w", pos, err)
	}
	return nil
}

// Load returns the result stored under key, or ErrNotFound.
func (s *Store) Load(ctx context.Context, key string) (*series.Result, error) {
	var (
		r                          series.Result
		warnings                   string
		hasColumns, hasDiagnostics bool
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT rows_read, rows_excluded, rows_outside_window, window_min, window_max,
			schema_warnings, has_columns, has_diagnostics
		FROM results WHERE result_key = ?
	`, key).Scan(&r.RowsRead, &r.RowsExcluded, &r.RowsOutsideWindow, &r.Window.Min, &r.Window.Max,
		&warnings, &hasColumns, &hasDiagnostics)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	if err := json.Unmarshal([]byte(warnings), &r.SchemaWarnings); err != nil {
		return nil, fmt.Errorf("decoding schema warnings: %w", err)
	}

	r.Series = &series.Series{}
	if r.Series.Columns, err = s.loadColumns(ctx, key); err != nil {
		return nil, err
	}
	if hasColumns && r.Series.Columns == nil {
		r.Series.Columns = []schema.BucketColumn{}
	}
	if r.Series.Records, err = s.loadRecords(ctx, key, r.Series.Columns); err != nil {
		return nil, err
	}
	if r.Diagnostics, err = s.loadDiagnostics(ctx, key); err != nil {
		return nil, err
	}
	if hasDiagnostics && r.Diagnostics == nil {
		r.Diagnostics = []normalize.Diagnostic{}
	}

	if err := r.Series.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) loadColumns(ctx context.Context, key string) ([]schema.BucketColumn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT column_name, label, upper_bound_ms, is_open
		FROM bucket_columns WHERE result_key = ? ORDER BY position
	`, key)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cols []schema.BucketColumn
	for rows.Next() {
		var c schema.BucketColumn
		if err := rows.Scan(&c.Column, &c.Label, &c.UpperBoundMs, &c.Open); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (s *Store) loadRecords(ctx context.Context, key string, cols []schema.BucketColumn) ([]normalize.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT row_index, elapsed_seconds, ts_seconds, ts_nanos, call_rate, target_rate,
			successful_calls, failed_calls, response_time, call_length, histogram
		FROM records WHERE result_key = ? ORDER BY position
	`, key)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []normalize.Record{}
	for rows.Next() {
		var (
			rec                      normalize.Record
			tsSeconds, tsNanos       sql.NullInt64
			responseTime, callLength float64
			histogram                string
		)
		err := rows.Scan(&rec.Row, &rec.ElapsedSeconds, &tsSeconds, &tsNanos, &rec.CallRate, &rec.TargetRate,
			&rec.SuccessfulCalls, &rec.FailedCalls, &responseTime, &callLength, &histogram)
		if err != nil {
			return nil, err
		}

		if tsSeconds.Valid {
			rec.Timestamp = fields.NewTimestamp(time.Unix(tsSeconds.Int64, tsNanos.Int64).UTC())
		}
		rec.ResponseTime = fields.Duration(responseTime)
		rec.CallLength = fields.Duration(callLength)

		var counts []int64
		if err := json.Unmarshal([]byte(histogram), &counts); err != nil {
			return nil, fmt.Errorf("%w: histogram of record %d: %v", series.ErrCorruptSeries, rec.Row, err)
		}
		if len(counts) != len(cols) {
			return nil, fmt.Errorf("%w: record %d has %d buckets, want %d", series.ErrCorruptSeries, rec.Row, len(counts), len(cols))
		}
		rec.Histogram = make([]normalize.Bucket, len(cols))
		for i, col := range cols {
			rec.Histogram[i] = normalize.Bucket{UpperBoundMs: col.UpperBoundMs, Open: col.Open, Count: counts[i]}
		}

		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) loadDiagnostics(ctx context.Context, key string) ([]normalize.Diagnostic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT row_index, line, kind, column_name, cell_value, reason
		FROM diagnostics WHERE result_key = ? ORDER BY position
	`, key)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var diags []normalize.Diagnostic
	for rows.Next() {
		var (
			d    normalize.Diagnostic
			kind string
		)
		if err := rows.Scan(&d.Row, &d.Line, &kind, &d.Column, &d.Value, &d.Reason); err != nil {
			return nil, err
		}
		d.Kind = normalize.Kind(kind)
		diags = append(diags, d)
	}
	return diags, rows.Err()
}

// Delete removes the entry stored under key. Deleting a missing key is not
// an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM results WHERE result_key = ?", key)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
