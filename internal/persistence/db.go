// Package persistence provides the SQLite result store. A store holds any
// number of runs, each keyed by a random id.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SchemaVersion is recorded in the meta table on migration.
const SchemaVersion = "1"

// ErrRunNotFound is returned by readers when no run matches.
var ErrRunNotFound = errors.New("persistence: run not found")

// ErrSchemaVersion is returned by Open for a store written by another layout.
var ErrSchemaVersion = errors.New("persistence: unsupported schema version")

// DB wraps a SQLite connection holding simulation results.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		finished_at TEXT,
		sample TEXT NOT NULL,
		sites INTEGER NOT NULL,
		types_json TEXT NOT NULL,
		mcs INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		kb REAL NOT NULL,
		points INTEGER NOT NULL,
		status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sites (
		run_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		z REAL NOT NULL,
		type TEXT NOT NULL,
		PRIMARY KEY (run_id, idx)
	);

	CREATE TABLE IF NOT EXISTS schedule (
		run_id TEXT NOT NULL,
		point INTEGER NOT NULL,
		temperature REAL NOT NULL,
		field REAL NOT NULL,
		proposals INTEGER NOT NULL DEFAULT 0,
		rejections INTEGER NOT NULL DEFAULT 0,
		done INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, point)
	);

	CREATE TABLE IF NOT EXISTS series (
		run_id TEXT NOT NULL,
		point INTEGER NOT NULL,
		name TEXT NOT NULL,
		chunk INTEGER NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY (run_id, point, name, chunk)
	);

	CREATE TABLE IF NOT EXISTS final_states (
		run_id TEXT NOT NULL,
		point INTEGER NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY (run_id, point)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return err
	}
	v, err := db.GetMeta("schema_version")
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return db.SaveMeta("schema_version", SchemaVersion)
	case err != nil:
		return err
	case v != SchemaVersion:
		return fmt.Errorf("%w: %s (want %s)", ErrSchemaVersion, v, SchemaVersion)
	}
	return nil
}

// SaveMeta stores a key-value pair in store metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

func notFound(err error, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return err
}

// DeleteRun removes a run and everything recorded under it.
func (db *DB) DeleteRun(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	for _, table := range []string{"sites", "schedule", "series", "final_states"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", id); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return tx.Commit()
}
