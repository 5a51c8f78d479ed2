package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/spinmc/internal/engine"
)

// SeriesChunks is the number of blobs each history is split into.
const SeriesChunks = 5

// Run statuses.
const (
	StatusRunning    = "running"
	StatusComplete   = "complete"
	StatusIncomplete = "incomplete"
)

// timeLayout has fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Series names.
const (
	EnergySeries = "energy"
	TotalSeries  = "magnetization"
)

// MagnetizationSeries names the history of one component for a type label.
func MagnetizationSeries(label, axis string) string {
	return label + "_" + axis
}

// RunWriter records one run. It implements engine.Reporter.
type RunWriter struct {
	db     *DB
	id     string
	sample string
	types  []string
	points int
	done   int
}

// NewRunWriter returns a writer for a new run of sample. The run row is
// created by Open.
func (db *DB) NewRunWriter(sample string) *RunWriter {
	return &RunWriter{
		db:     db,
		id:     uuid.NewString(),
		sample: sample,
	}
}

// ID returns the run id.
func (w *RunWriter) ID() string { return w.id }

// Open records run metadata, site geometry and the schedule.
func (w *RunWriter) Open(ctx context.Context, meta engine.Metadata) error {
	for _, t := range meta.Types {
		if t == TotalSeries {
			return fmt.Errorf("type label %q collides with the total magnetization series", t)
		}
	}
	typesJSON, err := json.Marshal(meta.Types)
	if err != nil {
		return fmt.Errorf("marshal types: %w", err)
	}

	tx, err := w.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, created_at, sample, sites, types_json, mcs, seed, kb, points, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.id, time.Now().UTC().Format(timeLayout), w.sample, len(meta.Positions),
		string(typesJSON), meta.MCS, meta.Seed, meta.KB, len(meta.Temperatures), StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	siteStmt, err := tx.PreparexContext(ctx, "INSERT INTO sites (run_id, idx, x, y, z, type) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer siteStmt.Close()
	for i, p := range meta.Positions {
		if _, err := siteStmt.ExecContext(ctx, w.id, i, p.X, p.Y, p.Z, meta.SiteTypes[i]); err != nil {
			return fmt.Errorf("insert site %d: %w", i, err)
		}
	}

	pointStmt, err := tx.PreparexContext(ctx, "INSERT INTO schedule (run_id, point, temperature, field) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer pointStmt.Close()
	for i := range meta.Temperatures {
		if _, err := pointStmt.ExecContext(ctx, w.id, i, meta.Temperatures[i], meta.Fields[i]); err != nil {
			return fmt.Errorf("insert point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	w.types = meta.Types
	w.points = len(meta.Temperatures)
	slog.Info("run opened", "run", w.id, "sample", w.sample, "points", w.points)
	return nil
}

// WritePoint stores the histories and final configuration of one point.
func (w *RunWriter) WritePoint(ctx context.Context, p engine.PointResult) error {
	tx, err := w.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, "INSERT INTO series (run_id, point, name, chunk, data) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	put := func(name string, values []float64) error {
		for k, chunk := range splitChunks(values, SeriesChunks) {
			if _, err := stmt.ExecContext(ctx, w.id, p.Index, name, k, encodeFloats(chunk)); err != nil {
				return fmt.Errorf("insert series %s chunk %d: %w", name, k, err)
			}
		}
		return nil
	}

	if err := put(EnergySeries, p.Energy); err != nil {
		return err
	}
	for i, s := range p.Magnetization {
		label := TotalSeries
		if i < len(w.types) {
			label = w.types[i]
		}
		for _, c := range []struct {
			axis   string
			values []float64
		}{{"x", s.X}, {"y", s.Y}, {"z", s.Z}} {
			if err := put(MagnetizationSeries(label, c.axis), c.values); err != nil {
				return err
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO final_states (run_id, point, data) VALUES (?, ?, ?)",
		w.id, p.Index, encodeVectors(p.Spins),
	); err != nil {
		return fmt.Errorf("insert final state: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE schedule SET proposals = ?, rejections = ?, done = 1 WHERE run_id = ? AND point = ?",
		p.Proposals, p.Rejections, w.id, p.Index,
	); err != nil {
		return fmt.Errorf("update point: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	w.done++
	return nil
}

// Close marks the run complete, or incomplete when points are missing. The
// database itself stays open.
func (w *RunWriter) Close() error {
	status := StatusComplete
	if w.done < w.points {
		status = StatusIncomplete
	}
	_, err := w.db.conn.Exec(
		"UPDATE runs SET status = ?, finished_at = ? WHERE id = ?",
		status, time.Now().UTC().Format(timeLayout), w.id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	slog.Info("run closed", "run", w.id, "status", status, "points", w.done)
	return nil
}
