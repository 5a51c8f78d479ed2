package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/talgya/spinmc/internal/engine"
	"github.com/talgya/spinmc/internal/vec"
)

// RunInfo is the stored description of a run.
type RunInfo struct {
	ID         string  `db:"id" json:"id"`
	CreatedAt  string  `db:"created_at" json:"created_at"`
	FinishedAt *string `db:"finished_at" json:"finished_at,omitempty"`
	Sample     string  `db:"sample" json:"sample"`
	Sites      int     `db:"sites" json:"sites"`
	TypesJSON  string  `db:"types_json" json:"-"`
	MCS        int     `db:"mcs" json:"mcs"`
	Seed       int64   `db:"seed" json:"seed"`
	KB         float64 `db:"kb" json:"kb"`
	Points     int     `db:"points" json:"points"`
	Status     string  `db:"status" json:"status"`

	Types []string `db:"-" json:"types"`
}

// PointInfo is one stored schedule point.
type PointInfo struct {
	Point       int     `db:"point" json:"point"`
	Temperature float64 `db:"temperature" json:"temperature"`
	Field       float64 `db:"field" json:"field"`
	Proposals   int     `db:"proposals" json:"proposals"`
	Rejections  int     `db:"rejections" json:"rejections"`
	Done        bool    `db:"done" json:"done"`
}

const runColumns = "id, created_at, finished_at, sample, sites, types_json, mcs, seed, kb, points, status"

func (r *RunInfo) decode() error {
	if err := json.Unmarshal([]byte(r.TypesJSON), &r.Types); err != nil {
		return fmt.Errorf("run %s types: %w", r.ID, err)
	}
	return nil
}

// Run returns the run with the given id.
func (db *DB) Run(ctx context.Context, id string) (*RunInfo, error) {
	var r RunInfo
	if err := db.conn.GetContext(ctx, &r, "SELECT "+runColumns+" FROM runs WHERE id = ?", id); err != nil {
		return nil, notFound(err, id)
	}
	if err := r.decode(); err != nil {
		return nil, err
	}
	return &r, nil
}

// LatestRun returns the most recently created run.
func (db *DB) LatestRun(ctx context.Context) (*RunInfo, error) {
	var r RunInfo
	if err := db.conn.GetContext(ctx, &r, "SELECT "+runColumns+" FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1"); err != nil {
		return nil, notFound(err, "latest")
	}
	if err := r.decode(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Runs lists every run, newest first.
func (db *DB) Runs(ctx context.Context) ([]RunInfo, error) {
	var runs []RunInfo
	if err := db.conn.SelectContext(ctx, &runs, "SELECT "+runColumns+" FROM runs ORDER BY created_at DESC, rowid DESC"); err != nil {
		return nil, err
	}
	for i := range runs {
		if err := runs[i].decode(); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Schedule returns the points of a run in order.
func (db *DB) Schedule(ctx context.Context, id string) ([]PointInfo, error) {
	var points []PointInfo
	err := db.conn.SelectContext(ctx, &points,
		"SELECT point, temperature, field, proposals, rejections, done FROM schedule WHERE run_id = ? ORDER BY point",
		id,
	)
	return points, err
}

// Sites returns the stored positions and type labels of a run.
func (db *DB) Sites(ctx context.Context, id string) ([]vec.Vector3, []string, error) {
	var rows []struct {
		X    float64 `db:"x"`
		Y    float64 `db:"y"`
		Z    float64 `db:"z"`
		Type string  `db:"type"`
	}
	if err := db.conn.SelectContext(ctx, &rows, "SELECT x, y, z, type FROM sites WHERE run_id = ? ORDER BY idx", id); err != nil {
		return nil, nil, err
	}
	pos := make([]vec.Vector3, len(rows))
	types := make([]string, len(rows))
	for i, r := range rows {
		pos[i] = vec.New(r.X, r.Y, r.Z)
		types[i] = r.Type
	}
	return pos, types, nil
}

// Series reassembles one named history of a point from its chunks.
func (db *DB) Series(ctx context.Context, id string, point int, name string) ([]float64, error) {
	var blobs [][]byte
	err := db.conn.SelectContext(ctx, &blobs,
		"SELECT data FROM series WHERE run_id = ? AND point = ? AND name = ? ORDER BY chunk",
		id, point, name,
	)
	if err != nil {
		return nil, err
	}
	if len(blobs) == 0 {
		return nil, fmt.Errorf("%w: %s has no series %q at point %d", ErrRunNotFound, id, name, point)
	}
	var out []float64
	for _, b := range blobs {
		chunk, err := decodeFloats(b)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", name, err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// FinalState returns the spin configuration recorded after a point.
func (db *DB) FinalState(ctx context.Context, id string, point int) ([]vec.Vector3, error) {
	var blob []byte
	err := db.conn.GetContext(ctx, &blob,
		"SELECT data FROM final_states WHERE run_id = ? AND point = ?",
		id, point,
	)
	if err != nil {
		return nil, notFound(err, id)
	}
	return decodeVectors(blob)
}

// Point reassembles everything stored for one point of a run.
func (db *DB) Point(ctx context.Context, run *RunInfo, point int) (*engine.PointResult, error) {
	var info PointInfo
	err := db.conn.GetContext(ctx, &info,
		"SELECT point, temperature, field, proposals, rejections, done FROM schedule WHERE run_id = ? AND point = ?",
		run.ID, point,
	)
	if err != nil {
		return nil, notFound(err, run.ID)
	}

	res := &engine.PointResult{
		Index:       point,
		Temperature: info.Temperature,
		Field:       info.Field,
		Proposals:   info.Proposals,
		Rejections:  info.Rejections,
	}
	if res.Energy, err = db.Series(ctx, run.ID, point, EnergySeries); err != nil {
		return nil, err
	}

	labels := append(append([]string(nil), run.Types...), TotalSeries)
	for _, label := range labels {
		var s engine.Series
		if s.X, err = db.Series(ctx, run.ID, point, MagnetizationSeries(label, "x")); err != nil {
			return nil, err
		}
		if s.Y, err = db.Series(ctx, run.ID, point, MagnetizationSeries(label, "y")); err != nil {
			return nil, err
		}
		if s.Z, err = db.Series(ctx, run.ID, point, MagnetizationSeries(label, "z")); err != nil {
			return nil, err
		}
		res.Magnetization = append(res.Magnetization, s)
	}

	if res.Spins, err = db.FinalState(ctx, run.ID, point); err != nil {
		return nil, err
	}
	return res, nil
}
