package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/spinmc/internal/vec"
)

// Metadata describes a run once, before the first point.
type Metadata struct {
	Types        []string
	SiteTypes    []string
	Positions    []vec.Vector3
	Temperatures []float64
	Fields       []float64
	MCS          int
	Seed         int64
	KB           float64
}

// Series holds one component history per axis, one value per sweep.
type Series struct {
	X []float64
	Y []float64
	Z []float64
}

func newSeries(n int) Series {
	return Series{
		X: make([]float64, 0, n),
		Y: make([]float64, 0, n),
		Z: make([]float64, 0, n),
	}
}

func (s *Series) add(v vec.Vector3) {
	s.X = append(s.X, v.X)
	s.Y = append(s.Y, v.Y)
	s.Z = append(s.Z, v.Z)
}

// PointResult is everything recorded for one schedule point.
type PointResult struct {
	Index       int
	Temperature float64
	Field       float64
	Energy      []float64
	// Magnetization has one series per type index plus the all-sites series last.
	Magnetization []Series
	Spins         []vec.Vector3 // configuration after the last sweep
	Rejections    int
	Proposals     int
}

// Total returns the all-sites magnetization series.
func (p PointResult) Total() Series { return p.Magnetization[len(p.Magnetization)-1] }

// Reporter persists run output. Open is called once before the first point,
// WritePoint once per point in schedule order, and Close after the last point
// or after a failure.
type Reporter interface {
	Open(ctx context.Context, meta Metadata) error
	WritePoint(ctx context.Context, p PointResult) error
	Close() error
}

// Metadata returns the run description handed to the reporter.
func (e *Engine) Metadata() Metadata {
	return Metadata{
		Types:        e.lattice.Types(),
		SiteTypes:    e.lattice.SiteTypes(),
		Positions:    e.lattice.Positions(),
		Temperatures: e.opts.Temperatures,
		Fields:       e.opts.Fields,
		MCS:          e.opts.MCS,
		Seed:         e.opts.Seed,
		KB:           e.opts.KB,
	}
}

// Run executes the whole schedule. A point is never interrupted once started;
// ctx is checked between points only. The engine can run once.
func (e *Engine) Run(ctx context.Context, rep Reporter) (err error) {
	e.mu.Lock()
	if e.status.State != StateIdle {
		e.mu.Unlock()
		return ErrAlreadyRun
	}
	e.status.State = StateRunning
	e.status.StartedAt = time.Now()
	e.mu.Unlock()

	defer func() {
		e.updateStatus(func(s *Status) {
			s.State = StateDone
			s.FinishedAt = time.Now()
		})
	}()

	if err := rep.Open(ctx, e.Metadata()); err != nil {
		return fmt.Errorf("open reporter: %w", err)
	}
	defer func() {
		if cerr := rep.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close reporter: %w", cerr)
		}
	}()

	slog.Info("simulation started",
		"sites", e.lattice.Len(),
		"points", len(e.opts.Temperatures),
		"mcs", e.opts.MCS,
		"seed", e.opts.Seed,
	)
	start := time.Now()

	for p := range e.opts.Temperatures {
		if err := ctx.Err(); err != nil {
			slog.Warn("simulation cancelled", "point", p)
			return err
		}

		res := e.runPoint(p)
		if err := rep.WritePoint(ctx, res); err != nil {
			return fmt.Errorf("write point %d: %w", p, err)
		}
		if e.OnPoint != nil {
			e.OnPoint(res)
		}

		slog.Debug("point complete",
			"point", p,
			"T", res.Temperature,
			"H", res.Field,
			"energy", res.Energy[len(res.Energy)-1],
			"acceptance", acceptance(res.Proposals, res.Rejections),
		)
	}

	slog.Info("simulation finished", "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// runPoint performs mcs sweeps at schedule point p. Histories start empty for
// every point; the spin state does not.
func (e *Engine) runPoint(p int) PointResult {
	t, h := e.opts.Temperatures[p], e.opts.Fields[p]
	mcs := e.opts.MCS
	ntypes := len(e.lattice.Types())

	res := PointResult{
		Index:         p,
		Temperature:   t,
		Field:         h,
		Energy:        make([]float64, 0, mcs),
		Magnetization: make([]Series, ntypes+1),
	}
	for i := range res.Magnetization {
		res.Magnetization[i] = newSeries(mcs)
	}

	e.updateStatus(func(s *Status) {
		s.Point = p
		s.Sweep = 0
		s.Temperature = t
		s.Field = h
	})

	for sweep := 0; sweep < mcs; sweep++ {
		rejected := e.Sweep(t, h)

		energy := e.lattice.TotalEnergy(h)
		mag := e.lattice.Magnetization()
		res.Energy = append(res.Energy, energy)
		for i := range mag {
			res.Magnetization[i].add(mag[i])
		}
		res.Rejections += rejected
		res.Proposals += e.lattice.Len()

		if e.OnSweep != nil {
			e.OnSweep(SweepStats{
				Point:         p,
				Sweep:         sweep,
				Temperature:   t,
				Field:         h,
				Energy:        energy,
				Magnetization: mag[ntypes],
				Proposals:     append([]int(nil), e.proposals...),
				Rejections:    append([]int(nil), e.rejections...),
				Sigma:         append([]float64(nil), e.sigma...),
			})
		}

		e.adapt()

		sigma := append([]float64(nil), e.sigma...)
		e.updateStatus(func(s *Status) {
			s.Sweep = sweep + 1
			s.Energy = energy
			s.Acceptance = acceptance(e.lattice.Len(), rejected)
			s.Sigma = sigma
		})
	}

	res.Spins = e.lattice.Spins()
	return res
}

func acceptance(proposals, rejections int) float64 {
	if proposals == 0 {
		return 0
	}
	return 1 - float64(rejections)/float64(proposals)
}
