// Package engine runs the Metropolis Monte Carlo loop over a spin lattice.
//
// An Engine owns the lattice, one seeded random source and the per-type
// adaptive proposal widths. Run walks the temperature/field schedule in
// order, performing mcs sweeps per point and handing each point's histories
// to a Reporter. Spins carry over from one point to the next.
package engine

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/talgya/spinmc/internal/lattice"
	"github.com/talgya/spinmc/internal/vec"
)

// Adaptive controller bounds.
const (
	SigmaMax     = 60.0
	SigmaMin     = 1e-10
	TargetRatio  = 0.5
	StateSpinTol = 1e-6 // relative norm tolerance for restored spins
)

var (
	ErrEmptySchedule    = errors.New("engine: empty schedule")
	ErrScheduleMismatch = errors.New("engine: temperature and field counts differ")
	ErrInvalidMCS       = errors.New("engine: sweep count must be positive")
	ErrInvalidKB        = errors.New("engine: Boltzmann constant must be positive")
	ErrNegativeT        = errors.New("engine: negative temperature")
	ErrAlreadyRun       = errors.New("engine: run already started")
)

// Options configure an Engine.
type Options struct {
	Temperatures []float64
	Fields       []float64
	MCS          int
	Seed         int64
	KB           float64
}

// Validate checks the schedule and constants.
func (o Options) Validate() error {
	if len(o.Temperatures) == 0 || len(o.Fields) == 0 {
		return ErrEmptySchedule
	}
	if len(o.Temperatures) != len(o.Fields) {
		return fmt.Errorf("%w: %d temperatures, %d fields", ErrScheduleMismatch, len(o.Temperatures), len(o.Fields))
	}
	if o.MCS < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidMCS, o.MCS)
	}
	if !(o.KB > 0) || math.IsInf(o.KB, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidKB, o.KB)
	}
	for i, t := range o.Temperatures {
		if t < 0 || math.IsNaN(t) {
			return fmt.Errorf("%w: point %d has T = %v", ErrNegativeT, i, t)
		}
	}
	return nil
}

// State is the run lifecycle.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateDone    State = "done"
)

// Engine drives the simulation.
type Engine struct {
	lattice *lattice.Lattice
	rng     *rand.Rand
	opts    Options

	sigma      []float64 // proposal width per type index
	rejections []int     // per type, reset every sweep
	proposals  []int     // per type, reset every sweep

	// Callbacks, populated during setup. Both run on the simulation goroutine.
	OnSweep func(SweepStats)
	OnPoint func(PointResult)

	mu     sync.RWMutex
	status Status
}

// New validates opts and builds an engine around l. Every type starts with
// the maximum proposal width.
func New(l *lattice.Lattice, opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ntypes := len(l.Types())
	e := &Engine{
		lattice:    l,
		rng:        rand.New(rand.NewSource(opts.Seed)),
		opts:       opts,
		sigma:      make([]float64, ntypes),
		rejections: make([]int, ntypes),
		proposals:  make([]int, ntypes),
	}
	for i := range e.sigma {
		e.sigma[i] = SigmaMax
	}
	e.status = Status{
		State:  StateIdle,
		Points: len(opts.Temperatures),
		MCS:    opts.MCS,
		Sites:  l.Len(),
		Types:  l.Types(),
		Sigma:  append([]float64(nil), e.sigma...),
		Seed:   opts.Seed,
	}
	return e, nil
}

// RandomizeSpins applies one unconditional proposal to every site, in order.
func (e *Engine) RandomizeSpins() {
	for i := 0; i < e.lattice.Len(); i++ {
		s := e.lattice.Site(i)
		s.Propose(e.rng, e.sigma[s.TypeIndex])
		s.Accept()
	}
}

// SetState installs a saved configuration. Every spin is checked before any
// is written, so a rejected state leaves the lattice untouched.
func (e *Engine) SetState(spins []vec.Vector3) error {
	l := e.lattice
	if len(spins) != l.Len() {
		return fmt.Errorf("%w: %d spins for %d sites", lattice.ErrCountMismatch, len(spins), l.Len())
	}
	for i, s := range spins {
		if err := l.CheckSpin(i, s, StateSpinTol); err != nil {
			return err
		}
	}
	for i, s := range spins {
		if err := l.SetSpin(i, s, StateSpinTol); err != nil {
			return err
		}
	}
	return nil
}

// Status is a point-in-time snapshot of the run.
type Status struct {
	State       State     `json:"state"`
	Point       int       `json:"point"`
	Points      int       `json:"points"`
	Sweep       int       `json:"sweep"`
	MCS         int       `json:"mcs"`
	Sites       int       `json:"sites"`
	Types       []string  `json:"types"`
	Temperature float64   `json:"temperature"`
	Field       float64   `json:"field"`
	Energy      float64   `json:"energy"`
	Acceptance  float64   `json:"acceptance"`
	Sigma       []float64 `json:"sigma"`
	Seed        int64     `json:"seed"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
}

// Status returns a copy of the current snapshot. Safe from any goroutine.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.status
	s.Sigma = append([]float64(nil), s.Sigma...)
	return s
}

func (e *Engine) updateStatus(fn func(*Status)) {
	e.mu.Lock()
	fn(&e.status)
	e.mu.Unlock()
}
