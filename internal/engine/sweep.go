package engine

import (
	"math"

	"github.com/talgya/spinmc/internal/vec"
)

// SweepStats summarises one sweep. Counters are per type index.
type SweepStats struct {
	Point         int
	Sweep         int
	Temperature   float64
	Field         float64
	Energy        float64
	Magnetization vec.Vector3 // total over all sites
	Proposals     []int
	Rejections    []int
	Sigma         []float64 // widths used during the sweep
}

// Sweep performs |sites| single-site proposals at (t, h), drawing sites
// uniformly with replacement. It returns the number of rejections.
func (e *Engine) Sweep(t, h float64) int {
	n := e.lattice.Len()
	rejected := 0
	for k := 0; k < n; k++ {
		i := e.rng.Intn(n)
		if !e.step(i, t, h) {
			rejected++
		}
	}
	return rejected
}

// step proposes a new spin for site i and applies the Metropolis rule.
func (e *Engine) step(i int, t, h float64) bool {
	s := e.lattice.Site(i)
	before := e.lattice.LocalEnergy(i, h)
	s.Propose(e.rng, e.sigma[s.TypeIndex])
	after := e.lattice.LocalEnergy(i, h)

	e.proposals[s.TypeIndex]++
	if e.accept(after-before, t) {
		s.Accept()
		return true
	}
	s.Revert()
	e.rejections[s.TypeIndex]++
	return false
}

// accept is the Metropolis criterion. Downhill moves never consume a draw.
func (e *Engine) accept(dE, t float64) bool {
	if dE <= 0 {
		return true
	}
	return e.rng.Float64() <= math.Exp(-dE/(e.opts.KB*t))
}

// AdaptSigma retunes a proposal width towards a 50% acceptance ratio given
// the rejections observed over count sites. Out-of-range results and a zero
// ratio reset to SigmaMax.
func AdaptSigma(sigma float64, rejections, count int) float64 {
	if count <= 0 || rejections == 0 {
		return SigmaMax
	}
	ratio := float64(rejections) / float64(count)
	next := sigma * (TargetRatio / ratio)
	if next > SigmaMax || next < SigmaMin {
		return SigmaMax
	}
	return next
}

// adapt runs the controller for every type holding adaptive sites and clears
// the per-sweep counters.
func (e *Engine) adapt() {
	counts := e.lattice.CountByType()
	for i := range e.sigma {
		if e.lattice.HasAdaptive(i) {
			e.sigma[i] = AdaptSigma(e.sigma[i], e.rejections[i], counts[i])
		}
		e.rejections[i] = 0
		e.proposals[i] = 0
	}
}
