package lattice

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/talgya/spinmc/internal/vec"
)

// Propose replaces the spin with a trial state drawn by the site's model.
// The prior spin is kept for Revert. sigma is only read by the adaptive model.
func (s *Site) Propose(rng *rand.Rand, sigma float64) {
	s.prevSpin = s.spin
	switch s.Model {
	case ModelRandom:
		s.spin = s.randomStep(rng)
	case ModelFlip:
		s.spin = s.flipStep()
	case ModelQIsing:
		s.spin = s.ladderStep(rng)
	case ModelAdaptive:
		s.spin = s.gaussianStep(rng, sigma)
	case ModelCone30, ModelCone15:
		s.spin = s.coneStep(rng, s.Model.coneHalfAngle())
	case ModelHN30, ModelHN15:
		switch rng.Intn(3) {
		case 0:
			s.spin = s.coneStep(rng, s.Model.coneHalfAngle())
		case 1:
			s.spin = s.randomStep(rng)
		default:
			s.spin = s.flipStep()
		}
	}
}

// Accept commits the last proposal.
func (s *Site) Accept() {
	s.prevSpin = s.spin
	if s.Model == ModelQIsing {
		s.ladder.commit()
	}
}

// Revert restores the spin held before the last proposal, undoing the ladder
// swap of quantized sites.
func (s *Site) Revert() {
	s.spin = s.prevSpin
	if s.Model == ModelQIsing {
		s.ladder.Undo()
	}
}

func (s *Site) randomStep(rng *rand.Rand) vec.Vector3 {
	return r3.Scale(s.SpinNorm, vec.RandomUnit(rng))
}

func (s *Site) flipStep() vec.Vector3 {
	return r3.Scale(-1, s.spin)
}

// ladderStep draws one of the unused projections and swaps it in. Sites whose
// ladder has a single rung keep their spin.
func (s *Site) ladderStep(rng *rand.Rand) vec.Vector3 {
	n := len(s.ladder.Available)
	if n == 0 {
		return s.spin
	}
	slot := int(rng.Float64() * float64(n))
	return vec.New(0, 0, s.ladder.Swap(slot))
}

func (s *Site) gaussianStep(rng *rand.Rand, sigma float64) vec.Vector3 {
	trial := r3.Add(vec.Unit(s.spin), r3.Scale(sigma, vec.Gaussian(rng)))
	return vec.WithNorm(trial, s.SpinNorm)
}

// coneStep tilts the current direction by an angle whose cosine is uniform in
// [cos(halfAngle), 1], then spins the tilted vector by a uniform azimuth
// around the original direction.
func (s *Site) coneStep(rng *rand.Rand, halfAngle float64) vec.Vector3 {
	cosA := math.Cos(halfAngle)
	thetaRot := math.Acos((1-cosA)*rng.Float64() + cosA)

	dir := vec.Unit(s.spin)
	theta := math.Acos(clamp(dir.Z, -1, 1))
	phi := math.Atan2(dir.Y, dir.X)
	tilted := vec.Spherical(theta-thetaRot, phi)

	phiRot := 2 * math.Pi * rng.Float64()
	rotated := vec.Rodrigues(tilted, dir, phiRot)
	return vec.WithNorm(rotated, s.SpinNorm)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
