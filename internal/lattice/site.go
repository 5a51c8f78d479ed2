package lattice

import (
	"github.com/talgya/spinmc/internal/vec"
)

// Site is one magnetic moment of the lattice.
type Site struct {
	ID            int         `json:"id"`
	Position      vec.Vector3 `json:"position"`
	SpinNorm      float64     `json:"spin_norm"`
	ExternalField vec.Vector3 `json:"external_field"`
	Type          string      `json:"type"`
	TypeIndex     int         `json:"type_index"`
	Model         Model       `json:"model"`

	spin     vec.Vector3
	prevSpin vec.Vector3

	// Bonds: indices into the owning lattice, parallel to couplings.
	neighbors []int
	couplings []float64

	anisotropy []Anisotropy
	ladder     Ladder
}

// newSite places the spin at (0, 0, -S), the bottom of its ladder.
func newSite(id int, pos vec.Vector3, spinNorm float64) Site {
	ladder := NewLadder(spinNorm)
	spin := vec.New(0, 0, -spinNorm)
	return Site{
		ID:       id,
		Position: pos,
		SpinNorm: spinNorm,
		spin:     spin,
		prevSpin: spin,
		ladder:   ladder,
	}
}

// Spin returns the current moment.
func (s *Site) Spin() vec.Vector3 { return s.spin }

// AddAnisotropy attaches another energy term.
func (s *Site) AddAnisotropy(term Anisotropy) {
	s.anisotropy = append(s.anisotropy, term)
}

// setSpin overwrites the spin without a proposal. Callers check the norm.
func (s *Site) setSpin(spin vec.Vector3) {
	s.spin = spin
	s.prevSpin = spin
}
