package lattice

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/talgya/spinmc/internal/vec"
)

// ExchangeEnergy returns -Σ J_k S·S_k over the bonds of site i.
func (l *Lattice) ExchangeEnergy(i int) float64 {
	s := &l.sites[i]
	energy := 0.0
	for k, nb := range s.neighbors {
		energy -= s.couplings[k] * vec.Dot(s.spin, l.sites[nb].spin)
	}
	return energy
}

// AnisotropyEnergy sums the attached anisotropy terms of site i.
func (l *Lattice) AnisotropyEnergy(i int) float64 {
	s := &l.sites[i]
	energy := 0.0
	for _, term := range s.anisotropy {
		energy += term.Energy(s.spin)
	}
	return energy
}

// ZeemanEnergy returns -H S·h for site i, h being the site's field direction.
func (l *Lattice) ZeemanEnergy(i int, h float64) float64 {
	s := &l.sites[i]
	return -h * vec.Dot(s.spin, s.ExternalField)
}

// LocalEnergy is the energy seen by site i: exchange + anisotropy + Zeeman.
func (l *Lattice) LocalEnergy(i int, h float64) float64 {
	return l.ExchangeEnergy(i) + l.AnisotropyEnergy(i) + l.ZeemanEnergy(i, h)
}

// TotalEnergy returns the lattice energy. Every bond is stored from both ends,
// so the exchange sum is halved.
func (l *Lattice) TotalEnergy(h float64) float64 {
	exchange, other := 0.0, 0.0
	for i := range l.sites {
		exchange += l.ExchangeEnergy(i)
		other += l.AnisotropyEnergy(i) + l.ZeemanEnergy(i, h)
	}
	return 0.5*exchange + other
}

// Magnetization returns Σ S per type index, with the total over all sites in
// the extra last bucket.
func (l *Lattice) Magnetization() []vec.Vector3 {
	out := make([]vec.Vector3, len(l.types)+1)
	total := len(l.types)
	for i := range l.sites {
		s := &l.sites[i]
		out[s.TypeIndex] = r3.Add(out[s.TypeIndex], s.spin)
		out[total] = r3.Add(out[total], s.spin)
	}
	return out
}
