// Package lattice holds the spin lattice: sites, their bonds, the energy model
// and the per-site update rules.
//
// Sites live in one slice fixed at construction; bonds refer to neighbours by
// index into that slice. Type indices follow declaration order (or discovery
// order when no types are declared), so reordering the input changes the
// bucket order of per-type observables.
package lattice

import (
	"fmt"
	"math"

	"github.com/talgya/spinmc/internal/vec"
)

// Lattice owns every site and the connectivity between them.
type Lattice struct {
	sites         []Site
	types         []string
	typeIndex     map[string]int
	countByType   []int
	adaptiveTypes []bool
}

// Description is the structural input a lattice is built from.
type Description struct {
	Types []string   `json:"types"` // optional; fixes the type index order
	Sites []SiteSpec `json:"sites"`
	Bonds []Bond     `json:"bonds"`
}

// SiteSpec describes one site.
type SiteSpec struct {
	ID         int              `json:"id"`
	Position   vec.Vector3      `json:"position"`
	SpinNorm   float64          `json:"spin_norm"`
	Field      vec.Vector3      `json:"field"`
	Type       string           `json:"type"`
	Model      string           `json:"model"`
	Anisotropy []AnisotropySpec `json:"anisotropy,omitempty"`
}

// Bond is a directed exchange link: From sees To with coupling J. Symmetric
// interactions are stored once from each end; see Pair.
type Bond struct {
	From int     `json:"from"`
	To   int     `json:"to"`
	J    float64 `json:"j"`
}

// Pair returns the two directed bonds of a symmetric interaction.
func Pair(a, b int, j float64) []Bond {
	return []Bond{{From: a, To: b, J: j}, {From: b, To: a, J: j}}
}

// Build validates desc and wires a lattice. On any error nothing is returned.
func Build(desc Description) (*Lattice, error) {
	n := len(desc.Sites)
	if n == 0 {
		return nil, fmt.Errorf("%w: no sites", ErrMalformed)
	}

	l := &Lattice{
		sites:     make([]Site, n),
		typeIndex: make(map[string]int),
	}
	for _, t := range desc.Types {
		if _, dup := l.typeIndex[t]; dup {
			return nil, fmt.Errorf("%w: type %q declared twice", ErrMalformed, t)
		}
		l.addType(t)
	}
	declared := len(desc.Types) > 0

	seen := make([]bool, n)
	for _, spec := range desc.Sites {
		if spec.ID < 0 || spec.ID >= n {
			return nil, fmt.Errorf("%w: site id %d outside [0, %d)", ErrUnknownSite, spec.ID, n)
		}
		if seen[spec.ID] {
			return nil, fmt.Errorf("%w: site id %d declared twice", ErrMalformed, spec.ID)
		}
		seen[spec.ID] = true

		if !(spec.SpinNorm > 0) || math.IsInf(spec.SpinNorm, 0) {
			return nil, fmt.Errorf("%w: site %d spin magnitude %v", ErrMalformed, spec.ID, spec.SpinNorm)
		}
		model, err := ParseModel(spec.Model)
		if err != nil {
			return nil, fmt.Errorf("site %d: %w", spec.ID, err)
		}

		idx, ok := l.typeIndex[spec.Type]
		if !ok {
			if declared {
				return nil, fmt.Errorf("%w: site %d has type %q", ErrUnknownType, spec.ID, spec.Type)
			}
			idx = l.addType(spec.Type)
		}

		site := newSite(spec.ID, spec.Position, spec.SpinNorm)
		site.ExternalField = spec.Field
		site.Type = spec.Type
		site.TypeIndex = idx
		site.Model = model
		for _, as := range spec.Anisotropy {
			term, err := as.Term()
			if err != nil {
				return nil, fmt.Errorf("site %d: %w", spec.ID, err)
			}
			site.AddAnisotropy(term)
		}

		l.sites[spec.ID] = site
		l.countByType[idx]++
		if model.Adaptive() {
			l.adaptiveTypes[idx] = true
		}
	}

	for _, b := range desc.Bonds {
		if b.From < 0 || b.From >= n || b.To < 0 || b.To >= n {
			return nil, fmt.Errorf("%w: bond %d -> %d", ErrUnknownSite, b.From, b.To)
		}
		s := &l.sites[b.From]
		s.neighbors = append(s.neighbors, b.To)
		s.couplings = append(s.couplings, b.J)
	}

	return l, nil
}

func (l *Lattice) addType(name string) int {
	idx := len(l.types)
	l.types = append(l.types, name)
	l.typeIndex[name] = idx
	l.countByType = append(l.countByType, 0)
	l.adaptiveTypes = append(l.adaptiveTypes, false)
	return idx
}

// Len returns the number of sites.
func (l *Lattice) Len() int { return len(l.sites) }

// Site returns the site at index i.
func (l *Lattice) Site(i int) *Site { return &l.sites[i] }

// Types returns the type labels in index order.
func (l *Lattice) Types() []string { return l.types }

// CountByType returns the number of sites per type index.
func (l *Lattice) CountByType() []int { return l.countByType }

// HasAdaptive reports whether any site of the type uses the adaptive model.
func (l *Lattice) HasAdaptive(typeIndex int) bool { return l.adaptiveTypes[typeIndex] }

// Positions returns the site positions in index order.
func (l *Lattice) Positions() []vec.Vector3 {
	out := make([]vec.Vector3, len(l.sites))
	for i := range l.sites {
		out[i] = l.sites[i].Position
	}
	return out
}

// SiteTypes returns each site's type label in index order.
func (l *Lattice) SiteTypes() []string {
	out := make([]string, len(l.sites))
	for i := range l.sites {
		out[i] = l.sites[i].Type
	}
	return out
}

// Spins returns a copy of the current configuration.
func (l *Lattice) Spins() []vec.Vector3 {
	out := make([]vec.Vector3, len(l.sites))
	for i := range l.sites {
		out[i] = l.sites[i].spin
	}
	return out
}

// Bonds returns the number of directed bonds.
func (l *Lattice) Bonds() int {
	total := 0
	for i := range l.sites {
		total += len(l.sites[i].neighbors)
	}
	return total
}

// CheckSpin reports whether spin may be placed on site i: its length must
// match the site magnitude within a relative tolerance and quantized sites
// need a value on their ladder. It changes nothing.
func (l *Lattice) CheckSpin(i int, spin vec.Vector3, tol float64) error {
	if i < 0 || i >= len(l.sites) {
		return fmt.Errorf("%w: %d", ErrUnknownSite, i)
	}
	s := &l.sites[i]
	if math.Abs(vec.Norm(spin)-s.SpinNorm) > tol*s.SpinNorm {
		return fmt.Errorf("%w: site %d has |S| = %g, expected %g", ErrSpinNorm, i, vec.Norm(spin), s.SpinNorm)
	}
	if s.Model == ModelQIsing && (spin.X != 0 || spin.Y != 0 || !s.ladder.Has(spin.Z)) {
		return fmt.Errorf("%w: site %d spin %v is not on its z ladder", ErrSpinNorm, i, spin)
	}
	return nil
}

// SetSpin places spin on site i once CheckSpin accepts it.
func (l *Lattice) SetSpin(i int, spin vec.Vector3, tol float64) error {
	if err := l.CheckSpin(i, spin, tol); err != nil {
		return err
	}
	s := &l.sites[i]
	if s.Model == ModelQIsing {
		s.ladder.occupy(spin.Z)
	}
	s.setSpin(spin)
	return nil
}

// AttachAnisotropy appends terms[i] to site i. The slice must cover every site.
func (l *Lattice) AttachAnisotropy(terms []Anisotropy) error {
	if len(terms) != len(l.sites) {
		return fmt.Errorf("%w: %d anisotropy terms for %d sites", ErrCountMismatch, len(terms), len(l.sites))
	}
	for i, t := range terms {
		l.sites[i].AddAnisotropy(t)
	}
	return nil
}
