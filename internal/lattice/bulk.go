package lattice

import (
	"fmt"

	"github.com/talgya/spinmc/internal/vec"
)

// BulkConfig describes a periodic simple-cubic block of identical sites.
type BulkConfig struct {
	Length     int
	SpinNorm   float64
	Exchange   float64
	Model      string
	Type       string
	Field      vec.Vector3
	Anisotropy *AnisotropySpec // nil for none
}

// DefaultBulkConfig returns a 10³ Heisenberg ferromagnet.
func DefaultBulkConfig() BulkConfig {
	return BulkConfig{
		Length:   10,
		SpinNorm: 1,
		Exchange: 1,
		Model:    "random",
		Type:     "generic",
		Field:    vec.UnitZ,
	}
}

// Bulk builds the description of an L×L×L periodic simple-cubic sample with
// nearest-neighbour exchange. Sites are numbered x + L·y + L²·z. For L = 2 the
// two periodic images of a neighbour coincide and the bond appears twice.
func Bulk(cfg BulkConfig) (Description, error) {
	L := cfg.Length
	if L < 1 {
		return Description{}, fmt.Errorf("%w: bulk length %d", ErrMalformed, L)
	}
	if _, err := ParseModel(cfg.Model); err != nil {
		return Description{}, err
	}
	if cfg.Anisotropy != nil {
		if _, err := cfg.Anisotropy.Term(); err != nil {
			return Description{}, err
		}
	}

	index := func(x, y, z int) int {
		x, y, z = (x+L)%L, (y+L)%L, (z+L)%L
		return x + L*y + L*L*z
	}

	n := L * L * L
	desc := Description{
		Types: []string{cfg.Type},
		Sites: make([]SiteSpec, 0, n),
		Bonds: make([]Bond, 0, 6*n),
	}
	for z := 0; z < L; z++ {
		for y := 0; y < L; y++ {
			for x := 0; x < L; x++ {
				spec := SiteSpec{
					ID:       index(x, y, z),
					Position: vec.New(float64(x), float64(y), float64(z)),
					SpinNorm: cfg.SpinNorm,
					Field:    cfg.Field,
					Type:     cfg.Type,
					Model:    cfg.Model,
				}
				if cfg.Anisotropy != nil {
					spec.Anisotropy = []AnisotropySpec{*cfg.Anisotropy}
				}
				desc.Sites = append(desc.Sites, spec)
			}
		}
	}

	// Each site links forward along x, y and z; Pair supplies the reverse.
	for z := 0; z < L; z++ {
		for y := 0; y < L; y++ {
			for x := 0; x < L; x++ {
				i := index(x, y, z)
				for _, j := range []int{index(x+1, y, z), index(x, y+1, z), index(x, y, z+1)} {
					if j == i {
						continue
					}
					desc.Bonds = append(desc.Bonds, Pair(i, j, cfg.Exchange)...)
				}
			}
		}
	}
	return desc, nil
}

// AnisotropyTerms resolves the per-site anisotropy of desc, one term per site
// in id order. Sites without a term get a zero uniaxial one.
func AnisotropyTerms(desc Description) ([]Anisotropy, error) {
	terms := make([]Anisotropy, len(desc.Sites))
	for _, s := range desc.Sites {
		if s.ID < 0 || s.ID >= len(terms) {
			return nil, fmt.Errorf("%w: site id %d", ErrUnknownSite, s.ID)
		}
		if len(s.Anisotropy) == 0 {
			terms[s.ID] = NewUniaxial(vec.UnitZ, 0)
			continue
		}
		t, err := s.Anisotropy[0].Term()
		if err != nil {
			return nil, fmt.Errorf("site %d: %w", s.ID, err)
		}
		terms[s.ID] = t
	}
	return terms, nil
}
