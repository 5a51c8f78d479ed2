package lattice

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/spinmc/internal/vec"
)

// TextureConfig shapes the simplex-noise initial state.
type TextureConfig struct {
	Scale   float64 `yaml:"scale" json:"scale" validate:"gt=0"`
	Octaves int     `yaml:"octaves" json:"octaves" validate:"gte=1,lte=8"`
}

// DefaultTextureConfig gives domains a few lattice spacings wide.
func DefaultTextureConfig() TextureConfig {
	return TextureConfig{Scale: 0.15, Octaves: 3}
}

// ApplyTexture sets a smooth, spatially correlated initial state. Three
// independent noise fields give the direction at each site position.
// Continuous sites take that direction, flip sites take the sign of its z
// component and quantized sites keep their ladder value.
func ApplyTexture(l *Lattice, seed int64, cfg TextureConfig) {
	nx := opensimplex.New(seed)
	ny := opensimplex.New(seed + 1)
	nz := opensimplex.New(seed + 2)

	for i := range l.sites {
		s := &l.sites[i]
		p := s.Position
		dir := vec.New(
			octaveNoise(nx, p, cfg.Octaves, cfg.Scale, 0.5),
			octaveNoise(ny, p, cfg.Octaves, cfg.Scale, 0.5),
			octaveNoise(nz, p, cfg.Octaves, cfg.Scale, 0.5),
		)

		switch {
		case s.Model == ModelFlip:
			z := -s.SpinNorm
			if dir.Z > 0 {
				z = s.SpinNorm
			}
			s.setSpin(vec.New(0, 0, z))
		case !s.Model.Continuous():
			continue
		default:
			if vec.Norm(dir) == 0 {
				continue
			}
			s.setSpin(vec.WithNorm(dir, s.SpinNorm))
		}
	}
}

// octaveNoise layers several frequencies of 3D noise.
func octaveNoise(noise opensimplex.Noise, p vec.Vector3, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval3(p.X*frequency, p.Y*frequency, p.Z*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	if maxVal == 0 {
		return 0
	}
	return total / maxVal
}
