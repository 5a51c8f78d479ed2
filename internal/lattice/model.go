package lattice

import (
	"fmt"
	"math"
	"strings"
)

// Model selects the spin-update rule of a site.
type Model uint8

const (
	ModelRandom   Model = iota // Uniform direction on the sphere
	ModelFlip                  // Spin inversion
	ModelQIsing                // Swap along the quantized z ladder
	ModelAdaptive              // Gaussian perturbation of width sigma
	ModelCone30                // Rotation inside a 30° cone
	ModelCone15                // Rotation inside a 15° cone
	ModelHN30                  // Hinzke–Nowak mix with a 30° cone
	ModelHN15                  // Hinzke–Nowak mix with a 15° cone
)

var modelNames = [...]string{
	ModelRandom:   "random",
	ModelFlip:     "flip",
	ModelQIsing:   "qising",
	ModelAdaptive: "adaptive",
	ModelCone30:   "cone30",
	ModelCone15:   "cone15",
	ModelHN30:     "hn30",
	ModelHN15:     "hn15",
}

var modelAliases = map[string]Model{
	"random":     ModelRandom,
	"heisenberg": ModelRandom,
	"flip":       ModelFlip,
	"ising":      ModelFlip,
	"qising":     ModelQIsing,
	"adaptive":   ModelAdaptive,
	"cone30":     ModelCone30,
	"cone15":     ModelCone15,
	"hn30":       ModelHN30,
	"hn15":       ModelHN15,
}

// ParseModel resolves a model tag, ignoring case.
func ParseModel(tag string) (Model, error) {
	m, ok := modelAliases[strings.ToLower(strings.TrimSpace(tag))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownModel, tag)
	}
	return m, nil
}

// String returns the canonical tag.
func (m Model) String() string {
	if int(m) < len(modelNames) {
		return modelNames[m]
	}
	return fmt.Sprintf("Model(%d)", uint8(m))
}

// Adaptive reports whether proposals of this model depend on the tuned sigma.
func (m Model) Adaptive() bool {
	return m == ModelAdaptive
}

// Continuous reports whether the model samples arbitrary directions.
func (m Model) Continuous() bool {
	return m != ModelFlip && m != ModelQIsing
}

// coneHalfAngle returns the half-angle of the cone used by cone and
// Hinzke–Nowak models.
func (m Model) coneHalfAngle() float64 {
	switch m {
	case ModelCone30, ModelHN30:
		return math.Pi / 6
	case ModelCone15, ModelHN15:
		return math.Pi / 12
	}
	return 0
}
