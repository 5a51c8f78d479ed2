package lattice

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/talgya/spinmc/internal/vec"
)

// Anisotropy is one energy term evaluated on a site's spin.
type Anisotropy interface {
	Energy(spin vec.Vector3) float64
	Kind() string
}

// Uniaxial favours alignment with a single easy axis: -K (û·S)².
type Uniaxial struct {
	Axis vec.Vector3 // unit
	K    float64
}

// NewUniaxial normalises axis and returns the term.
func NewUniaxial(axis vec.Vector3, k float64) Uniaxial {
	return Uniaxial{Axis: vec.Unit(axis), K: k}
}

func (u Uniaxial) Energy(spin vec.Vector3) float64 {
	p := vec.Dot(u.Axis, spin)
	return -u.K * p * p
}

func (u Uniaxial) Kind() string { return "uniaxial" }

// Cubic is the cubic crystal term -K (Sx²Sy² + Sy²Sz² + Sx²Sz²) in the site frame.
type Cubic struct {
	K float64
}

func (c Cubic) Energy(spin vec.Vector3) float64 {
	x2, y2, z2 := spin.X*spin.X, spin.Y*spin.Y, spin.Z*spin.Z
	return -c.K * (x2*y2 + y2*z2 + x2*z2)
}

func (c Cubic) Kind() string { return "cubic" }

// Triaxial is the cubic form written in an arbitrary orthogonal frame A, B,
// C = A×B: -K (a²b² + a²c² + b²c²) with a = S·A and so on.
type Triaxial struct {
	A, B, C vec.Vector3
	K       float64
}

// NewTriaxial normalises a and b and completes the frame with their cross product.
func NewTriaxial(a, b vec.Vector3, k float64) Triaxial {
	a, b = vec.Unit(a), vec.Unit(b)
	return Triaxial{A: a, B: b, C: vec.Cross(a, b), K: k}
}

func (t Triaxial) Energy(spin vec.Vector3) float64 {
	a := vec.Dot(spin, t.A)
	b := vec.Dot(spin, t.B)
	c := vec.Dot(spin, t.C)
	a2, b2, c2 := a*a, b*b, c*c
	return -t.K * (a2*b2 + a2*c2 + b2*c2)
}

func (t Triaxial) Kind() string { return "triaxial" }

// AnisotropySpec is the declarative form of a term inside a Description.
type AnisotropySpec struct {
	Kind  string      `json:"kind"`
	Axis  vec.Vector3 `json:"axis"`
	Axis2 vec.Vector3 `json:"axis2"`
	K     float64     `json:"k"`
}

// Term resolves the spec into an energy term.
func (s AnisotropySpec) Term() (Anisotropy, error) {
	switch strings.ToLower(s.Kind) {
	case "uniaxial":
		return NewUniaxial(s.Axis, s.K), nil
	case "cubic":
		return Cubic{K: s.K}, nil
	case "triaxial":
		return NewTriaxial(s.Axis, s.Axis2, s.K), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAnisotropy, s.Kind)
	}
}

// ParseAnisotropyFields reads a uniaxial 4-tuple (ax ay az k) or a triaxial
// 7-tuple (Ax Ay Az Bx By Bz k).
func ParseAnisotropyFields(fields []string) (Anisotropy, error) {
	nums := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrMalformed, f)
		}
		nums[i] = v
	}
	switch len(nums) {
	case 4:
		return NewUniaxial(vec.FromSlice(nums[0:3]), nums[3]), nil
	case 7:
		return NewTriaxial(vec.FromSlice(nums[0:3]), vec.FromSlice(nums[3:6]), nums[6]), nil
	default:
		return nil, fmt.Errorf("%w: expected 4 or 7 values, got %d", ErrUnknownAnisotropy, len(nums))
	}
}
